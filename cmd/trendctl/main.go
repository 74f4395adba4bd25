// Command trendctl runs peak detection, IntelPeak scoring and explanation lookups
// against stored trends or a local payload file.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(1)
	}
}
