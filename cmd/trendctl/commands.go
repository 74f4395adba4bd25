package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/api"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/config"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/explain"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/services"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

func newPeaksCmd(opts *globalOptions) *cobra.Command {
	var (
		minValue float64
		window   int
		edges    bool
	)
	cmd := &cobra.Command{
		Use:   "peaks KEYWORD",
		Short: "List the local maxima and plateau apexes of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.open(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			series, err := opts.localSeries(args[0])
			if err != nil {
				return err
			}
			req := models.PeaksRequest{Keyword: args[0], Series: series, WindowSize: window, IncludeEdges: edges}
			if cmd.Flags().Changed("min-value") {
				req.MinValue = &minValue
			}
			peaks, err := rt.service.Peaks(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, api.PeaksView(peaks))
			}
			if len(peaks) == 0 {
				warnColor.Fprintln(out, "no peaks found")
				return nil
			}
			rows := make([][]string, 0, len(peaks))
			for _, p := range peaks {
				rows = append(rows, []string{strconv.Itoa(p.Index), utils.FormatDate(p.Date), formatFloat(p.Value)})
			}
			return renderTable(out, []string{"Index", "Date", "Value"}, rows, 0, 2)
		},
	}
	cmd.Flags().Float64Var(&minValue, "min-value", 0, "minimum peak value (default from config)")
	cmd.Flags().IntVar(&window, "window", 0, "neighbours compared on each side (default from config)")
	cmd.Flags().BoolVar(&edges, "edges", false, "include first and last samples, as chart annotations do")
	return cmd
}

func newIntelPeakCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "intelpeak KEYWORD",
		Short: "Score the best recent peak against its baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.open(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			series, err := opts.localSeries(args[0])
			if err != nil {
				return err
			}
			result, err := rt.service.IntelPeak(ctx, models.IntelPeakRequest{Keyword: args[0], Series: series})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, result)
			}
			if result.Empty() {
				warnColor.Fprintln(out, "no qualifying peak in the last three months")
				return nil
			}
			okColor.Fprintf(out, "IntelPeak %s\n", formatFloat(*result.IntelPeak))
			return renderTable(out, []string{"Field", "Value"}, intelPeakRows(result), 1)
		},
	}
}

func intelPeakRows(r models.IntelPeakResult) [][]string {
	return [][]string{
		{"Peak date", formatDatePtr(r.PeakDate)},
		{"Peak value", formatFloatPtr(r.PeakValue)},
		{"Duration (days)", formatIntPtr(r.PeakDuration)},
		{"Peak period", formatDatePtr(r.PeakStartDate) + " .. " + formatDatePtr(r.PeakEndDate)},
		{"Peak area", formatFloatPtr(r.PeakArea)},
		{"Baseline period", formatDatePtr(r.BaselineStartDate) + " .. " + formatDatePtr(r.BaselineEndDate)},
		{"Baseline area", formatFloatPtr(r.BaselineArea)},
		{"Ratio", formatFloatPtr(r.Ratio)},
		{"Higher peaks", strconv.Itoa(r.HigherPeaksCount)},
	}
}

func newExtractCmd(opts *globalOptions) *cobra.Command {
	var (
		narrativeFile string
		date          string
		maxWords      int
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Pull the short event explanation for a date out of a narrative",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			vocab, err := explain.LoadVocabulary(cfg.Vocabulary.Path)
			if err != nil {
				return err
			}
			narrative, err := readNarrative(cmd.InOrStdin(), narrativeFile)
			if err != nil {
				return err
			}

			svc := services.NewTrendService(opts.logger(), nil, nil, nil, explain.NewExtractor(vocab), services.Options{})
			result := svc.Extract(models.ExtractRequest{Narrative: narrative, TargetDate: date, MaxWords: maxWords})

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, result)
			}
			if !result.Found {
				warnColor.Fprintf(out, "no explanation found for %s\n", date)
				return nil
			}
			okColor.Fprintln(out, result.Explanation)
			provenance := result.Tier
			if result.Rule != "" {
				provenance += " (" + result.Rule + ")"
			}
			dimColor.Fprintln(out, provenance)
			return nil
		},
	}
	cmd.Flags().StringVar(&narrativeFile, "narrative-file", "-", "narrative text file, - for stdin")
	cmd.Flags().StringVar(&date, "date", "", "peak date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&maxWords, "max-words", explain.DefaultMaxWords, "maximum words in the explanation")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func readNarrative(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read narrative: %w", err)
	}
	return string(data), nil
}

func newExplainCmd(opts *globalOptions) *cobra.Command {
	var regenerate bool
	cmd := &cobra.Command{
		Use:   "explain KEYWORD...",
		Short: "Explain the peaks of one or more keywords with a search-grounded narrative",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.open(ctx, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := models.ExplainRequest{Keywords: args, Regenerate: regenerate}
			if opts.file != "" {
				for _, kw := range args {
					series, err := opts.localSeries(kw)
					if err != nil {
						return err
					}
					req.Series = append(req.Series, models.KeywordSeries{Keyword: kw, Series: series})
				}
			}

			rt.logger.Debug("explaining", slog.Any("keywords", args), slog.Bool("regenerate", regenerate))
			result, err := rt.service.Explain(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, result)
			}
			if result.Cached {
				dimColor.Fprintf(out, "cached explanation from %s\n", result.GeneratedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintln(out, strings.TrimSpace(result.Explanation))
			if len(result.Grounding.Sources) > 0 {
				labelColor.Fprintln(out, "\nSources")
				for _, src := range result.Grounding.Sources {
					fmt.Fprintln(out, "  "+src)
				}
			}
			if len(result.PeakSummaries) > 0 {
				labelColor.Fprintln(out, "\nPeak summaries")
				return renderTable(out, []string{"Date", "Value", "Summary"}, summaryRows(result.PeakSummaries), 1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&regenerate, "regenerate", false, "ignore the stored explanation and ask the model again")
	return cmd
}

func newSummariesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summaries KEYWORD",
		Short: "Show the stored chart annotations for a keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := opts.open(ctx, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.service.Summaries(ctx, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, result)
			}
			if result.Message != "" {
				warnColor.Fprintln(out, result.Message)
			}
			if len(result.Summaries) == 0 {
				return nil
			}
			return renderTable(out, []string{"Date", "Value", "Summary"}, summaryRows(result.Summaries), 1)
		},
	}
}

func summaryRows(summaries []models.PeakSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{s.Date, formatFloat(s.Value), s.Summary})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func formatDatePtr(v *time.Time) string {
	if v == nil {
		return "-"
	}
	return utils.FormatDate(*v)
}
