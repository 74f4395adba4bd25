package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var promptDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var cannedEvents = []struct {
	event  string
	source string
}{
	{"City council vote on budget sparks protest", "NYT"},
	{"Mayoral debate clash over subway safety", "AP News"},
	{"Federal indictment unsealed against campaign aide", "Reuters"},
	{"Primary election results announced", "Politico"},
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func main() {
	var (
		addr     string
		maxPeaks int
		latency  time.Duration
	)
	flag.StringVar(&addr, "addr", ":8090", "listen address")
	flag.IntVar(&maxPeaks, "peaks", 3, "peak sections per reply")
	flag.DurationVar(&latency, "latency", 200*time.Millisecond, "artificial reply delay")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// genai posts to {base}/v1beta/models/{model}:generateContent.
	mux.HandleFunc("/v1beta/models/", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var prompt strings.Builder
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				prompt.WriteString(p.Text)
			}
		}
		time.Sleep(latency)

		writeJSON(w, map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": narrative(prompt.String(), maxPeaks)}},
				},
				"finishReason": "STOP",
				"groundingMetadata": map[string]any{
					"webSearchQueries": []string{"local news trend spike"},
					"groundingChunks": []map[string]any{
						{"web": map[string]any{"uri": "https://example.com/news", "title": "example.com"}},
					},
				},
			}},
		})
	})

	logger := log.New(log.Writer(), "gemini-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    addr,
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on " + addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// narrative answers with one PEAK section per distinct date in the prompt, latest first.
func narrative(prompt string, maxPeaks int) string {
	seen := map[string]bool{}
	var dates []string
	for _, d := range promptDate.FindAllString(prompt, -1) {
		if !seen[d] {
			seen[d] = true
			dates = append(dates, d)
		}
	}

	var b strings.Builder
	b.WriteString("Search interest stayed low apart from a few news-driven spikes.\n\n")
	for i := 0; i < len(dates) && i < maxPeaks; i++ {
		date := dates[len(dates)-1-i]
		canned := cannedEvents[i%len(cannedEvents)]
		fmt.Fprintf(&b, "### PEAK: %s\nEVENT: %s\nSOURCE: %s\n\n", date, canned.event, canned.source)
	}
	return b.String()
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
