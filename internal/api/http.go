package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/engine"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

const maxBodyBytes = 4 << 20

// TrendAPI is what the HTTP routes need from the service layer.
type TrendAPI interface {
	TrendSeries(ctx context.Context, keywords []string) (map[string]models.Series, []string, error)
	Explain(ctx context.Context, req models.ExplainRequest) (models.ExplainResult, error)
	Summaries(ctx context.Context, keywords []string) (models.SummariesResult, error)
	IntelPeak(ctx context.Context, req models.IntelPeakRequest) (models.IntelPeakResult, error)
	Regenerate(ctx context.Context) (models.RegenerateResult, error)
}

type httpHandlers struct {
	svc    TrendAPI
	logger *slog.Logger
}

// NewRouter builds the JSON routes served alongside gRPC, plus /metrics and /healthz.
func NewRouter(svc TrendAPI, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/trends/redis", h.handleTrendSeries)
		r.Post("/explain-trend", h.handleExplain)
		r.Get("/peak-summaries", h.handleSummaries)
		r.Get("/intel-peak", h.handleIntelPeak)
		r.Post("/regenerate-all-explanations", h.handleRegenerate)
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (h *httpHandlers) handleTrendSeries(w http.ResponseWriter, r *http.Request) {
	keywords := SplitKeywords(r.URL.Query().Get("keywords"))
	if len(keywords) == 0 {
		h.fail(w, engine.ErrNoKeywords)
		return
	}
	found, missing, err := h.svc.TrendSeries(r.Context(), keywords)
	if err != nil {
		h.fail(w, err)
		return
	}
	data := make(map[string][]SampleView, len(found))
	for kw, series := range found {
		data[kw] = SeriesView(series)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
		"missing": missing,
	})
}

func (h *httpHandlers) handleExplain(w http.ResponseWriter, r *http.Request) {
	var payload ExplainPayload
	if err := decodeBody(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := payload.ToExplainRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Explain(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"explanation":   result.Explanation,
		"keywords":      result.Keywords,
		"grounding":     result.Grounding,
		"peakSummaries": nonNilSummaries(result.PeakSummaries),
		"generatedAt":   result.GeneratedAt,
		"cached":        result.Cached,
	})
}

func (h *httpHandlers) handleSummaries(w http.ResponseWriter, r *http.Request) {
	keywords := SplitKeywords(r.URL.Query().Get("keywords"))
	if len(keywords) == 0 {
		h.fail(w, engine.ErrNoKeywords)
		return
	}
	result, err := h.svc.Summaries(r.Context(), keywords)
	if err != nil {
		h.fail(w, err)
		return
	}
	body := map[string]any{
		"success":       true,
		"keywords":      result.Keywords,
		"peakSummaries": nonNilSummaries(result.Summaries),
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *httpHandlers) handleIntelPeak(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	result, err := h.svc.IntelPeak(r.Context(), models.IntelPeakRequest{Keyword: keyword})
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"keyword": keyword,
		"result":  result,
	})
}

func (h *httpHandlers) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Regenerate(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if result.Count == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "No keyword sets found",
			"count":   0,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     fmt.Sprintf("Started regeneration for %d keyword sets", result.Count),
		"count":       result.Count,
		"keywordSets": result.KeywordSets,
	})
}

func (h *httpHandlers) fail(w http.ResponseWriter, err error) {
	code := HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", slog.Any("error", err))
	}
	writeError(w, code, errorMessage(err))
}

// HTTPStatus maps domain errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoKeywords):
		return http.StatusBadRequest
	case errors.Is(err, repo.ErrTrendNotFound), repo.IsMissing(err):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrNotConfigured), errors.Is(err, utils.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, utils.ErrAlreadyRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func nonNilSummaries(s []models.PeakSummary) []models.PeakSummary {
	if s == nil {
		return []models.PeakSummary{}
	}
	return s
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
