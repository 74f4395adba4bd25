package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/cache"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/engine"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/repo"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

type fakeAPI struct {
	series     map[string]models.Series
	explainErr error
	lastReq    models.ExplainRequest
	regenErr   error
	trendsErr  error
}

func (f *fakeAPI) TrendSeries(_ context.Context, keywords []string) (map[string]models.Series, []string, error) {
	if f.trendsErr != nil {
		return nil, keywords, f.trendsErr
	}
	found := map[string]models.Series{}
	var missing []string
	for _, k := range keywords {
		if s, ok := f.series[k]; ok {
			found[k] = s
		} else {
			missing = append(missing, k)
		}
	}
	if len(found) == 0 {
		return nil, missing, repo.ErrTrendNotFound
	}
	return found, missing, nil
}

func (f *fakeAPI) Explain(_ context.Context, req models.ExplainRequest) (models.ExplainResult, error) {
	f.lastReq = req
	if f.explainErr != nil {
		return models.ExplainResult{}, f.explainErr
	}
	return models.ExplainResult{Keywords: req.Keywords, Explanation: "narrative"}, nil
}

func (f *fakeAPI) Summaries(_ context.Context, keywords []string) (models.SummariesResult, error) {
	if len(keywords) > 1 {
		return models.SummariesResult{Keywords: keywords, Message: "single keyword only"}, nil
	}
	return models.SummariesResult{
		Keywords:  keywords,
		Summaries: []models.PeakSummary{{Date: "2024-01-11", Keyword: keywords[0], Value: 60, Summary: "Budget vote"}},
	}, nil
}

func (f *fakeAPI) IntelPeak(_ context.Context, req models.IntelPeakRequest) (models.IntelPeakResult, error) {
	if req.Keyword == "ghost" {
		return models.IntelPeakResult{}, fmt.Errorf("fetch: %w", repo.ErrTrendNotFound)
	}
	score := 3.5
	return models.IntelPeakResult{IntelPeak: &score}, nil
}

func (f *fakeAPI) Regenerate(context.Context) (models.RegenerateResult, error) {
	if f.regenErr != nil {
		return models.RegenerateResult{}, f.regenErr
	}
	return models.RegenerateResult{Count: 1, KeywordSets: []string{"budget"}}, nil
}

func serve(t *testing.T, h http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func TestTrendSeriesRoute(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewRouter(&fakeAPI{series: map[string]models.Series{"sliwa": {{Date: day, Value: 4}}}}, nil)

	code, body := serve(t, h, http.MethodGet, "/api/trends/redis?keywords=sliwa,ghost", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"date": "2024-01-01", "value": 4.0}}, data["sliwa"])
	assert.Equal(t, []any{"ghost"}, body["missing"])

	code, body = serve(t, h, http.MethodGet, "/api/trends/redis?keywords=ghost", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])

	code, _ = serve(t, h, http.MethodGet, "/api/trends/redis", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestTrendsRouteStoreDown(t *testing.T) {
	down := utils.NewAppError("trends.fetch", "Redis not available",
		fmt.Errorf("%w: dial tcp 127.0.0.1:6379: connect: connection refused", utils.ErrUnavailable))
	h := NewRouter(&fakeAPI{trendsErr: down}, nil)

	code, body := serve(t, h, http.MethodGet, "/api/trends/redis?keywords=sliwa", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Redis not available", body["error"])
}

func TestExplainRoute(t *testing.T) {
	fake := &fakeAPI{}
	h := NewRouter(fake, nil)

	code, body := serve(t, h, http.MethodPost, "/api/explain-trend", `{"keywords":["budget"],"regenerate":true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "narrative", body["explanation"])
	assert.Equal(t, []any{}, body["peakSummaries"])
	assert.True(t, fake.lastReq.Regenerate)

	code, body = serve(t, h, http.MethodPost, "/api/explain-trend", `{"keywords":`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "invalid JSON body")

	code, _ = serve(t, h, http.MethodPost, "/api/explain-trend", `{"keywords":["a"],"series":[{"keyword":"a","data":[{"date":"nope","value":1}]}]}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestExplainRouteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"no keywords", engine.ErrNoKeywords, http.StatusBadRequest, engine.ErrNoKeywords.Error()},
		{"not found", fmt.Errorf("fetch: %w", repo.ErrTrendNotFound), http.StatusNotFound, ""},
		{"unconfigured", fmt.Errorf("pipeline: %w", utils.ErrNotConfigured), http.StatusServiceUnavailable, ""},
		{"store down", fmt.Errorf("fetch: %w", utils.ErrUnavailable), http.StatusServiceUnavailable, ""},
		{"gemini", utils.NewAppError("gemini.generate", "Gemini API quota exceeded, retry later", errors.New("429")), http.StatusInternalServerError, "Gemini API quota exceeded, retry later"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(&fakeAPI{explainErr: tc.err}, nil)
			code, body := serve(t, h, http.MethodPost, "/api/explain-trend", `{"keywords":["x"]}`)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, false, body["success"])
			if tc.msg != "" {
				assert.Equal(t, tc.msg, body["error"])
			}
		})
	}
}

func TestPeakSummariesRoute(t *testing.T) {
	h := NewRouter(&fakeAPI{}, nil)

	code, body := serve(t, h, http.MethodGet, "/api/peak-summaries?keywords=budget", "")
	require.Equal(t, http.StatusOK, code)
	summaries := body["peakSummaries"].([]any)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Budget vote", summaries[0].(map[string]any)["summary"])

	code, body = serve(t, h, http.MethodGet, "/api/peak-summaries?keywords=a,b", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["peakSummaries"])
	assert.Equal(t, "single keyword only", body["message"])
}

func TestIntelPeakRoute(t *testing.T) {
	h := NewRouter(&fakeAPI{}, nil)

	code, body := serve(t, h, http.MethodGet, "/api/intel-peak?keyword=budget", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3.5, body["result"].(map[string]any)["intelPeak"])

	code, _ = serve(t, h, http.MethodGet, "/api/intel-peak?keyword=ghost", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = serve(t, h, http.MethodGet, "/api/intel-peak", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRegenerateRoute(t *testing.T) {
	code, body := serve(t, NewRouter(&fakeAPI{}, nil), http.MethodPost, "/api/regenerate-all-explanations", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, "Started regeneration for 1 keyword sets", body["message"])
	assert.Equal(t, []any{"budget"}, body["keywordSets"])

	code, body = serve(t, NewRouter(&fakeAPI{regenErr: utils.ErrAlreadyRunning}, nil), http.MethodPost, "/api/regenerate-all-explanations", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	missing := fmt.Errorf("load keyword sets: %w", cache.ErrCacheMiss)
	code, _ = serve(t, NewRouter(&fakeAPI{regenErr: missing}, nil), http.MethodPost, "/api/regenerate-all-explanations", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	h := NewRouter(&fakeAPI{}, nil)
	code, body := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
