package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

func candidateBody(t *testing.T, text string, grounded bool) string {
	t.Helper()
	candidate := map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []map[string]any{{"text": text}},
		},
	}
	if grounded {
		candidate["groundingMetadata"] = map[string]any{
			"webSearchQueries": []string{"sliwa news january 2024"},
			"groundingChunks": []map[string]any{
				{"web": map[string]any{"uri": "https://news.example/sliwa", "title": "Sliwa debate"}},
			},
		}
	}
	raw, err := json.Marshal(map[string]any{"candidates": []any{candidate}})
	require.NoError(t, err)
	return string(raw)
}

type recordedCalls struct {
	mu      sync.Mutex
	prompts []string
}

func (r *recordedCalls) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.prompts = append(r.prompts, string(body))
	r.mu.Unlock()
}

func TestGeminiGenerateGrounded(t *testing.T) {
	calls := &recordedCalls{}
	client := newTestGemini(t, func(req *http.Request) (*http.Response, error) {
		calls.add(req)
		assert.True(t, strings.HasSuffix(req.URL.Path, "models/gemini-2.0-flash:generateContent"), req.URL.Path)
		return jsonResponse(http.StatusOK, candidateBody(t, "### PEAK: 2024-01-11\nThe debate drew attention.", true)), nil
	})

	narrative, err := client.Generate(context.Background(), "explain sliwa")
	require.NoError(t, err)
	assert.Contains(t, narrative.Text, "### PEAK: 2024-01-11")
	assert.Equal(t, []string{"sliwa news january 2024"}, narrative.Grounding.Queries)
	assert.Equal(t, []string{"Sliwa debate (https://news.example/sliwa)"}, narrative.Grounding.Sources)
	assert.False(t, narrative.FollowUp)

	require.Len(t, calls.prompts, 1)
	assert.Contains(t, calls.prompts[0], "googleSearch")
}

func TestGeminiGenerateFollowsUpOnPromisedSearch(t *testing.T) {
	calls := &recordedCalls{}
	client := newTestGemini(t, func(req *http.Request) (*http.Response, error) {
		calls.add(req)
		calls.mu.Lock()
		n := len(calls.prompts)
		calls.mu.Unlock()
		if n == 1 {
			return jsonResponse(http.StatusOK, candidateBody(t, "I will search for recent news and get back to you.", false)), nil
		}
		return jsonResponse(http.StatusOK, candidateBody(t, "### PEAK: 2024-01-31\nMayoral debate.", true)), nil
	})

	narrative, err := client.Generate(context.Background(), "explain sliwa")
	require.NoError(t, err)
	assert.True(t, narrative.FollowUp)
	assert.Equal(t, "### PEAK: 2024-01-31\nMayoral debate.", narrative.Text)
	assert.True(t, narrative.Grounding.Used())

	require.Len(t, calls.prompts, 2)
	assert.Contains(t, calls.prompts[1], "execute the search NOW")
}

func TestGeminiGenerateKeepsFirstReplyWhenFollowUpFails(t *testing.T) {
	var n int
	var mu sync.Mutex
	client := newTestGemini(t, func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n == 1 {
			return jsonResponse(http.StatusOK, candidateBody(t, "I'm going to look up the news.", false)), nil
		}
		return jsonResponse(http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded"}}`), nil
	})

	narrative, err := client.Generate(context.Background(), "explain")
	require.NoError(t, err)
	assert.Equal(t, "I'm going to look up the news.", narrative.Text)
	assert.False(t, narrative.FollowUp)
}

func TestGeminiGenerateClassifiesErrors(t *testing.T) {
	cases := map[int]string{
		http.StatusUnauthorized:        "Gemini API key is invalid or lacks permission",
		http.StatusTooManyRequests:     "Gemini API quota exceeded, retry later",
		http.StatusInternalServerError: "Gemini service is temporarily unavailable",
	}
	for status, want := range cases {
		t.Run(http.StatusText(status), func(t *testing.T) {
			client := newTestGemini(t, func(req *http.Request) (*http.Response, error) {
				return jsonResponse(status, `{"error":{"code":`+strconv.Itoa(status)+`,"message":"nope"}}`), nil
			})
			_, err := client.Generate(context.Background(), "explain")
			require.Error(t, err)
			var appErr *utils.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.Equal(t, want, appErr.Msg)
		})
	}
}

func TestGeminiGenerateEmptyReply(t *testing.T) {
	client := newTestGemini(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"candidates":[]}`), nil
	})
	_, err := client.Generate(context.Background(), "explain")
	assert.ErrorIs(t, err, ErrNoNarrative)
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: " "}, nil)
	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "gemini.init", appErr.Op)
}
