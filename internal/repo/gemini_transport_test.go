package repo

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeGemini answers generateContent calls in-process instead of over the network.
type fakeGemini func(*http.Request) (*http.Response, error)

func (f fakeGemini) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestGemini(t *testing.T, fake fakeGemini) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:            "test-key",
		BaseURL:           "http://gemini.test/",
		RequestsPerSecond: 100,
		Burst:             10,
		HTTPClient:        &http.Client{Transport: fake},
	}, nil)
	require.NoError(t, err)
	return client
}
