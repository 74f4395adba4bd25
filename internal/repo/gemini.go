package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/metrics"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
	"github.com/jcm15289/TrendAnalyzer-sub000/internal/utils"
)

// ErrNoNarrative signals that the model answered without any text.
var ErrNoNarrative = errors.New("model returned no narrative text")

var promisedSearch = regexp.MustCompile(`(?i)(will|going to) (search|use google|look up|find)`)

const followUpInstruction = "\n\nYou mentioned you will search, but please execute the search NOW and provide the complete analysis with the search results included. Do not say you will search - actually perform the search and include the results."

// GeminiConfig controls the narrative model and its call budget.
type GeminiConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	TopK              float32
	TopP              float32
	MaxOutputTokens   int32
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
}

// GeminiClient generates search-grounded trend narratives.
type GeminiClient struct {
	client  *genai.Client
	cfg     GeminiConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGeminiClient constructs a client for the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, utils.NewAppError("gemini.init", "GEMINI_API_KEY is not configured", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}, nil
}

// Generate asks the model for a narrative. When the first reply only promises to search
// and carries no grounding, one follow-up call insists on the search being executed.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (models.Narrative, error) {
	narrative, err := c.call(ctx, prompt, false)
	if err != nil {
		return models.Narrative{}, err
	}

	if promisedSearch.MatchString(narrative.Text) && !narrative.Grounding.Used() {
		c.logger.Info("narrative promised a search without grounding, issuing follow-up")
		followUp, err := c.call(ctx, prompt+followUpInstruction, true)
		if err != nil {
			c.logger.Warn("follow-up narrative failed", slog.Any("error", err))
		} else {
			if strings.TrimSpace(followUp.Text) != "" {
				narrative.Text = followUp.Text
			}
			narrative.Grounding = narrative.Grounding.Merge(followUp.Grounding)
			narrative.FollowUp = true
		}
	}

	if strings.TrimSpace(narrative.Text) == "" {
		return models.Narrative{}, ErrNoNarrative
	}
	return narrative, nil
}

func (c *GeminiClient) call(ctx context.Context, prompt string, followUp bool) (models.Narrative, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Narrative{}, fmt.Errorf("gemini rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Tools:           []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:     genai.Ptr(c.cfg.Temperature),
		TopK:            genai.Ptr(c.cfg.TopK),
		TopP:            genai.Ptr(c.cfg.TopP),
		MaxOutputTokens: c.cfg.MaxOutputTokens,
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(callCtx, c.cfg.Model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, config)
	if err != nil {
		metrics.ObserveGeminiRequest(metrics.OutcomeError, followUp)
		return models.Narrative{}, classifyGeminiError(err)
	}
	metrics.ObserveGeminiRequest(metrics.OutcomeSuccess, followUp)

	narrative := narrativeFromResponse(resp)
	c.logger.Debug("gemini response",
		slog.Bool("follow_up", followUp),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("text_chars", len(narrative.Text)),
		slog.Int("search_queries", len(narrative.Grounding.Queries)),
		slog.Int("sources", len(narrative.Grounding.Sources)),
	)
	return narrative, nil
}

func narrativeFromResponse(resp *genai.GenerateContentResponse) models.Narrative {
	var narrative models.Narrative
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return narrative
	}
	candidate := resp.Candidates[0]

	if candidate.Content != nil {
		texts := make([]string, 0, len(candidate.Content.Parts))
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		narrative.Text = strings.Join(texts, "\n\n")
	}

	if gm := candidate.GroundingMetadata; gm != nil {
		narrative.Grounding.Queries = append(narrative.Grounding.Queries, gm.WebSearchQueries...)
		for _, chunk := range gm.GroundingChunks {
			if chunk == nil || chunk.Web == nil {
				continue
			}
			narrative.Grounding.Sources = append(narrative.Grounding.Sources, sourceLabel(chunk.Web.Title, chunk.Web.URI))
		}
	}
	if cm := candidate.CitationMetadata; cm != nil {
		for _, citation := range cm.Citations {
			if citation == nil {
				continue
			}
			narrative.Grounding.Citations = append(narrative.Grounding.Citations, sourceLabel(citation.Title, citation.URI))
		}
	}
	return narrative
}

func sourceLabel(title, uri string) string {
	switch {
	case title != "" && uri != "":
		return title + " (" + uri + ")"
	case title != "":
		return title
	default:
		return uri
	}
}

// classifyGeminiError maps API failures onto operator-facing messages.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return fmt.Errorf("gemini request: %w", err)
		}
		apiErr = *ptr
	}

	var msg string
	switch {
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		msg = "Gemini API key is invalid or lacks permission"
	case apiErr.Code == http.StatusTooManyRequests:
		msg = "Gemini API quota exceeded, retry later"
	case apiErr.Code == http.StatusBadRequest:
		msg = "Gemini rejected the request"
	case apiErr.Code >= 500:
		msg = "Gemini service is temporarily unavailable"
	default:
		msg = "Gemini request failed"
	}
	return utils.NewAppError("gemini.generate", msg, err)
}
