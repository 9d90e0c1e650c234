package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"stephly/internal/log"
)

const DefaultModel = "gemini-2.5-flash"

// GeminiOption adjusts the SDK client configuration.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint, such as a test server.
func WithBaseURL(url string) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPClient = c }
}

// Gemini calls the Gemini API with an API key.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *log.Logger
}

// NewGemini builds a client for model.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, logger *log.Logger, opts ...GeminiOption) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.Discard()
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentLLM),
	}, nil
}

func (g *Gemini) Model() string { return g.model }

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		g.logger.ErrorContext(ctx, "Model call failed",
			"model", g.model,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldError, err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	g.logger.DebugContext(ctx, "Model call completed",
		"model", g.model,
		log.FieldDuration, time.Since(start).Milliseconds(),
		"reply_len", len(text))

	if text == "" {
		return "", errors.New("model returned no text")
	}
	return text, nil
}
