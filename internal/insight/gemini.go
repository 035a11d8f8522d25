package insight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/johnwards/crmproxy/internal/metrics"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash-lite"

// UpstreamError is a failure reported by the model API.
type UpstreamError struct {
	Status  int
	Message string
	Detail  any
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gemini: %s (status %d)", e.Message, e.Status)
}

// StatusCode returns the model API's HTTP status.
func (e *UpstreamError) StatusCode() int { return e.Status }

// UpstreamMessage returns the model API's message.
func (e *UpstreamError) UpstreamMessage() string { return e.Message }

// Details returns the model API's error details.
func (e *UpstreamError) Details() any { return e.Detail }

// GeminiConfig configures the Gemini generator.
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint; empty uses Google's default.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Gemini implements Generator with Google's GenAI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Generate sends prompt as a single user turn and returns the response text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		status := 0
		var apiErr genai.APIError
		var apiErrPtr *genai.APIError
		switch {
		case errors.As(err, &apiErr):
			status = apiErr.Code
			err = &UpstreamError{Status: apiErr.Code, Message: apiErr.Message, Detail: apiErr.Details}
		case errors.As(err, &apiErrPtr):
			status = apiErrPtr.Code
			err = &UpstreamError{Status: apiErrPtr.Code, Message: apiErrPtr.Message, Detail: apiErrPtr.Details}
		case errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded):
			// The SDK does not always wrap the context error.
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		metrics.ObserveUpstream("gemini", "generate_content", status, started)
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	metrics.ObserveUpstream("gemini", "generate_content", http.StatusOK, started)

	return resp.Text(), nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }
