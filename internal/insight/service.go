package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/johnwards/crmproxy/internal/domain"
	"github.com/johnwards/crmproxy/internal/metrics"
)

// Generator produces a single-turn text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNoContactData is returned when the caller supplied nothing to analyze.
var ErrNoContactData = errors.New("missing contactData")

const promptTemplate = "Act as a Sales Intelligence AI. Analyze this lead: %s. " +
	"Return a JSON object with two fields: leadScore (0-100) and insight " +
	"(a 1-sentence sales tip based on their job title). Ensure the response is valid JSON."

// BuildPrompt embeds contactData, compacted, in the lead-scoring prompt.
func BuildPrompt(contactData json.RawMessage) (string, error) {
	if IsEmpty(contactData) {
		return "", ErrNoContactData
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, contactData); err != nil {
		return "", fmt.Errorf("compact contactData: %w", err)
	}
	return fmt.Sprintf(promptTemplate, buf.String()), nil
}

// IsEmpty reports whether raw is absent or a JSON falsy value (null, false,
// 0, ""), none of which describe a lead.
func IsEmpty(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

// Service turns contact data into a fresh insight on every call.
type Service struct {
	gen Generator
	log *zap.Logger
}

// NewService creates a Service backed by gen.
func NewService(gen Generator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gen: gen, log: log}
}

// Analyze prompts the model with contactData and extracts its answer. Model
// output that cannot be parsed yields a *ParseError; the offending text is
// logged here.
func (s *Service) Analyze(ctx context.Context, contactData json.RawMessage) (*domain.Insight, error) {
	prompt, err := BuildPrompt(contactData)
	if err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate insight: %w", err)
	}

	in, err := Extract(text)
	if err != nil {
		metrics.InsightParseFailures.Inc()
		s.log.Error("model response did not contain an insight",
			zap.Error(err),
			zap.String("text", text),
		)
		return nil, err
	}
	return in, nil
}
