package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/johnwards/crmproxy/internal/domain"
)

// ErrParse matches every *ParseError via errors.Is.
var ErrParse = errors.New("failed to parse JSON from AI response")

// ParseError reports model output that did not contain a usable insight
// object. Text is the full model output, kept for server-side logging.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
}

// Is makes errors.Is(err, ErrParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Extract pulls the first JSON object carrying both leadScore and insight out
// of free-form model text. Prose around the object and markdown fences are
// tolerated. Candidates are balanced {...} spans found by a string-aware
// brace scan, tried left to right.
func Extract(text string) (*domain.Insight, error) {
	const noObject = "no JSON object in model output"
	reason := noObject

	for pos := 0; pos < len(text); {
		start := strings.IndexByte(text[pos:], '{')
		if start == -1 {
			break
		}
		start += pos

		end := matchBrace(text, start)
		if end == -1 {
			if reason == noObject {
				reason = "unbalanced braces in model output"
			}
			pos = start + 1
			continue
		}

		in, why := decode(text[start : end+1])
		if in != nil {
			return in, nil
		}
		reason = why
		pos = start + 1
	}

	return nil, &ParseError{Text: text, Reason: reason}
}

// matchBrace returns the index of the '}' closing the '{' at start, ignoring
// braces inside JSON strings, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// decode parses one candidate. On failure it returns a reason instead.
func decode(candidate string) (*domain.Insight, string) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, "invalid JSON: " + err.Error()
	}

	rawScore, ok := obj["leadScore"]
	if !ok {
		return nil, "missing leadScore"
	}
	score, ok := toFloat(rawScore)
	if !ok {
		return nil, fmt.Sprintf("leadScore is not a number: %v", rawScore)
	}

	rawTip, ok := obj["insight"]
	if !ok {
		return nil, "missing insight"
	}
	tip, ok := rawTip.(string)
	if !ok {
		return nil, fmt.Sprintf("insight is not a string: %v", rawTip)
	}

	delete(obj, "leadScore")
	delete(obj, "insight")
	var extra map[string]any
	if len(obj) > 0 {
		extra = obj
	}
	return &domain.Insight{LeadScore: score, Insight: tip, Extra: extra}, ""
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil && finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil && finite(f)
	default:
		return 0, false
	}
}

// finite rejects NaN and the infinities, which ParseFloat accepts but JSON
// cannot encode.
func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
