package domain

import "encoding/json"

// Insight is a model-generated lead assessment. It is produced per request and
// never stored.
type Insight struct {
	// LeadScore is nominally 0-100; the range is not enforced.
	LeadScore float64
	Insight   string
	// Extra holds any further fields the model returned.
	Extra map[string]any
}

// MarshalJSON renders the insight as one flat object, extra fields included.
func (in Insight) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(in.Extra)+2)
	for k, v := range in.Extra {
		out[k] = v
	}
	out["leadScore"] = in.LeadScore
	out["insight"] = in.Insight
	return json.Marshal(out)
}
