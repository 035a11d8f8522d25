// Package testhelpers builds the fakes shared by the unit and end-to-end
// tests: an in-memory CRM emulator and a scripted Gemini endpoint.
package testhelpers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/johnwards/crmproxy/internal/crmfake"
)

// NewTestDB returns a migrated and seeded in-memory emulator database that is
// closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := crmfake.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewCRM starts the emulator on an httptest server. Pass a token to require
// bearer auth.
func NewCRM(t *testing.T, token string) (*httptest.Server, *crmfake.Server) {
	t.Helper()

	s := crmfake.NewServer(NewTestDB(t),
		crmfake.WithAuthToken(token),
		crmfake.WithLogger(zaptest.NewLogger(t)),
	)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

// GeminiReply is one scripted generateContent answer. A zero Status means 200.
// Delay holds the answer back unless the caller gives up first.
type GeminiReply struct {
	Status int
	Text   string
	Delay  time.Duration
}

// Gemini is a scripted generateContent endpoint. Replies are served in order;
// the last one repeats.
type Gemini struct {
	*httptest.Server

	mu      sync.Mutex
	replies []GeminiReply
	prompts []string
}

// NewGemini starts a fake model endpoint. Point insight.GeminiConfig.BaseURL
// at URL + "/".
func NewGemini(t *testing.T, replies ...GeminiReply) *Gemini {
	t.Helper()

	g := &Gemini{replies: replies}
	g.Server = httptest.NewServer(http.HandlerFunc(g.serve))
	t.Cleanup(g.Close)
	return g
}

// Prompts returns every prompt received so far.
func (g *Gemini) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

func (g *Gemini) next(prompt string) GeminiReply {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return GeminiReply{Text: `{"leadScore": 50, "insight": "Follow up this week."}`}
	}
	r := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return r
}

func (g *Gemini) serve(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, ":generateContent") {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	b, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(b, &req)
	var prompt strings.Builder
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			prompt.WriteString(p.Text)
		}
	}

	reply := g.next(prompt.String())
	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if reply.Status != 0 && reply.Status != http.StatusOK {
		w.WriteHeader(reply.Status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    reply.Status,
				"message": reply.Text,
				"status":  http.StatusText(reply.Status),
			},
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"role":  "model",
				"parts": []any{map[string]any{"text": reply.Text}},
			},
			"finishReason": "STOP",
		}},
	})
}
