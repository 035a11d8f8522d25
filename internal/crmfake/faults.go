package crmfake

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Fault replaces the response to the next Count requests matching Method and
// Path with Status and Body. It is usually an error, but a 2xx canned body is
// allowed. Count 0 means one request. DelayMS holds the response back.
type Fault struct {
	Method  string          `json:"method"`
	Path    string          `json:"path"`
	Status  int             `json:"status"`
	Body    json.RawMessage `json:"body"`
	Count   int             `json:"count"`
	DelayMS int             `json:"delayMs"`
}

type faultSet struct {
	mu     sync.Mutex
	faults []*Fault
}

func (fs *faultSet) add(f Fault) {
	if f.Count <= 0 {
		f.Count = 1
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = append(fs.faults, &f)
}

func (fs *faultSet) clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = nil
}

// take consumes one use of the first fault matching r.
func (fs *faultSet) take(r *http.Request) (Fault, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i, f := range fs.faults {
		if !strings.EqualFold(f.Method, r.Method) || f.Path != r.URL.Path {
			continue
		}
		out := *f
		f.Count--
		if f.Count == 0 {
			fs.faults = append(fs.faults[:i], fs.faults[i+1:]...)
		}
		return out, true
	}
	return Fault{}, false
}

// middleware short-circuits requests that match an injected fault. Admin
// paths are never faulted.
func (fs *faultSet) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, adminPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		f, ok := fs.take(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.DelayMS > 0 {
			select {
			case <-time.After(time.Duration(f.DelayMS) * time.Millisecond):
			case <-r.Context().Done():
				return
			}
		}
		if len(f.Body) == 0 {
			writeError(w, r, f.Status, categoryFor(f.Status), http.StatusText(f.Status))
			return
		}
		w.Header().Set("Content-Type", "application/json;charset=utf-8")
		w.WriteHeader(f.Status)
		_, _ = w.Write(f.Body)
	})
}

func categoryFor(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CategoryRateLimits
	case status == http.StatusUnauthorized:
		return CategoryInvalidAuthentication
	case status == http.StatusNotFound:
		return CategoryObjectNotFound
	case status >= 500:
		return CategoryInternalError
	default:
		return CategoryValidationError
	}
}
