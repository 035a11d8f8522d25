// Package crmfake emulates the part of the HubSpot CRM v3 API the gateway
// consumes, backed by SQLite. It is a stand-in for HubSpot in tests and
// offline development; it never caches real CRM data.
package crmfake

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/johnwards/crmproxy/internal/api"
)

const adminPrefix = "/_crmfake/"

const authErrorMessage = "Authentication credentials not found. This API supports OAuth 2.0 authentication and you can find more details at https://developers.hubspot.com/docs/methods/auth/oauth-overview"

// Server is the emulator's HTTP surface.
type Server struct {
	db     *sql.DB
	store  *Store
	log    *zap.Logger
	token  string
	faults faultSet
}

// Option configures a Server.
type Option func(*Server)

// WithAuthToken requires "Authorization: Bearer <token>" on CRM routes.
func WithAuthToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.log = l }
}

// NewServer builds a Server on a migrated and seeded database.
func NewServer(db *sql.DB, opts ...Option) *Server {
	s := &Server{db: db, store: NewStore(db), log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store exposes the backing store for fixtures.
func (s *Server) Store() *Store { return s.store }

// Handler returns the routed and wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /crm/v3/objects/{objectType}", s.listObjects)
	mux.HandleFunc("POST /crm/v3/objects/{objectType}", s.createObject)
	mux.HandleFunc("GET /crm/v3/objects/{objectType}/{objectId}", s.getObject)
	mux.HandleFunc("POST /crm/v3/objects/{objectType}/batch/read", s.batchRead)
	mux.HandleFunc("GET /crm/v3/objects/{objectType}/{objectId}/associations/{toObjectType}", s.listAssociations)

	mux.HandleFunc("GET /crm/v3/pipelines/{objectType}", s.listPipelines)
	mux.HandleFunc("POST /crm/v3/pipelines/{objectType}", s.createPipeline)
	mux.HandleFunc("DELETE /crm/v3/pipelines/{objectType}/{pipelineId}", s.deletePipeline)

	mux.HandleFunc("POST "+adminPrefix+"reset", s.reset)
	mux.HandleFunc("POST "+adminPrefix+"faults", s.addFault)
	mux.HandleFunc("DELETE "+adminPrefix+"faults", s.clearFaults)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CategoryObjectNotFound, "No route found for "+r.Method+" "+r.URL.Path)
	})

	return api.Chain(mux,
		api.RequestID(),
		s.recovery,
		api.AccessLog(s.log, zapcore.DebugLevel),
		s.auth,
		s.faults.middleware,
	)
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
				writeError(w, r, http.StatusInternalServerError, CategoryInternalError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" || strings.HasPrefix(r.URL.Path, adminPrefix) {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			writeError(w, r, http.StatusUnauthorized, CategoryInvalidAuthentication, authErrorMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}

