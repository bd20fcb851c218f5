// Package httpapi exposes the tutoring pipeline over HTTP. The surface
// is small: a health probe, a state read, and the two session
// endpoints. Authentication, per-caller rate limiting and error-to-
// status mapping live here; everything behind it speaks domain types.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cloudtutor/cloudtutor/internal/auth"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/pipeline"
	"github.com/cloudtutor/cloudtutor/internal/ratelimit"
	"github.com/cloudtutor/cloudtutor/internal/state"
)

// Config wires a Server.
type Config struct {
	Orchestrator *pipeline.Orchestrator

	// OfflineOrchestrator serves requests that ask for offline mode.
	// Optional; when nil such requests use Orchestrator as-is.
	OfflineOrchestrator *pipeline.Orchestrator

	// Offline marks the whole deployment as model-free. Reported back
	// to clients as offline_used.
	Offline bool

	Store      state.Store
	Authorizer auth.Authorizer
	Limiter    *ratelimit.Limiter

	// AllowedOrigins configures CORS. Empty disables cross-origin access.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server handles the HTTP surface. Construct with New, mount Router.
type Server struct {
	orch        *pipeline.Orchestrator
	offlineOrch *pipeline.Orchestrator
	offline     bool
	store       state.Store
	authorizer  auth.Authorizer
	limiter     *ratelimit.Limiter
	origins     []string
	logger      *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authorizer := cfg.Authorizer
	if authorizer == nil {
		authorizer = auth.Anonymous{}
	}
	offlineOrch := cfg.OfflineOrchestrator
	if offlineOrch == nil {
		offlineOrch = cfg.Orchestrator
	}
	return &Server{
		orch:        cfg.Orchestrator,
		offlineOrch: offlineOrch,
		offline:     cfg.Offline,
		store:       cfg.Store,
		authorizer:  authorizer,
		limiter:     cfg.Limiter,
		origins:     cfg.AllowedOrigins,
		logger:      logger,
	}
}

// Router builds the full middleware and route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(s.requestLogger)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/v1/state/{user_id}", s.handleGetState)
	r.Post("/v1/session/start", s.handleStartSession)
	r.Post("/v1/session/submit", s.handleSubmitSession)
	return r
}

// guard authenticates and rate-limits a request. A false return means
// the response has already been written.
func (s *Server) guard(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	id, err := s.authorizer.Authenticate(r)
	if err != nil {
		var forbidden *auth.Forbidden
		if errors.As(err, &forbidden) {
			writeError(w, http.StatusForbidden, forbidden.Reason)
			return nil, false
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}

	if retry, allowed := s.limiter.Check(auth.RateLimitKey(id, r.RemoteAddr)); !allowed {
		w.Header().Set("Retry-After", itoa(retry))
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please retry later.")
		return nil, false
	}
	return id, true
}

// writePipelineError maps domain failures to statuses: caller mistakes
// are 400, a dead store is 503, anything else is a 500.
func (s *Server) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}
	var unavailable *state.StoreUnavailable
	if errors.As(err, &unavailable) {
		s.logger.Error("state store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "State store is unavailable. Please retry later.")
		return
	}
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
