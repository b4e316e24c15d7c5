// Package server exposes the content catalog over JSON HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/health"
	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/resources"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

var (
	ErrNilCatalog  = errors.New("server: catalog is nil")
	ErrNilResolver = errors.New("server: resolver is nil")
)

// Config configures a Server.
type Config struct {
	Catalog  *resources.Catalog
	Resolver *auth.Resolver

	// Health is served at /livez, /healthz and /healthz/{name} when set.
	Health *health.Aggregator

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	Logger observe.Logger

	// MaxBodyBytes caps request bodies. Default: 1 MiB.
	MaxBodyBytes int64
}

// Server routes HTTP requests to the catalog.
type Server struct {
	catalog *resources.Catalog
	logger  observe.Logger
	maxBody int64
	handler http.Handler
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, ErrNilCatalog
	}
	if cfg.Resolver == nil {
		return nil, ErrNilResolver
	}
	s := &Server{
		catalog: cfg.Catalog,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
	}
	if s.logger == nil {
		s.logger = observe.NopLogger()
	}
	if s.maxBody <= 0 {
		s.maxBody = 1 << 20
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /ideas", s.listIdeas)
	api.HandleFunc("GET /ideas/{id}", s.getIdea)
	api.HandleFunc("POST /ideas", s.createIdea)
	api.HandleFunc("PUT /ideas/{id}", s.updateIdea)
	api.HandleFunc("DELETE /ideas/{id}", s.deleteIdea)
	api.HandleFunc("GET /ideas/{id}/comments", s.listComments)
	api.HandleFunc("POST /ideas/{id}/comments", s.createComment)
	api.HandleFunc("PUT /ideas/{id}/comments/{commentID}", s.updateComment)
	api.HandleFunc("DELETE /ideas/{id}/comments/{commentID}", s.deleteComment)
	api.HandleFunc("GET /ideas/{id}/wants", s.reaction(s.catalog.Wants))
	api.HandleFunc("POST /ideas/{id}/wants", s.reaction(s.catalog.ToggleWant))
	api.HandleFunc("GET /profiles/{id}", s.getProfile)
	api.HandleFunc("PUT /profiles/{id}", s.updateProfile)
	api.HandleFunc("GET /posts", s.listPosts)
	api.HandleFunc("GET /posts/{id}", s.getPost)
	api.HandleFunc("POST /posts", s.createPost)
	api.HandleFunc("PUT /posts/{id}", s.updatePost)
	api.HandleFunc("DELETE /posts/{id}", s.deletePost)
	api.HandleFunc("GET /posts/{id}/likes", s.reaction(s.catalog.Likes))
	api.HandleFunc("POST /posts/{id}/likes", s.reaction(s.catalog.ToggleLike))
	api.HandleFunc("POST /posts/{id}/saves", s.reaction(s.catalog.ToggleSave))

	root := http.NewServeMux()
	root.Handle("/", auth.Middleware(cfg.Resolver)(api))
	if cfg.Health != nil {
		health.RegisterHandlers(root, cfg.Health)
	}
	if cfg.Metrics != nil {
		root.Handle("GET /metrics", cfg.Metrics)
	}

	s.handler = s.requestID(s.accessLog(root))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on srv until ctx is done, then shuts down gracefully
// within shutdownTimeout.
func ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = ulid.Make().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "http request",
			observe.F("request_id", RequestID(r.Context())),
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", rec.status),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
