// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"code-verification-service/internal/infra/logging"
	"code-verification-service/internal/usecase"
)

// HealthCheck probes the service's dependencies (store, redis).
type HealthCheck func(ctx context.Context) error

type Server struct {
	verifyUC *usecase.VerifyUseCase
	adminUC  *usecase.AdminUseCase
	secret   string
	health   HealthCheck
	log      *zerolog.Logger
}

func NewServer(verifyUC *usecase.VerifyUseCase, adminUC *usecase.AdminUseCase, secret string, logger *zerolog.Logger) *Server {
	return &Server{
		verifyUC: verifyUC,
		adminUC:  adminUC,
		secret:   secret,
		log:      logger,
	}
}

// Router builds the chi mux. The admin read endpoints sit behind the shared
// secret; /check is open (identity is an unverified claim by design).
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/check", s.handleCheck)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept"},
		}))
		r.Use(s.requireSecret)
		r.Get("/logs", s.handleLogs)
		r.Get("/active_codes", s.handleActiveCodes)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// SetHealthCheck installs the dependency probe run by /health.
func (s *Server) SetHealthCheck(fn HealthCheck) { s.health = fn }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requireSecret guards admin reads with the shared secret from config.
// A missing server-side secret fails closed.
func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			s.log.Error().Msg("admin secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("secret") != s.secret {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context())))
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
