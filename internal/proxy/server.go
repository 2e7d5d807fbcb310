// Package proxy exposes the frame get/action proxy endpoints and the
// supporting API surface of the framehost server.
package proxy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openframes/framehost/internal/config"
	"github.com/openframes/framehost/internal/debughub"
	"github.com/openframes/framehost/internal/mcptool"
	"github.com/openframes/framehost/internal/metrics"
	"github.com/openframes/framehost/internal/sessionstore"
	"github.com/openframes/framehost/internal/version"
)

// Options carries the optional collaborators of the server.
type Options struct {
	Sessions sessionstore.Store
	Hub      *debughub.Hub
	Client   *http.Client
	Registry *prometheus.Registry
}

// New constructs the HTTP handler for the framehost server.
func New(cfg config.ServerConfig, opts Options) http.Handler {
	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}
	for _, m := range MiddlewareChain() {
		r.Use(m)
	}

	preg := opts.Registry
	if preg == nil {
		preg = prometheus.NewRegistry()
		metrics.Register(preg)
		metrics.SetServerBuildInfo(version.Version, version.BuildSHA, version.BuildDate)
	}

	api := NewAPI(cfg, opts.Client, opts.Sessions, opts.Hub)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/frames", api.GetFrames)
	r.Post("/frames", api.PostFrames)

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/openapi.json", OpenAPIHandler())
		ar.Group(func(g chi.Router) {
			if cfg.APIKey != "" {
				g.Use(apiAuthMiddleware(cfg.APIKey))
			}
			g.Get("/state", StateHandler())
			g.Route("/sessions", func(sr chi.Router) {
				sr.Put("/{session_id}", api.SaveSession)
				sr.Get("/{session_id}", api.GetSession)
				sr.Delete("/{session_id}", api.DeleteSession)
			})
		})
	})

	if cfg.DebugHub && opts.Hub != nil {
		r.Get("/debug/ws", opts.Hub.Handler())
	}
	if cfg.MCPTools {
		r.Mount("/mcp", mcptool.NewHTTPHandler(mcptool.Options{
			Version:      version.Version,
			HTTPClient:   opts.Client,
			StrictFrames: cfg.StrictFrames,
		}))
	}

	if cfg.MetricsAddr == fmt.Sprintf(":%d", cfg.Port) {
		r.Handle("/metrics", promhttp.HandlerFor(preg, promhttp.HandlerOpts{}))
	}

	return r
}

// apiAuthMiddleware guards the API group with a bearer key.
func apiAuthMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := ""
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				provided = strings.TrimPrefix(auth, "Bearer ")
			}
			if provided != key {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
