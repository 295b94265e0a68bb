// Package httpapi is the REST surface of the gateway.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// ServerConfig holds the listener and transport settings.
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	AllowedOrigins []string
	// Limiter enables per-client rate limiting when set.
	Limiter Limiter
	Logger  zerolog.Logger
}

// Server binds the chi router to the configured address and supports
// graceful shutdown.
type Server struct {
	router  chi.Router
	handler *Handler
	addr    string
	httpSrv *http.Server
}

// NewServer creates a Server serving handler. Zero timeouts leave the
// corresponding http.Server field at its default.
func NewServer(handler *Handler, cfg ServerConfig) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler)
	if cfg.Limiter != nil {
		r.Use(rateLimit(cfg.Limiter))
	}
	r.Use(maxBody(cfg.MaxBodySize))

	r.Post("/clientes", handler.HandleCustomerUpsert)
	r.Get("/clientes/all", handler.HandleCustomerList)
	r.Get("/cliente/{celular}", handler.HandleCustomerGet)
	r.Delete("/cliente/{celular}", handler.HandleCustomerDelete)

	r.Post("/prompt", handler.HandlePromptCreate)
	r.Get("/prompt", handler.HandlePromptList)

	r.Post("/tokens", handler.HandleTokens)
	r.Post("/financeiro", handler.HandleFinance)

	r.Get("/pacotes/padrao", handler.HandlePackagesDefault)
	r.Get("/pacotes/palavra-chave", handler.HandlePackagesKeyword)

	r.Post("/threads", handler.HandleThreadUpsert)
	r.Get("/threads", handler.HandleThreadList)
	r.Get("/threads/all", handler.HandleThreadListAll)
	r.Delete("/threads", handler.HandleThreadDelete)

	r.Get("/relatorio", handler.HandleReport)
	r.Get("/relatorio/contatos", handler.HandleReportContacts)

	r.Get("/health", handler.HandleHealth)
	r.Get("/health/ready", handler.HandleReady)

	srv := &Server{
		router:  r,
		handler: handler,
		addr:    cfg.Addr,
	}
	srv.httpSrv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return srv
}

// Router returns the underlying chi.Router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start listens for HTTP connections. It blocks until the server is shut
// down or fails.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
