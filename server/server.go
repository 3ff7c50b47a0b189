// Package server provides the HTTP front-end: the input form, the
// translation page and the JSON analysis endpoint.
package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/ZaguanLabs/honyaku"
	"github.com/ZaguanLabs/honyaku/cache"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultMaxUploadBytes caps request bodies when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// Server serves the web front-end over a honyaku.Service.
type Server struct {
	svc            *honyaku.Service
	logger         zerolog.Logger
	debug          bool
	maxUploadBytes int64
	metrics        http.Handler
	templates      *template.Template
	handler        http.Handler
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and handler errors.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDebug enables timing output on the translation page and the
// /debug/cache endpoint.
func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.debug = debug
	}
}

// WithMaxUploadBytes limits the size of request bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server for svc.
func New(svc *honyaku.Service, opts ...Option) (*Server, error) {
	s := &Server{
		svc:            svc,
		logger:         zerolog.Nop(),
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = tmpl

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleTranslate)
	mux.HandleFunc("GET /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.debug {
		if snap, ok := svc.Cache().(cache.Snapshotter); ok {
			mux.Handle("GET /debug/cache", s.handleCacheDump(cache.NewExporter(snap)))
		}
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	s.handler = s.middleware(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
