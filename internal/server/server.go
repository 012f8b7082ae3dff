// Package server exposes the HTTP API for syncing, uploading, and listing
// field reports.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/manp-monitoring/report-service/internal/drive"
	"github.com/manp-monitoring/report-service/internal/store"
)

// Config holds server configuration.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	UploadsDir         string
}

// Uploader pushes one report photo to remote storage and returns the stored
// file's metadata.
type Uploader interface {
	UploadReportPhoto(ctx context.Context, userID, stamp, filename, mimeType string, data []byte) (*drive.File, error)
}

// Server is the HTTP server for the report service.
type Server struct {
	config   Config
	store    store.Store
	logger   *slog.Logger
	uploader Uploader
	tokens   *drive.TokenStore
	router   chi.Router
	schema   *reportSchema
}

// NewServer creates a Server from the given config and store.
func NewServer(cfg Config, s store.Store, logger *slog.Logger) (*Server, error) {
	schema, err := compileReportSchema()
	if err != nil {
		return nil, err
	}

	srv := &Server{
		config: cfg,
		store:  s,
		logger: logger,
		schema: schema,
	}
	srv.router = srv.routes()
	return srv, nil
}

// SetUploader enables remote photo uploads. When no uploader is set, photos
// are kept in the local staging directory only.
func (s *Server) SetUploader(u Uploader) {
	s.uploader = u
}

// SetTokenStore wires the credential store used by the authorization
// endpoints.
func (s *Server) SetTokenStore(ts *drive.TokenStore) {
	s.tokens = ts
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", s.handleLiveness)
	r.Post("/sync", s.handleSync)
	r.Get("/reports/{userID}", s.handleListReports)
	r.Post("/upload-report", s.handleUploadReport)
	r.Get("/auth", s.handleAuth)
	r.Get("/oauth2callback", s.handleOAuthCallback)

	return r
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("MANP monitoring report service is live."))
}
