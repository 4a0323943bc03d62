// Package server exposes the dashboard HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/registry"
	"github.com/peternagy/mongoscope/internal/types"
)

// Validator tests a connection string and returns database summaries.
type Validator interface {
	Validate(ctx context.Context, uri string) ([]types.DatabaseInfo, error)
}

// Explorer introspects databases and collections.
type Explorer interface {
	ListCollections(ctx context.Context, uri, dbName string) ([]types.CollectionInfo, error)
	CollectionDetails(ctx context.Context, uri, dbName, collName string) (*types.CollectionDetails, error)
}

// Finder lists collection documents with search and pagination.
type Finder interface {
	FindDocuments(ctx context.Context, uri, dbName, collName, search string, page, pageSize int) (*types.DocumentPage, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	Version        string
}

// Server wires the registry and the MongoDB services into the REST API
// the dashboard consumes.
type Server struct {
	cfg       Config
	registry  *registry.Registry
	validator Validator
	explorer  Explorer
	finder    Finder
	logger    *zap.Logger
	http      *http.Server
}

// New creates a server. Origins default to allowing any origin, which
// suits a dashboard served from a dev server on another port.
func New(cfg Config, reg *registry.Registry, validator Validator, explorer Explorer, finder Finder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		cfg:       cfg,
		registry:  reg,
		validator: validator,
		explorer:  explorer,
		finder:    finder,
		logger:    logger,
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      c.Handler(s.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, instrumentRequests)

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Connection registry
	r.HandleFunc("/api/connections", s.handleListConnections).Methods("GET")
	r.HandleFunc("/api/connections", s.handleCreateConnection).Methods("POST")
	r.HandleFunc("/api/connections/active", s.handleClearActive).Methods("DELETE")
	r.HandleFunc("/api/connections/{id}", s.handleEditConnection).Methods("PUT")
	r.HandleFunc("/api/connections/{id}", s.handleRemoveConnection).Methods("DELETE")
	r.HandleFunc("/api/connections/{id}/activate", s.handleActivateConnection).Methods("POST")

	// MongoDB introspection (URI-addressed, matching the dashboard contracts)
	r.HandleFunc("/api/mongodb/connect", s.handleConnect).Methods("POST")
	r.HandleFunc("/api/mongodb/databases/{dbName}/collections", s.handleCollections).Methods("GET")
	r.HandleFunc("/api/mongodb/databases/{dbName}/collections/{collName}/documents", s.handleDocuments).Methods("GET")
	r.HandleFunc("/api/mongodb/databases/{dbName}/collections/{collName}/info", s.handleCollectionInfo).Methods("GET")

	return r
}

// ListenAndServe runs the server until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, hasActive := s.registry.Active()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"service":          "mongoscope",
		"version":          s.cfg.Version,
		"timestamp":        time.Now().UTC(),
		"connections":      len(s.registry.List()),
		"activeConnection": hasActive,
	})
}
