package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/peternagy/mongoscope/internal/core"
)

// handleConnect tests a connection string and returns the server's
// database summaries. This is the validation contract the dashboard
// calls both from the connect dialog and when refreshing the sidebar.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI string `json:"uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "MongoDB URI is required")
		return
	}

	ctx, cancel := core.ContextWithConnectTimeout(r.Context())
	defer cancel()

	databases, err := s.validator.Validate(ctx, req.URI)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Seed the summaries cache when this is the active profile's URI.
	// Stale fetches for a previously active URI are discarded inside.
	s.registry.SetDatabases(req.URI, databases)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"databases": databases,
	})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "MongoDB URI is required")
		return
	}
	dbName := mux.Vars(r)["dbName"]

	// Cached summaries belong to the active profile; a hit for its URI
	// saves the dial. Any other URI goes to the server.
	if active, ok := s.registry.Active(); ok && active.URI == uri {
		if collections, ok := s.registry.Collections(dbName); ok {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success":     true,
				"collections": collections,
			})
			return
		}
	}

	ctx, cancel := core.ContextWithTimeout(r.Context())
	defer cancel()

	collections, err := s.explorer.ListCollections(ctx, uri, dbName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.registry.SetCollections(uri, dbName, collections)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"collections": collections,
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	uri := query.Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "MongoDB URI is required")
		return
	}
	vars := mux.Vars(r)

	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("pageSize"))

	ctx, cancel := core.ContextWithTimeout(r.Context())
	defer cancel()

	result, err := s.finder.FindDocuments(ctx, uri, vars["dbName"], vars["collName"],
		query.Get("search"), page, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"documents":  result.Documents,
		"total":      result.Total,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages,
	})
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "MongoDB URI is required")
		return
	}
	vars := mux.Vars(r)

	ctx, cancel := core.ContextWithTimeout(r.Context())
	defer cancel()

	details, err := s.explorer.CollectionDetails(ctx, uri, vars["dbName"], vars["collName"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   details.Stats,
		"indexes": details.Indexes,
		"schema":  details.Schema,
	})
}
