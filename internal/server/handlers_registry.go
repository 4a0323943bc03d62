package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/peternagy/mongoscope/internal/core"
	"github.com/peternagy/mongoscope/internal/credential"
	"github.com/peternagy/mongoscope/internal/types"
)

// connectionRequest is the create/edit payload for a connection profile.
type connectionRequest struct {
	Name   string                  `json:"name"`
	URI    string                  `json:"uri"`
	Params *types.ConnectionParams `json:"params,omitempty"`
}

// validate performs the synchronous checks that must fail before any
// network I/O: non-empty name and a recognizable URI scheme.
func (req *connectionRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "connection name is required"
	}
	if !credential.HasMongoScheme(req.URI) {
		return "invalid connection string format"
	}
	return ""
}

// handleListConnections returns the profile list, the active selection
// and the database summaries cached for it, so a reloading dashboard can
// repopulate its sidebar without re-dialing the server.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	var active *types.ConnectionProfile
	if p, ok := s.registry.Active(); ok {
		active = &p
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections":      s.registry.List(),
		"activeConnection": active,
		"databases":        s.registry.Databases(),
	})
}

// handleCreateConnection validates the profile against the live endpoint,
// then registers it as the new active connection. A profile that fails
// the connectivity test is not added at all.
func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := core.ContextWithConnectTimeout(r.Context())
	defer cancel()

	databases, err := s.validator.Validate(ctx, req.URI)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	now := time.Now()
	profile := s.registry.Add(types.ConnectionProfile{
		ID:            uuid.New().String(),
		Name:          req.Name,
		URI:           req.URI,
		Status:        types.StatusConnected,
		LastConnected: &now,
		Params:        req.Params,
	})
	s.registry.SetDatabases(req.URI, databases)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"connection": profile,
		"databases":  databases,
	})
}

// handleEditConnection re-validates the edited URI the same way the
// create path does. A failed test leaves the stored profile edited but
// marked with an error status, so the user can fix it from the UI.
func (s *Server) handleEditConnection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.registry.Edit(id, types.ProfileUpdate{
		Name:   &req.Name,
		URI:    &req.URI,
		Params: req.Params,
	})

	ctx, cancel := core.ContextWithConnectTimeout(r.Context())
	defer cancel()

	databases, err := s.validator.Validate(ctx, req.URI)
	if err != nil {
		s.registry.UpdateStatus(id, types.StatusError, err.Error())
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.registry.UpdateStatus(id, types.StatusConnected, "")
	s.registry.SetDatabases(req.URI, databases)

	profile, _ := s.registry.Get(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"connection": profile,
		"databases":  databases,
	})
}

func (s *Server) handleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	s.registry.Remove(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateConnection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.registry.Get(id); !ok {
		writeError(w, http.StatusNotFound, "connection not found")
		return
	}

	s.registry.SetActive(id)
	profile, _ := s.registry.Get(id)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"connection": profile,
	})
}

func (s *Server) handleClearActive(w http.ResponseWriter, r *http.Request) {
	s.registry.SetActive("")
	w.WriteHeader(http.StatusNoContent)
}
