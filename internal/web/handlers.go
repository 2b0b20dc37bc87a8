package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datamapper/internal/core"
)

// healthResponse reports server state for probes and dashboards.
type healthResponse struct {
	Status   string                 `json:"status"`
	Sessions int                    `json:"sessions"`
	Queries  int                    `json:"queries"`
	Database bool                   `json:"database"`
	Loads    core.LoadLimiterStatus `json:"loads"`
}

// handleHealth reports liveness plus session and load counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.service.SessionCount(),
		Queries:  core.QueryCount(),
		Database: s.service.HasDatabase(),
		Loads:    s.service.Limiter().Status(),
	})
}

// handleListQueries returns the saved query catalog, grouped with
// ?grouped=true.
func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	if parseBoolParam(r, "grouped") {
		writeJSON(w, r, http.StatusOK, s.service.ListQueriesByGroup())
		return
	}
	writeJSON(w, r, http.StatusOK, s.service.ListQueries())
}

// handleOpenQuerySession runs a saved query and opens a session over its rows.
func (s *Server) handleOpenQuerySession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(w, r, s.cfg.Server.MaxBodySize, &req); err != nil {
		respondError(w, r, err)
		return
	}

	info, err := s.service.OpenQuerySession(r.Context(), req.Query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

// handleListSessions returns every open session.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.ListSessions())
}

// handleGetSession returns one session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// handleCloseSession discards a session and its processor.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CloseSession(chi.URLParam(r, "sessionID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
