package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleSaveConfig stores the session's current config under a name:
// {"name": "east only"}.
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, s.cfg.Server.MaxBodySize, &req); err != nil {
		respondError(w, r, err)
		return
	}

	saved, err := s.service.SaveConfig(r.Context(), chi.URLParam(r, "sessionID"), req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, saved)
}

// handleListConfigs lists saved configs, newest first, optionally for one
// query: ?query=monthly_sales.
func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, configs)
}

// handleGetConfig returns one saved config.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	saved, err := s.service.GetConfig(r.Context(), chi.URLParam(r, "configID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

// handleDeleteConfig removes a saved config.
func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteConfig(r.Context(), chi.URLParam(r, "configID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplySavedConfig replays a saved config onto the session.
func (s *Server) handleApplySavedConfig(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.ApplySavedConfig(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "configID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}
