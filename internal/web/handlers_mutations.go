package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// handleApply applies one operation in its wire shape, for example
//
//	{"type": "filter", "column": "region", "operator": "equals", "value": "east"}
//
// With ?validate=true the operation is checked against the current schema
// and rejected with 400 instead of being applied permissively.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var op processor.Operation
	if err := decodeJSON(w, r, s.cfg.Server.MaxBodySize, &op); err != nil {
		respondError(w, r, err)
		return
	}

	info, err := s.service.Apply(r.Context(), chi.URLParam(r, "sessionID"), op, parseBoolParam(r, "validate"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// handleListOperations returns the operation log in application order.
func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := s.service.Operations(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ops)
}

// handleUndo drops the last operation.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Undo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// handleReset restores the loaded data and clears the log.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

// handleExportConfig returns the session config as JSON, or YAML with
// ?format=yaml.
func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.service.ExportConfig(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	if !isYAML(r) {
		writeJSON(w, r, http.StatusOK, cfg)
		return
	}

	body, err := cfg.EncodeYAML()
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleImportConfig replays a JSON or YAML config onto the session.
func (s *Server) handleImportConfig(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.Server.MaxBodySize)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var cfg processor.Config
	if isYAML(r) || !json.Valid(body) {
		cfg, err = processor.ParseConfigYAML(body)
	} else {
		cfg, err = processor.ParseConfig(body)
	}
	if err != nil {
		respondError(w, r, errWithBody(err))
		return
	}

	info, err := s.service.ImportConfig(r.Context(), chi.URLParam(r, "sessionID"), cfg)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}
