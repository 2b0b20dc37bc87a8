package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/datamapper/internal/export"
	"github.com/JonMunkholm/datamapper/internal/logging"
)

var errVisibleRequired = errors.New("visible is required")

// handleData returns one page of processed rows: ?page=1&size=50.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	page := parseIntParam(r, "page", 1)
	size := parseIntParam(r, "size", 0)

	result, err := s.service.Page(chi.URLParam(r, "sessionID"), page, size)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleColumns returns the current schema, hidden columns included.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.Columns(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cols)
}

// handleSetColumnVisible shows or hides a column: {"visible": false}.
func (s *Server) handleSetColumnVisible(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := decodeJSON(w, r, s.cfg.Server.MaxBodySize, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Visible == nil {
		respondError(w, r, errWithBody(errVisibleRequired))
		return
	}

	id := chi.URLParam(r, "sessionID")
	if err := s.service.SetColumnVisible(id, pathParam(r, "column"), *req.Visible); err != nil {
		respondError(w, r, err)
		return
	}

	cols, err := s.service.Columns(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cols)
}

// handleStats summarizes one column of the processed rows.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(chi.URLParam(r, "sessionID"), pathParam(r, "column"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleExportXLSX downloads the visible columns of the processed rows as
// a workbook. The workbook is built in memory first so a failure can still
// be reported as JSON.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, snap.Name, snap.Columns, snap.Rows); err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(snap.Name, "xlsx")))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("xlsx download interrupted", "error", err)
	}
}

// handleExportCSV streams the visible columns of the processed rows as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Snapshot(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentTypeCSV+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(snap.Name, "csv")))
	if err := export.WriteCSV(w, snap.Columns, snap.Rows); err != nil {
		// Headers are sent; the client sees a truncated file.
		logging.FromContext(r.Context()).Error("csv export failed", "error", err, "rows", len(snap.Rows))
	}
}
