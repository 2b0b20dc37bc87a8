package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

// defaultUploadName names sessions opened without ?name=.
const defaultUploadName = "upload"

// handleOpenRecordsSession opens a session over records sent in the body:
//
//	{"name": "forecast", "records": [{"region": "east", "amount": 10}]}
func (s *Server) handleOpenRecordsSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string          `json:"name"`
		Records json.RawMessage `json:"records"`
	}
	if err := decodeJSON(w, r, s.cfg.Server.MaxBodySize, &req); err != nil {
		respondError(w, r, err)
		return
	}

	var records []processor.Record
	if len(req.Records) > 0 {
		var err error
		if records, err = processor.DecodeRecords(req.Records); err != nil {
			respondError(w, r, errWithBody(err))
			return
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultUploadName
	}

	info, err := s.service.OpenRecordsSession(r.Context(), name, records)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}

// handleOpenCSVSession opens a session over a CSV request body. The body
// size is enforced while parsing, so no MaxBytesReader is needed here.
func (s *Server) handleOpenCSVSession(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = defaultUploadName
	}

	info, err := s.service.OpenCSVSession(r.Context(), name, r.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, info)
}
