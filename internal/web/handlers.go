package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvusers/internal/core"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// handleHealth reports liveness and the ingest slots in use.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"ingest": s.service.IngestStatus(),
	})
}

// handleConvert parses a CSV file and returns its raw records.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FilePath string `json:"filePath"`
	}
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	records, err := s.service.Convert(r.Context(), req.FilePath)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []core.RawRecord{}
	}

	writeJSON(w, map[string]any{
		"message": "CSV file successfully converted to JSON",
		"count":   len(records),
		"results": records,
	})
}

// ingestResponse is the body returned after a successful ingestion run.
type ingestResponse struct {
	Message          string               `json:"message"`
	RunID            string               `json:"runId"`
	RecordsProcessed int                  `json:"recordsProcessed"`
	AgeDistribution  core.AgeDistribution `json:"ageDistribution"`
}

func newIngestResponse(res core.IngestResult) ingestResponse {
	return ingestResponse{
		Message:          "CSV file processed and data stored in database",
		RunID:            res.RunID,
		RecordsProcessed: res.RecordsProcessed,
		AgeDistribution:  res.AgeDistribution,
	}
}

// handleProcessFile ingests a CSV file already on the server.
func (s *Server) handleProcessFile(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ProcessFile(r.Context(), r.URL.Query().Get("filePath"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, newIngestResponse(result))
}

// handleProcessCSV accepts a multipart upload in the csvFile field, stores
// it and ingests it.
func (s *Server) handleProcessCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxFileSize+maxJSONBody)

	mr, err := r.MultipartReader()
	if err != nil {
		s.respondError(w, r, core.Validationf("process csv", "no file provided: %v", err), http.StatusBadRequest)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		if part.FormName() != "csvFile" || part.FileName() == "" {
			part.Close()
			continue
		}

		result, err := s.service.ProcessUpload(r.Context(), part.FileName(), part)
		part.Close()
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		writeJSON(w, newIngestResponse(result))
		return
	}

	s.respondError(w, r, core.Validationf("process csv", "no file provided in field csvFile"), http.StatusBadRequest)
}

// handleAgeDistribution reports the current distribution.
func (s *Server) handleAgeDistribution(w http.ResponseWriter, r *http.Request) {
	dist, counts, err := s.service.AgeDistribution(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"ageDistribution": dist,
		"counts":          counts,
	})
}

// handleListUsers returns one page of stored users.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	page, err := s.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	if page.Users == nil {
		page.Users = []core.User{}
	}
	writeJSON(w, page)
}

// handleCreateUser reshapes and stores one flat JSON record.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var rec core.RawRecord
	if err := decodeJSON(w, r, &rec, false); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	user, err := s.service.CreateUser(r.Context(), rec)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"user": user})
}

// handleResetUsers deletes every stored user.
func (s *Server) handleResetUsers(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.ResetUsers(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"deleted": n})
}

// decodeJSON reads a JSON body into v. With allowEmpty an empty body
// leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return core.Validationf("decode request", "invalid json: %v", err)
	}
	return nil
}

// intParam parses an optional non-negative integer query parameter.
// A missing parameter yields 0.
func intParam(r *http.Request, name string) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.Validationf("parse query", "invalid parameter %s: %q is not a number", name, val)
	}
	return i, nil
}
