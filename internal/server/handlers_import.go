package server

import (
	"errors"
	"net/http"

	"github.com/claude/lightweight/internal/ingest/alpha"
)

// maxImportBytes caps an uploaded export.
const maxImportBytes = 32 << 20

// handleAlphaImport answers 4xx for exports that can never succeed and 5xx
// for store failures, which the importer retries.
func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	result, err := s.alpha.Ingest(r.Context(), body)
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "export too large"})
		case errors.Is(err, alpha.ErrMalformed):
			s.log.Warn("alpha import rejected", "id", requestIDFromContext(r), "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			s.writeError(w, r, err)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.CounterSetsImported.Add(float64(result.SetsInserted))
	}
	writeJSON(w, http.StatusOK, result)
}
