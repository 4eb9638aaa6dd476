package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON parses the request body into dst, limiting body size and
// rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Trailing garbage after the JSON document is a malformed request.
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
