package server

import (
	"encoding/json"
	"net/http"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

// writeError sends the generic error body field clients expect. All handler
// failures map to 500 regardless of cause.
func (s *Server) writeError(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}
