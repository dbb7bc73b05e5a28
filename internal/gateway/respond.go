package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vboarder/vboarder/internal/memory"
	"github.com/vboarder/vboarder/internal/provider"
)

func (s *Server) writeJSON(w http.ResponseWriter, handler string, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", "handler", handler, "error", err)
	}
	s.metrics.requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps sentinel errors to HTTP statuses: invalid input 400,
// missing session 404, backend failures 502, everything else 500.
func (s *Server) writeError(w http.ResponseWriter, handler string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, memory.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, memory.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, provider.ErrProviderDown),
		errors.Is(err, provider.ErrRateLimit),
		errors.Is(err, provider.ErrAuthentication):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.logger.Error("request failed", "handler", handler, "error", err)
	}
	s.writeJSON(w, handler, status, errorBody{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(memory.ErrInvalidInput, err)
	}
	return nil
}
