package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vboarder/vboarder/internal/agents"
	"github.com/vboarder/vboarder/internal/memory"
)

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Agents        int    `json:"agents"`
	SharedFacts   int    `json:"shared_facts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Agents:        len(agents.List()),
	}
	if s.know != nil {
		resp.SharedFacts = s.know.Len()
	}
	s.writeJSON(w, "health", http.StatusOK, resp)
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, "agents", http.StatusOK, map[string]any{
		"agents": agents.List(),
	})
}

func (s *Server) handleListAllSessions(w http.ResponseWriter, _ *http.Request) {
	all, err := s.sessions.ListAll()
	if err != nil {
		s.writeError(w, "sessions_all", err)
		return
	}
	if all == nil {
		all = map[string][]string{}
	}
	s.writeJSON(w, "sessions_all", http.StatusOK, map[string]any{"sessions": all})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "agent")
	if !agents.IsValid(role) {
		s.writeJSON(w, "sessions", http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown agent %q", role)})
		return
	}

	ids, err := s.sessions.List(role)
	if err != nil {
		s.writeError(w, "sessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, "sessions", http.StatusOK, map[string]any{
		"agent":    role,
		"sessions": ids,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "agent")
	if !agents.IsValid(role) {
		s.writeJSON(w, "session_delete", http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown agent %q", role)})
		return
	}
	sid := chi.URLParam(r, "session_id")
	if sid == "" {
		s.writeError(w, "session_delete", fmt.Errorf("%w: session_id required", memory.ErrInvalidInput))
		return
	}

	if err := s.sessions.Delete(role, sid); err != nil {
		s.writeError(w, "session_delete", err)
		return
	}
	s.writeJSON(w, "session_delete", http.StatusOK, map[string]any{
		"agent":      role,
		"session_id": sid,
		"deleted":    true,
	})
}
