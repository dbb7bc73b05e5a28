package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vboarder/vboarder/internal/memory"
)

type memoryUpdateRequest struct {
	Agent   string `json:"agent"`
	Section string `json:"section"`
	Entry   any    `json:"entry"`
}

// handleMemoryUpdate appends or merges an entry into one memory section
// and returns the full updated document.
func (s *Server) handleMemoryUpdate(w http.ResponseWriter, r *http.Request) {
	var req memoryUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "memory_update", err)
		return
	}

	doc, err := s.memory.ApplyMemoryUpdate(req.Agent, req.Section, req.Entry)
	if err != nil {
		s.writeError(w, "memory_update", err)
		return
	}
	s.writeJSON(w, "memory_update", http.StatusOK, doc)
}

// handleMemoryGet returns an agent's memory document, the empty template
// when none exists yet.
func (s *Server) handleMemoryGet(w http.ResponseWriter, r *http.Request) {
	doc, err := s.memory.GetMemoryState(r.URL.Query().Get("agent"))
	if err != nil {
		s.writeError(w, "memory_get", err)
		return
	}
	s.writeJSON(w, "memory_get", http.StatusOK, doc)
}

// handleMemoryReset clears one section, or the whole document when no
// section is given.
func (s *Server) handleMemoryReset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doc, err := s.memory.ResetMemorySection(q.Get("agent"), q.Get("section"))
	if err != nil {
		s.writeError(w, "memory_reset", err)
		return
	}
	s.writeJSON(w, "memory_reset", http.StatusOK, doc)
}

type conversationAppendRequest struct {
	Agent     string                       `json:"agent"`
	SessionID string                       `json:"session_id"`
	Messages  []memory.ConversationMessage `json:"messages"`
	Metadata  map[string]any               `json:"metadata"`
}

type conversationAppendResponse struct {
	SessionID    string         `json:"session_id"`
	Conversation *memory.Thread `json:"conversation"`
}

// handleConversationAppend appends messages to a thread, creating it
// (and its session id) when needed.
func (s *Server) handleConversationAppend(w http.ResponseWriter, r *http.Request) {
	var req conversationAppendRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "conversation_append", err)
		return
	}

	sid, thread, err := s.memory.AppendConversation(req.Agent, req.SessionID, req.Messages, req.Metadata)
	if err != nil {
		s.writeError(w, "conversation_append", err)
		return
	}
	s.writeJSON(w, "conversation_append", http.StatusOK, conversationAppendResponse{
		SessionID:    sid,
		Conversation: thread,
	})
}

// handleConversationGet returns either the whole conversation state or,
// with session_id, one thread (404 when absent).
func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	agent := q.Get("agent")

	if sid := q.Get("session_id"); sid != "" {
		thread, err := s.memory.Thread(agent, sid)
		if err != nil {
			s.writeError(w, "conversation_get", err)
			return
		}
		s.writeJSON(w, "conversation_get", http.StatusOK, thread)
		return
	}

	state, err := s.memory.ConversationHistory(agent)
	if err != nil {
		s.writeError(w, "conversation_get", err)
		return
	}
	s.writeJSON(w, "conversation_get", http.StatusOK, state)
}

const (
	contextDefaultLimit = 5
	contextMaxLimit     = 50
)

// handleContext returns the bounded context snapshot used to seed a
// model prompt.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxFacts, err := boundedQueryInt(q.Get("max_facts"), contextDefaultLimit)
	if err != nil {
		s.writeError(w, "context", err)
		return
	}
	maxMessages, err := boundedQueryInt(q.Get("max_messages"), contextDefaultLimit)
	if err != nil {
		s.writeError(w, "context", err)
		return
	}

	snap, err := s.memory.LoadAgentContext(q.Get("agent"), maxFacts, maxMessages)
	if err != nil {
		s.writeError(w, "context", err)
		return
	}
	s.writeJSON(w, "context", http.StatusOK, snap)
}

// boundedQueryInt parses a 1..50 limit parameter, applying the default
// when absent.
func boundedQueryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > contextMaxLimit {
		return 0, fmt.Errorf("%w: limit %q outside 1..%d", memory.ErrInvalidInput, raw, contextMaxLimit)
	}
	return n, nil
}
