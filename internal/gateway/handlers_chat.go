package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/vboarder/vboarder/internal/agent"
	"github.com/vboarder/vboarder/internal/agents"
	"github.com/vboarder/vboarder/internal/knowledge"
	"github.com/vboarder/vboarder/internal/memory"
	"github.com/vboarder/vboarder/internal/router"
	"github.com/vboarder/vboarder/internal/scorer"
	"github.com/vboarder/vboarder/internal/session"
	"github.com/vboarder/vboarder/internal/telemetry"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Concise   bool   `json:"concise"`
}

type chatResponse struct {
	Agent          string `json:"agent"`
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
	Response       string `json:"response"`
	Timestamp      string `json:"timestamp"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	TurnsInSession int    `json:"turns_in_session"`
}

// handleChat runs one chat turn: load history, capture facts, route,
// generate, persist the pruned history.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	role := strings.ToUpper(chi.URLParam(r, "agent"))
	if !agents.IsValid(role) {
		s.writeJSON(w, "chat", http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown agent %q", role)})
		return
	}

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "chat", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, "chat", fmt.Errorf("%w: message must not be empty", memory.ErrInvalidInput))
		return
	}

	ctx, span := telemetry.Tracer().Start(r.Context(), "chat_turn")
	defer span.End()

	turn, err := s.runChatTurn(ctx, role, req)
	if err != nil {
		s.writeError(w, "chat", err)
		return
	}
	s.metrics.chatTurns.WithLabelValues(role).Inc()
	s.writeJSON(w, "chat", http.StatusOK, turn)
}

// runChatTurn is the shared core of the blocking and streaming chat
// paths.
func (s *Server) runChatTurn(ctx context.Context, role string, req chatRequest) (chatResponse, error) {
	sid := session.SanitizeID(req.SessionID)
	started := s.now()

	history := s.sessions.ReadMessages(role, sid)
	s.captureFact(ctx, role, req.Message)

	decision := router.RouteTask(req.Message, role, s.slots())
	prompt := s.buildChatPrompt(ctx, role, history, req.Message, req.Concise)

	genStart := time.Now()
	reply, err := s.resolver.For(decision.Model).Generate(ctx, prompt)
	s.metrics.modelLatency.WithLabelValues(string(decision.Slot)).Observe(time.Since(genStart).Seconds())
	if err != nil {
		return chatResponse{}, fmt.Errorf("gateway: generating reply for %s: %w", role, err)
	}

	history = append(history,
		session.Message{Role: session.RoleUser, Content: req.Message},
		session.Message{Role: session.RoleAssistant, Content: reply},
	)
	if err := s.sessions.WriteMessages(role, sid, history); err != nil {
		return chatResponse{}, err
	}

	return chatResponse{
		Agent:          role,
		SessionID:      sid,
		Message:        req.Message,
		Response:       reply,
		Timestamp:      s.now().UTC().Format(time.RFC3339),
		ResponseTimeMS: time.Since(started).Milliseconds(),
		TurnsInSession: session.CountUserTurns(session.PruneHistory(history, s.cfg.Session.MaxTurns)),
	}, nil
}

// captureFact mirrors a memorable user statement into the agent's facts
// section and the shared knowledge store. Failures are logged, never
// fatal to the chat turn.
func (s *Server) captureFact(ctx context.Context, role, message string) {
	fact := knowledge.ExtractFact(message)
	if fact == "" {
		return
	}

	if _, err := s.memory.ApplyMemoryUpdate(role, memory.SectionFacts, fact); err != nil {
		s.logger.Warn("fact capture into memory failed", "agent", role, "error", err)
	}
	if s.know != nil {
		added, err := s.know.Add(ctx, fact, role)
		if err != nil {
			s.logger.Warn("fact capture into knowledge store failed", "agent", role, "error", err)
		} else if added {
			s.metrics.factsExtracted.Inc()
		}
	}
}

// buildChatPrompt assembles persona, shared knowledge, and recent
// history around the user's message.
func (s *Server) buildChatPrompt(ctx context.Context, role string, history []session.Message, message string, concise bool) string {
	var b strings.Builder

	if a, ok := agents.Get(role); ok {
		fmt.Fprintf(&b, "You are the %s (%s) of the company. %s\n\n", a.Title, a.Role, a.Tagline)
	}

	if s.know != nil {
		if block, err := s.know.PromptBlock(ctx, s.cfg.Knowledge.PromptFacts); err != nil {
			s.logger.Warn("knowledge block unavailable", "error", err)
		} else if block != "" {
			b.WriteString(block)
			b.WriteString("\n\n")
		}
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\n", message)
	if concise {
		b.WriteString("Answer in at most three sentences.")
	} else {
		b.WriteString("Answer in your role's voice.")
	}
	return b.String()
}

type reasonRequest struct {
	Task                string  `json:"task"`
	AgentRole           string  `json:"agent_role"`
	SessionID           string  `json:"session_id"`
	MaxIterations       int     `json:"max_iterations"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Context             string  `json:"context"`
}

type reasonResponse struct {
	Result          string          `json:"result"`
	Iterations      int             `json:"iterations"`
	Confidence      float64         `json:"confidence"`
	ReasoningStatus agent.Status    `json:"reasoning_status"`
	Routing         router.Decision `json:"routing"`
	Timestamp       string          `json:"timestamp"`
}

// handleReason runs the confidence-gated reasoning loop for a task.
func (s *Server) handleReason(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, "reason", err)
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		s.writeError(w, "reason", fmt.Errorf("%w: task must not be empty", memory.ErrInvalidInput))
		return
	}
	if req.AgentRole == "" {
		req.AgentRole = "CEO"
	}

	ctx, span := telemetry.Tracer().Start(r.Context(), "reasoning_run")
	defer span.End()

	decision := router.RouteTask(req.Task, req.AgentRole, s.slots())
	task := req.Task
	loop := agent.NewLoop(
		s.resolver.For(decision.Model),
		agent.ScorerFunc(func(text string) float64 { return scorer.ScoreWithTask(text, task) }),
		s.loopConfig(req.MaxIterations, req.ConfidenceThreshold),
		s.logger,
	)

	result, err := loop.Run(ctx, req.Task, req.Context)
	if err != nil {
		s.writeError(w, "reason", err)
		return
	}

	s.metrics.reasonRuns.WithLabelValues(string(result.Status)).Inc()
	s.metrics.reasonIters.Observe(float64(result.Iterations))

	s.writeJSON(w, "reason", http.StatusOK, reasonResponse{
		Result:          result.Result,
		Iterations:      result.Iterations,
		Confidence:      result.Confidence,
		ReasoningStatus: result.Status,
		Routing:         decision,
		Timestamp:       s.now().UTC().Format(time.RFC3339),
	})
}

// Streaming frame types for the websocket chat.
type streamFrame struct {
	Type      string `json:"type"` // "start", "token", "done", "error"
	Agent     string `json:"agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Token     string `json:"token,omitempty"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleChatStream upgrades to a websocket, reads one chat request
// frame, and replays the reply as token frames.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	role := strings.ToUpper(chi.URLParam(r, "agent"))
	if !agents.IsValid(role) {
		s.writeJSON(w, "chat_stream", http.StatusNotFound, errorBody{Error: fmt.Sprintf("unknown agent %q", role)})
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "unexpected close") }()

	ctx := r.Context()

	var req chatRequest
	if err := readFrame(ctx, conn, &req); err != nil {
		_ = writeFrame(ctx, conn, streamFrame{Type: "error", Error: "invalid request frame"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		_ = writeFrame(ctx, conn, streamFrame{Type: "error", Error: "message must not be empty"})
		return
	}

	sid := session.SanitizeID(req.SessionID)
	if err := writeFrame(ctx, conn, streamFrame{Type: "start", Agent: role, SessionID: sid}); err != nil {
		return
	}

	turn, err := s.runChatTurn(ctx, role, req)
	if err != nil {
		_ = writeFrame(ctx, conn, streamFrame{Type: "error", Error: err.Error()})
		return
	}

	// The backends reply whole; replay word by word so clients render
	// progressively.
	for _, word := range strings.Fields(turn.Response) {
		if err := writeFrame(ctx, conn, streamFrame{Type: "token", Token: word + " "}); err != nil {
			return
		}
	}

	if err := writeFrame(ctx, conn, streamFrame{Type: "done", Agent: role, SessionID: sid, Response: turn.Response}); err != nil {
		return
	}
	s.metrics.chatTurns.WithLabelValues(role).Inc()
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func readFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
