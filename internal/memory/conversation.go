package memory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationMessage is one message within a thread.
type ConversationMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Thread is one session's ordered message history within an agent's
// conversation state. Messages keep append order; the latest thread is
// the one with the greatest LastActive (falling back to Timestamp).
type Thread struct {
	SessionID  string                `json:"session_id"`
	Timestamp  string                `json:"timestamp"`
	LastActive string                `json:"last_active_timestamp,omitempty"`
	Messages   []ConversationMessage `json:"messages"`
	Metadata   map[string]any        `json:"metadata,omitempty"`
}

// activity is the ordering key for "latest thread".
func (t *Thread) activity() string {
	if t.LastActive != "" {
		return t.LastActive
	}
	return t.Timestamp
}

// ConversationState is an agent's full set of conversation threads.
type ConversationState struct {
	Conversations []*Thread `json:"conversations"`
}

func conversationTemplate() ConversationState {
	return ConversationState{Conversations: []*Thread{}}
}

// findThread returns the thread with the given session id, or nil.
func (c *ConversationState) findThread(sessionID string) *Thread {
	for _, t := range c.Conversations {
		if t.SessionID == sessionID {
			return t
		}
	}
	return nil
}

// latestThread returns the most recently active thread, or nil when the
// state holds none.
func (c *ConversationState) latestThread() *Thread {
	var latest *Thread
	for _, t := range c.Conversations {
		if latest == nil || t.activity() > latest.activity() {
			latest = t
		}
	}
	return latest
}

// readConversations loads an agent's conversation document, degrading to
// the empty template like readMemory does.
func (s *Store) readConversations(agent string) ConversationState {
	state := conversationTemplate()
	if _, err := readJSON(s.conversationPath(agent), &state); err != nil {
		s.logger.Warn("falling back to conversation template", "agent", agent, "error", err)
		return conversationTemplate()
	}
	if state.Conversations == nil {
		state.Conversations = []*Thread{}
	}
	return state
}

// AppendConversation finds or creates the thread for sessionID
// (generating an opaque id when empty), appends all messages, merges the
// metadata, bumps the activity timestamp, and persists under the same
// per-agent lock as the memory document. Returns the session id and the
// updated thread.
func (s *Store) AppendConversation(agent, sessionID string, messages []ConversationMessage, metadata map[string]any) (string, *Thread, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return "", nil, err
	}
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("%w: messages must contain at least one item", ErrInvalidInput)
	}
	for i, m := range messages {
		if m.Sender == "" || m.Message == "" {
			return "", nil, fmt.Errorf("%w: message %d has empty sender or message", ErrInvalidInput, i)
		}
	}

	if sessionID == "" {
		sessionID = fmt.Sprintf("%x", uuid.New())
	}
	now := s.now().UTC().Format(time.RFC3339)

	release := s.locker.Acquire(agent)
	defer release()

	state := s.readConversations(agent)

	thread := state.findThread(sessionID)
	if thread == nil {
		thread = &Thread{
			SessionID: sessionID,
			Timestamp: now,
			Messages:  []ConversationMessage{},
		}
		state.Conversations = append(state.Conversations, thread)
	}

	thread.LastActive = now
	if len(metadata) > 0 {
		if thread.Metadata == nil {
			thread.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			thread.Metadata[k] = v
		}
	}

	for _, m := range messages {
		if m.Timestamp == "" {
			m.Timestamp = now
		}
		thread.Messages = append(thread.Messages, m)
	}

	if err := writeJSONAtomic(s.conversationPath(agent), state); err != nil {
		return "", nil, err
	}

	s.logger.Info("conversation appended",
		"agent", agent, "session_id", sessionID, "messages", len(messages))
	return sessionID, thread, nil
}

// ConversationHistory returns the agent's full conversation state, or
// the empty template when none exists yet.
func (s *Store) ConversationHistory(agent string) (ConversationState, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return ConversationState{}, err
	}
	return s.readConversations(agent), nil
}

// Thread returns the single thread for sessionID. A specific lookup that
// misses fails with ErrSessionNotFound.
func (s *Store) Thread(agent, sessionID string) (*Thread, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return nil, err
	}

	state := s.readConversations(agent)
	if thread := state.findThread(sessionID); thread != nil {
		return thread, nil
	}
	return nil, fmt.Errorf("%w: session %q for agent %s", ErrSessionNotFound, sessionID, agent)
}

// ContextSnapshot is the combined read served by the context endpoint:
// persona, recent facts and short-term messages, and the tail of the
// most recently active conversation thread.
type ContextSnapshot struct {
	Agent               string                `json:"agent"`
	Persona             map[string]any        `json:"persona"`
	Facts               []any                 `json:"facts"`
	RecentMessages      []any                 `json:"recent_messages"`
	ConversationHistory []ConversationMessage `json:"conversation_history"`
}

// LoadAgentContext assembles a context snapshot bounded by maxFacts and
// maxMessages. Both limits must be positive.
func (s *Store) LoadAgentContext(agent string, maxFacts, maxMessages int) (ContextSnapshot, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return ContextSnapshot{}, err
	}
	if maxFacts <= 0 {
		return ContextSnapshot{}, fmt.Errorf("%w: max_facts must be positive", ErrInvalidInput)
	}
	if maxMessages <= 0 {
		return ContextSnapshot{}, fmt.Errorf("%w: max_messages must be positive", ErrInvalidInput)
	}

	doc := s.readMemory(agent)
	state := s.readConversations(agent)

	snapshot := ContextSnapshot{
		Agent:               agent,
		Persona:             doc.Persona,
		Facts:               tailAny(doc.Facts, maxFacts),
		RecentMessages:      tailAny(doc.Messages, maxMessages),
		ConversationHistory: []ConversationMessage{},
	}

	if latest := state.latestThread(); latest != nil {
		msgs := latest.Messages
		if len(msgs) > maxMessages {
			msgs = msgs[len(msgs)-maxMessages:]
		}
		snapshot.ConversationHistory = append(snapshot.ConversationHistory, msgs...)
	}

	return snapshot, nil
}

func tailAny(items []any, n int) []any {
	if len(items) > n {
		items = items[len(items)-n:]
	}
	out := make([]any, len(items))
	copy(out, items)
	return out
}
