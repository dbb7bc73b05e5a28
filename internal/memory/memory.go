// Package memory is the per-agent persistence engine: a three-section
// structured memory document, conversation threads, and an append-only
// audit log. All writes for one agent are serialized by a per-agent
// exclusive lock and committed with an atomic temp-file+rename replace,
// so readers always observe a complete document.
package memory

import (
	"errors"
	"time"
)

// Section names of the structured memory document.
const (
	SectionPersona  = "persona"
	SectionFacts    = "facts"
	SectionMessages = "messages"
)

// Sentinel errors. Handlers map these onto HTTP status codes.
var (
	// ErrInvalidInput marks a malformed request: blank agent, unknown
	// section, wrong entry type, non-positive limit.
	ErrInvalidInput = errors.New("memory: invalid input")

	// ErrSessionNotFound marks a lookup for a session id that does not
	// exist. Distinct from "no data yet", which yields an empty template.
	ErrSessionNotFound = errors.New("memory: session not found")
)

// Memory is one agent's structured memory document. Persona is mutated
// by whole-object merge; facts and messages are append-only lists,
// truncated only by an explicit reset.
type Memory struct {
	Persona  map[string]any `json:"persona"`
	Facts    []any          `json:"facts"`
	Messages []any          `json:"messages"`
}

// Template returns the empty memory document.
func Template() Memory {
	return Memory{
		Persona: map[string]any{
			"goals":   []any{},
			"tagline": "",
			"do_not":  []any{},
		},
		Facts:    []any{},
		Messages: []any{},
	}
}

// normalize repairs a document decoded from disk so the three sections
// always have their invariant shapes.
func (m *Memory) normalize() {
	if m.Persona == nil {
		m.Persona = Template().Persona
	}
	if m.Facts == nil {
		m.Facts = []any{}
	}
	if m.Messages == nil {
		m.Messages = []any{}
	}
}

// AuditRecord is one JSON Lines entry in an agent's append-only audit
// log. Records are never rewritten or deleted; the log is for replay and
// debugging, not for serving reads.
type AuditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent"`
	Section   string    `json:"section"`
	Entry     any       `json:"entry"`
}

// validSection reports whether name is a recognized memory section.
func validSection(name string) bool {
	switch name {
	case SectionPersona, SectionFacts, SectionMessages:
		return true
	}
	return false
}
