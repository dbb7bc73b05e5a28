package memory

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// File names within each agent's directory.
const (
	memoryFile       = "memory.json"
	auditFile        = "memory.jsonl"
	conversationFile = "conversation_history.json"
)

// Store persists agent memory and conversations under a root directory,
// one subdirectory per agent (uppercase role code). All read-modify-write
// sequences for one agent are serialized through the Locker, shared
// across the memory and conversation documents.
type Store struct {
	root   string
	locker Locker
	logger *slog.Logger

	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, locker Locker, logger *slog.Logger) *Store {
	if locker == nil {
		locker = NewLockRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:   dir,
		locker: locker,
		logger: logger.With("component", "memory"),
		now:    time.Now,
	}
}

// normalizeAgent validates and canonicalizes an agent id.
func normalizeAgent(agent string) (string, error) {
	agent = strings.ToUpper(strings.TrimSpace(agent))
	if agent == "" {
		return "", fmt.Errorf("%w: agent must not be empty", ErrInvalidInput)
	}
	return agent, nil
}

func (s *Store) memoryPath(agent string) string {
	return filepath.Join(s.root, agent, memoryFile)
}

func (s *Store) auditPath(agent string) string {
	return filepath.Join(s.root, agent, auditFile)
}

func (s *Store) conversationPath(agent string) string {
	return filepath.Join(s.root, agent, conversationFile)
}

// readMemory loads an agent's memory document, degrading to the empty
// template on a missing or corrupt file. Decode failures are logged but
// never fail a read: availability wins over strict consistency there.
func (s *Store) readMemory(agent string) Memory {
	doc := Template()
	if _, err := readJSON(s.memoryPath(agent), &doc); err != nil {
		s.logger.Warn("falling back to memory template", "agent", agent, "error", err)
		return Template()
	}
	doc.normalize()
	return doc
}

// ApplyMemoryUpdate appends an entry to a list section or merges an
// object into the persona, writes the document durably, and appends one
// audit record, all under the agent's lock. The updated document is
// returned. String entries for list sections are wrapped as
// {content, timestamp}; object entries get a timestamp injected if
// missing. Persona entries must be objects.
func (s *Store) ApplyMemoryUpdate(agent, section string, entry any) (Memory, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return Memory{}, err
	}
	if !validSection(section) {
		return Memory{}, fmt.Errorf("%w: unknown section %q", ErrInvalidInput, section)
	}

	entry, err = s.prepareEntry(section, entry)
	if err != nil {
		return Memory{}, err
	}

	release := s.locker.Acquire(agent)
	defer release()

	doc := s.readMemory(agent)

	switch section {
	case SectionPersona:
		merge := entry.(map[string]any)
		for k, v := range merge {
			doc.Persona[k] = v
		}
	case SectionFacts:
		doc.Facts = append(doc.Facts, entry)
	case SectionMessages:
		doc.Messages = append(doc.Messages, entry)
	}

	if err := writeJSONAtomic(s.memoryPath(agent), doc); err != nil {
		return Memory{}, err
	}

	record := AuditRecord{
		Timestamp: s.now().UTC(),
		Agent:     agent,
		Section:   section,
		Entry:     entry,
	}
	if err := appendJSONLine(s.auditPath(agent), record); err != nil {
		return Memory{}, err
	}

	s.logger.Info("memory update applied", "agent", agent, "section", section)
	return doc, nil
}

// prepareEntry validates and normalizes an entry for its target section.
func (s *Store) prepareEntry(section string, entry any) (any, error) {
	if section == SectionPersona {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: persona updates must be a JSON object", ErrInvalidInput)
		}
		return obj, nil
	}

	switch v := entry.(type) {
	case string:
		return map[string]any{
			"content":   v,
			"timestamp": s.now().UTC().Format(time.RFC3339),
		}, nil
	case map[string]any:
		if _, ok := v["timestamp"]; !ok {
			v["timestamp"] = s.now().UTC().Format(time.RFC3339)
		}
		return v, nil
	default:
		return entry, nil
	}
}

// GetMemoryState returns the agent's current memory document, or the
// empty template when none exists yet. It never fails for a missing
// agent. The read bypasses the agent lock: the atomic replace guarantees
// a complete document, at the cost of eventual consistency with
// in-flight writes.
func (s *Store) GetMemoryState(agent string) (Memory, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return Memory{}, err
	}
	return s.readMemory(agent), nil
}

// ResetMemorySection resets one section to its empty form, or the whole
// document when section is empty. Unknown non-empty sections are
// rejected before the lock is taken.
func (s *Store) ResetMemorySection(agent, section string) (Memory, error) {
	agent, err := normalizeAgent(agent)
	if err != nil {
		return Memory{}, err
	}
	if section != "" && !validSection(section) {
		return Memory{}, fmt.Errorf("%w: unknown section %q", ErrInvalidInput, section)
	}

	release := s.locker.Acquire(agent)
	defer release()

	doc := s.readMemory(agent)

	switch section {
	case "":
		doc = Template()
	case SectionPersona:
		doc.Persona = Template().Persona
	case SectionFacts:
		doc.Facts = []any{}
	case SectionMessages:
		doc.Messages = []any{}
	}

	if err := writeJSONAtomic(s.memoryPath(agent), doc); err != nil {
		return Memory{}, err
	}

	s.logger.Info("memory section reset", "agent", agent, "section", section)
	return doc, nil
}
