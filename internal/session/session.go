// Package session manages the chat-serving path's per-(agent, session)
// message logs: id sanitation, user-turn pruning, and flat-file
// persistence. Storage here is deliberately separate from the memory
// package's conversation threads; see that package for the authoritative
// thread store.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxTurns is the default number of user turns kept per session.
const MaxTurns = 50

const maxSessionIDLen = 100

// Message is one chat exchange entry.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// RoleUser and RoleAssistant are the two message roles on this path.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	invalidIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	dashRuns       = regexp.MustCompile(`-{2,}`)
)

// SanitizeID makes a session id filesystem-safe: trim, truncate to 100
// chars, replace runs of invalid characters with a single dash, collapse
// repeated dashes, strip leading/trailing dashes. Empty or all-invalid
// input yields "default".
func SanitizeID(raw string) string {
	sid := strings.TrimSpace(raw)
	if len(sid) > maxSessionIDLen {
		sid = sid[:maxSessionIDLen]
	}
	sid = invalidIDChars.ReplaceAllString(sid, "-")
	sid = dashRuns.ReplaceAllString(sid, "-")
	sid = strings.Trim(sid, "-")
	if sid == "" {
		return "default"
	}
	return sid
}

// PruneHistory keeps the most recent maxTurns user messages and
// everything after the oldest kept one. A user/assistant pair is never
// split except at that boundary. maxTurns <= 0 falls back to MaxTurns.
func PruneHistory(messages []Message, maxTurns int) []Message {
	if maxTurns <= 0 {
		maxTurns = MaxTurns
	}
	if len(messages) == 0 {
		return messages
	}

	var userIdxs []int
	for i, m := range messages {
		if m.Role == RoleUser {
			userIdxs = append(userIdxs, i)
		}
	}
	if len(userIdxs) <= maxTurns {
		return messages
	}

	start := userIdxs[len(userIdxs)-maxTurns]
	return messages[start:]
}

// CountUserTurns returns the number of user messages in the list.
func CountUserTurns(messages []Message) int {
	turns := 0
	for _, m := range messages {
		if m.Role == RoleUser {
			turns++
		}
	}
	return turns
}

// Manager persists session logs as one JSON file per (agent, session)
// under a single directory.
//
// Known gap, kept to match the serving behavior: these files are not
// covered by the memory package's per-agent lock, so concurrent requests
// for the same session can race. The memory.Locker interface is the
// intended seam for closing this.
type Manager struct {
	dir      string
	maxTurns int
	logger   *slog.Logger
}

// NewManager creates a Manager storing session files under dir.
func NewManager(dir string, maxTurns int, logger *slog.Logger) *Manager {
	if maxTurns <= 0 {
		maxTurns = MaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:      dir,
		maxTurns: maxTurns,
		logger:   logger.With("component", "session"),
	}
}

// Path returns the file backing a given (agent, session) pair.
func (m *Manager) Path(agent, sessionID string) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", strings.ToLower(agent), sessionID))
}

// ReadMessages loads a session's history. A missing file is an empty
// session; an unreadable or corrupt file degrades to empty with a logged
// warning.
func (m *Manager) ReadMessages(agent, sessionID string) []Message {
	raw, err := os.ReadFile(m.Path(agent, sessionID))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to read session file",
				"agent", agent, "session_id", sessionID, "error", err)
		}
		return nil
	}

	var messages []Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		m.logger.Warn("corrupt session file, starting empty",
			"agent", agent, "session_id", sessionID, "error", err)
		return nil
	}
	return messages
}

// WriteMessages prunes and persists a session's history, creating the
// session directory lazily. Write failures are surfaced; silent data
// loss is not acceptable on this path.
func (m *Manager) WriteMessages(agent, sessionID string, messages []Message) error {
	pruned := PruneHistory(messages, m.maxTurns)

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("session: create directory %s: %w", m.dir, err)
	}

	data, err := json.MarshalIndent(pruned, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding %s/%s: %w", agent, sessionID, err)
	}
	if err := os.WriteFile(m.Path(agent, sessionID), data, 0o644); err != nil {
		return fmt.Errorf("session: writing %s/%s: %w", agent, sessionID, err)
	}
	return nil
}

// List returns the session ids with a stored file for the agent.
func (m *Manager) List(agent string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: listing %s: %w", m.dir, err)
	}

	prefix := strings.ToLower(agent) + "_"
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	}
	return ids, nil
}

// ListAll returns every stored (agent, session id) pair, grouped by
// agent. Agent role codes never contain underscores, so the first
// underscore in a file name is the separator.
func (m *Manager) ListAll() (map[string][]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: listing %s: %w", m.dir, err)
	}

	all := make(map[string][]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		agent, sid, ok := strings.Cut(strings.TrimSuffix(name, ".json"), "_")
		if !ok {
			continue
		}
		all[agent] = append(all[agent], sid)
	}
	return all, nil
}

// PruneStale deletes session files that have not been written for longer
// than ttl and returns the number removed. Used by the maintenance
// scheduler.
func (m *Manager) PruneStale(ttl time.Duration) int {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("failed to scan session directory", "error", err)
		}
		return 0
	}

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.Name())); err != nil {
			m.logger.Warn("failed to remove stale session file", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed
}

// Delete removes a session's file. Deleting a missing session is a no-op.
func (m *Manager) Delete(agent, sessionID string) error {
	err := os.Remove(m.Path(agent, sessionID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: deleting %s/%s: %w", agent, sessionID, err)
	}
	return nil
}
