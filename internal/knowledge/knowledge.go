// Package knowledge is the shared team knowledge store: facts extracted
// from user messages, visible to every agent. It is backed by SQLite and
// rendered into prompts as a bullet block.
package knowledge

import (
	"regexp"
	"strings"
	"time"
)

// Fact is one shared knowledge item.
type Fact struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"` // agent role that contributed it
	CreatedAt time.Time `json:"created_at"`
}

// factPatterns match user statements worth remembering across agents:
// codenames, explicit "remember" requests, deadlines, budgets, and
// ownership assignments.
var factPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(project\s*codename|codename)\b.*\b(is|=)\b\s+.+`),
	regexp.MustCompile(`(?i)\bremember\b.+`),
	regexp.MustCompile(`(?i)\bdeadline\b.*\b(is|=)\b\s+.+`),
	regexp.MustCompile(`(?i)\bbudget\b.*\b(is|=)\b\s+.+`),
	regexp.MustCompile(`(?i)\b(stakeholder|owner|contact)\b.*\b(is|=)\b\s+.+`),
}

// ExtractFact returns the trimmed user text when it matches a fact
// pattern, or "" when there is nothing worth keeping.
func ExtractFact(userText string) string {
	if userText == "" {
		return ""
	}
	for _, pat := range factPatterns {
		if pat.MatchString(userText) {
			return strings.TrimSpace(userText)
		}
	}
	return ""
}

// Block renders facts as the shared-knowledge prompt block, or "" when
// there are none.
func Block(facts []Fact) string {
	if len(facts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Shared team knowledge available to all agents:\n")
	for i, f := range facts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(f.Text)
	}
	return b.String()
}
