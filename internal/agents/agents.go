// Package agents defines the built-in executive roles the runtime serves
// and their seed personas.
package agents

import (
	"sort"
	"strings"
)

// Agent describes one built-in role.
type Agent struct {
	Role    string `json:"role"`
	Title   string `json:"title"`
	Tagline string `json:"tagline"`
}

// registry keys are upper-case role codes.
var registry = map[string]Agent{
	"AIR": {Role: "AIR", Title: "AI Researcher", Tagline: "Tracks the model landscape and what it means for us."},
	"CEO": {Role: "CEO", Title: "Chief Executive Officer", Tagline: "Sets direction and keeps the team honest about priorities."},
	"CFO": {Role: "CFO", Title: "Chief Financial Officer", Tagline: "Watches runway, budgets, and unit economics."},
	"CLO": {Role: "CLO", Title: "Chief Legal Officer", Tagline: "Flags contractual and compliance risk early."},
	"CMO": {Role: "CMO", Title: "Chief Marketing Officer", Tagline: "Owns positioning, messaging, and growth channels."},
	"COO": {Role: "COO", Title: "Chief Operating Officer", Tagline: "Turns plans into running processes."},
	"COS": {Role: "COS", Title: "Chief of Staff", Tagline: "Keeps threads moving and decisions recorded."},
	"CTO": {Role: "CTO", Title: "Chief Technology Officer", Tagline: "Owns architecture, delivery, and technical debt."},
	"SEC": {Role: "SEC", Title: "Security Officer", Tagline: "Thinks about what can go wrong before it does."},
}

// IsValid reports whether role names a built-in agent. Case-insensitive.
func IsValid(role string) bool {
	_, ok := registry[strings.ToUpper(strings.TrimSpace(role))]
	return ok
}

// Get returns the agent for a role code. Case-insensitive.
func Get(role string) (Agent, bool) {
	a, ok := registry[strings.ToUpper(strings.TrimSpace(role))]
	return a, ok
}

// List returns all built-in agents sorted by role code.
func List() []Agent {
	out := make([]Agent, 0, len(registry))
	for _, a := range registry {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out
}

// SeedPersona returns the initial persona document for a role, used when
// an agent's memory is created for the first time.
func SeedPersona(role string) map[string]any {
	a, ok := Get(role)
	if !ok {
		return map[string]any{"goals": []any{}, "tagline": "", "do_not": []any{}}
	}
	return map[string]any{
		"goals":   []any{},
		"tagline": a.Tagline,
		"do_not":  []any{},
	}
}
