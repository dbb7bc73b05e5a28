// Package router selects a model slot for a task. Routing is a pure
// function of the task text and the agent role: identical input always
// yields an identical decision. Slots map to concrete model names through
// a configurable table so the heuristics stay independent of deployment.
package router

import (
	"strings"
)

// Slot identifies a routing bucket. The actual backing model is resolved
// per deployment via SlotTable.
type Slot string

const (
	// SlotA is the small, fast model for simple short queries.
	SlotA Slot = "slot:a"
	// SlotB is the specialized reasoning model for strategic and
	// leadership tasks.
	SlotB Slot = "slot:b"
	// SlotC is the large model for complex tasks, tool use, and long
	// context.
	SlotC Slot = "slot:c"
)

// Complexity is the heuristic difficulty estimate for a task.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Decision is the full routing outcome for one task. It is ephemeral;
// computed per request and never persisted.
type Decision struct {
	Slot            Slot       `json:"slot"`
	Model           string     `json:"model"`
	Complexity      Complexity `json:"complexity"`
	NeedsTools      bool       `json:"needs_tools"`
	TaskLength      int        `json:"task_length"`
	Agent           string     `json:"agent"`
	UsesSpecialized bool       `json:"uses_specialized_slot"`
}

// SlotTable maps slots to model names. Zero values fall back to defaults.
type SlotTable struct {
	SlotA string `yaml:"slot_a"`
	SlotB string `yaml:"slot_b"`
	SlotC string `yaml:"slot_c"`
}

// DefaultSlotTable mirrors the historical environment defaults.
func DefaultSlotTable() SlotTable {
	return SlotTable{
		SlotA: "mistral:latest",
		SlotB: "lfm2e:latest",
		SlotC: "mistral:latest",
	}
}

// Model resolves a slot to its configured model name.
func (t SlotTable) Model(slot Slot) string {
	defaults := DefaultSlotTable()
	switch slot {
	case SlotA:
		return orDefault(t.SlotA, defaults.SlotA)
	case SlotB:
		return orDefault(t.SlotB, defaults.SlotB)
	case SlotC:
		return orDefault(t.SlotC, defaults.SlotC)
	default:
		return orDefault(t.SlotA, defaults.SlotA)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Heuristic tables. Kept as data so they can be tuned and tested apart
// from the routing control flow.
var (
	toolKeywords = []string{
		"search", "browse", "fetch", "download", "api", "database",
		"query", "scrape", "call", "execute", "run",
	}

	// Leadership roles always get the specialized reasoning slot.
	leadershipRoles = map[string]struct{}{
		"CEO": {}, "CTO": {}, "COO": {}, "COS": {}, "CFO": {},
	}

	strategicKeywords = []string{
		"optimize", "strategy", "plan", "resource", "allocation",
		"decision", "prioritize", "coordinate", "schedule", "analyze",
		"evaluate", "compare", "recommend", "multi-step", "complex",
		"reasoning", "logic",
	}

	specializedPhrases = []string{
		"multi-step", "step by step", "complex reasoning", "strategic planning",
	}

	multiPartConnectives = []string{
		"and then", "after that", "next", "finally",
	}
)

// Length cuts for slot selection when no stronger signal applies.
const (
	shortTaskChars = 1200
	longTaskChars  = 8000
)

// RouteTask computes the routing decision for a task on behalf of an
// agent role. The agent comparison is case-insensitive.
func RouteTask(task, agent string, table SlotTable) Decision {
	taskChars := len(task)
	needsTools := NeedsTools(task)
	complexity := DetectComplexity(task)
	specialized := usesSpecializedSlot(task, agent)

	slot := pickSlot(taskChars, needsTools, complexity, specialized)

	return Decision{
		Slot:            slot,
		Model:           table.Model(slot),
		Complexity:      complexity,
		NeedsTools:      needsTools,
		TaskLength:      taskChars,
		Agent:           agent,
		UsesSpecialized: slot == SlotB && specialized,
	}
}

// pickSlot applies the slot selection rules in priority order: the
// specialized override wins, then explicit complexity, then tool use,
// then task length.
func pickSlot(taskChars int, needsTools bool, complexity Complexity, specialized bool) Slot {
	if specialized {
		return SlotB
	}

	switch complexity {
	case ComplexitySimple:
		return SlotA
	case ComplexityComplex:
		return SlotC
	}

	if needsTools {
		return SlotC
	}

	switch {
	case taskChars < shortTaskChars:
		return SlotA
	case taskChars < longTaskChars:
		return SlotB
	default:
		return SlotC
	}
}

// NeedsTools reports whether the task text mentions an external
// tool/API action, case-insensitively.
func NeedsTools(task string) bool {
	lower := strings.ToLower(task)
	for _, kw := range toolKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// DetectComplexity estimates task complexity from word count, question
// marks, and multi-part connectives.
func DetectComplexity(task string) Complexity {
	wordCount := len(strings.Fields(task))
	questionMarks := strings.Count(task, "?")

	lower := strings.ToLower(task)
	multiPart := false
	for _, connective := range multiPartConnectives {
		if strings.Contains(lower, connective) {
			multiPart = true
			break
		}
	}

	switch {
	case wordCount < 20 && questionMarks <= 1 && !multiPart:
		return ComplexitySimple
	case wordCount > 100 || multiPart || questionMarks > 2:
		return ComplexityComplex
	default:
		return ComplexityModerate
	}
}

// usesSpecializedSlot reports whether the task should be forced onto the
// specialized reasoning slot: leadership roles, two or more distinct
// strategic keywords, or an explicit reasoning phrase.
func usesSpecializedSlot(task, agent string) bool {
	if _, ok := leadershipRoles[strings.ToUpper(agent)]; ok {
		return true
	}

	lower := strings.ToLower(task)

	matches := 0
	for _, kw := range strategicKeywords {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	if matches >= 2 {
		return true
	}

	for _, phrase := range specializedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
