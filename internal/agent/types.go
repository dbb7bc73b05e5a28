// Package agent implements the confidence-gated reasoning loop: route a
// task to a model, score the response, and stop, refine, or escalate.
package agent

import "context"

// Generator produces text for a prompt. Implementations are blocking and
// fallible (network or subprocess); the loop applies no timeout of its
// own, callers wrap the context as needed.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Scorer rates a response in [0, 1].
type Scorer interface {
	Score(text string) float64
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(text string) float64

// Score implements Scorer.
func (f ScorerFunc) Score(text string) float64 { return f(text) }

// Status is the terminal state of a reasoning run.
type Status string

const (
	// StatusSuccess means the confidence threshold was reached.
	StatusSuccess Status = "success"
	// StatusEscalate means confidence fell below the floor and the
	// caller should hand the task to alternate handling.
	StatusEscalate Status = "escalate"
	// StatusMaxIterations means the iteration budget ran out without
	// reaching the threshold.
	StatusMaxIterations Status = "max_iterations_reached"
)

// Step records one loop iteration for the trace.
type Step struct {
	Iteration  int     `json:"iteration"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of one reasoning run. The trace exists only for
// the duration of the request; nothing here is persisted.
type Result struct {
	Result     string  `json:"result"`
	Iterations int     `json:"iterations"`
	Confidence float64 `json:"confidence"`
	Trace      []Step  `json:"reasoning_chain"`
	Status     Status  `json:"status"`
	Reason     string  `json:"reason,omitempty"`
}
