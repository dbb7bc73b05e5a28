package agent

// Loop tuning defaults.
const (
	DefaultMaxIterations       = 5
	DefaultConfidenceThreshold = 0.85
	DefaultMinConfidence       = 0.5
)

// LoopConfig tunes the reasoning loop. The zero value is usable:
// withDefaults fills in the standard thresholds.
type LoopConfig struct {
	// MaxIterations bounds the number of model calls per run.
	MaxIterations int `yaml:"max_iterations"`

	// ConfidenceThreshold stops the loop early once reached.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MinConfidence is the escalation floor.
	MinConfidence float64 `yaml:"min_confidence"`

	// EscalateOnLowConfidence returns StatusEscalate when a response
	// scores below MinConfidence instead of refining further.
	EscalateOnLowConfidence *bool `yaml:"escalate_on_low_confidence"`
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.EscalateOnLowConfidence == nil {
		escalate := true
		c.EscalateOnLowConfidence = &escalate
	}
	return c
}
