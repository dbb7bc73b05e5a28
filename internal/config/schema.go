// Package config loads the YAML runtime configuration with environment
// variable expansion, defaults, and validation.
package config

import (
	"time"

	"github.com/vboarder/vboarder/internal/agent"
	"github.com/vboarder/vboarder/internal/router"
)

// Config is the root of the YAML file.
type Config struct {
	Server      Server      `yaml:"server"`
	Storage     Storage     `yaml:"storage"`
	Models      Models      `yaml:"models"`
	Reasoning   Reasoning   `yaml:"reasoning"`
	Session     Session     `yaml:"session"`
	Knowledge   Knowledge   `yaml:"knowledge"`
	Maintenance Maintenance `yaml:"maintenance"`
	Telemetry   Telemetry   `yaml:"telemetry"`
}

// Server holds HTTP listener settings.
type Server struct {
	Listen      string   `yaml:"listen"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Storage holds the on-disk layout.
type Storage struct {
	AgentsDir   string `yaml:"agents_dir"`
	SessionsDir string `yaml:"sessions_dir"`
	KnowledgeDB string `yaml:"knowledge_db"`
}

// Models selects the generation backend and the slot-to-model table.
type Models struct {
	Mode      string           `yaml:"mode"` // "local" or "openai"
	LocalURL  string           `yaml:"local_url"`
	OpenAIURL string           `yaml:"openai_url"`
	APIKey    string           `yaml:"api_key"`
	Slots     router.SlotTable `yaml:"slots"`
}

// Reasoning tunes the reasoning loop.
type Reasoning struct {
	MaxIterations           int     `yaml:"max_iterations"`
	ConfidenceThreshold     float64 `yaml:"confidence_threshold"`
	MinConfidence           float64 `yaml:"min_confidence"`
	EscalateOnLowConfidence *bool   `yaml:"escalate_on_low_confidence"`
}

// LoopConfig converts the YAML block into the loop's config type.
func (r Reasoning) LoopConfig() agent.LoopConfig {
	return agent.LoopConfig{
		MaxIterations:           r.MaxIterations,
		ConfidenceThreshold:     r.ConfidenceThreshold,
		MinConfidence:           r.MinConfidence,
		EscalateOnLowConfidence: r.EscalateOnLowConfidence,
	}
}

// Session bounds chat session history.
type Session struct {
	MaxTurns int `yaml:"max_turns"`
}

// Knowledge tunes the shared fact store's prompt exposure.
type Knowledge struct {
	PromptFacts int `yaml:"prompt_facts"` // facts injected per prompt
}

// Maintenance configures the background scheduler.
type Maintenance struct {
	Enabled    bool          `yaml:"enabled"`
	Schedule   string        `yaml:"schedule"` // 5-field cron expression
	SessionTTL time.Duration `yaml:"session_ttl"`
	KeepFacts  int           `yaml:"keep_facts"`
}

// Telemetry configures trace export.
type Telemetry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // OTLP/HTTP collector, host:port
}
