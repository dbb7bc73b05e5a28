package config

import (
	"errors"
	"fmt"
)

// Validate checks the config for values that would fail at runtime.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen must not be empty"))
	}
	if c.Storage.AgentsDir == "" {
		errs = append(errs, errors.New("storage.agents_dir must not be empty"))
	}
	if c.Storage.SessionsDir == "" {
		errs = append(errs, errors.New("storage.sessions_dir must not be empty"))
	}
	if c.Storage.KnowledgeDB == "" {
		errs = append(errs, errors.New("storage.knowledge_db must not be empty"))
	}

	switch c.Models.Mode {
	case "local":
		if c.Models.LocalURL == "" {
			errs = append(errs, errors.New("models.local_url required in local mode"))
		}
	case "openai":
		if c.Models.OpenAIURL == "" {
			errs = append(errs, errors.New("models.openai_url required in openai mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("models.mode %q not recognised (local, openai)", c.Models.Mode))
	}

	if c.Reasoning.MaxIterations < 0 {
		errs = append(errs, errors.New("reasoning.max_iterations must not be negative"))
	}
	if t := c.Reasoning.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("reasoning.confidence_threshold %v outside [0, 1]", t))
	}
	if m := c.Reasoning.MinConfidence; m < 0 || m > 1 {
		errs = append(errs, fmt.Errorf("reasoning.min_confidence %v outside [0, 1]", m))
	}
	if c.Reasoning.MinConfidence > c.Reasoning.ConfidenceThreshold && c.Reasoning.ConfidenceThreshold > 0 {
		errs = append(errs, errors.New("reasoning.min_confidence must not exceed confidence_threshold"))
	}

	if c.Session.MaxTurns < 0 {
		errs = append(errs, errors.New("session.max_turns must not be negative"))
	}

	if c.Maintenance.Enabled {
		if c.Maintenance.Schedule == "" {
			errs = append(errs, errors.New("maintenance.schedule required when maintenance is enabled"))
		}
		if c.Maintenance.SessionTTL <= 0 {
			errs = append(errs, errors.New("maintenance.session_ttl must be positive"))
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint required when telemetry is enabled"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}
