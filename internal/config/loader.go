package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vboarder/vboarder/internal/router"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config populated with working defaults for a local
// single-node deployment.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:      ":8000",
			CORSOrigins: []string{"*"},
		},
		Storage: Storage{
			AgentsDir:   "data/agents",
			SessionsDir: "data/sessions",
			KnowledgeDB: "data/knowledge.db",
		},
		Models: Models{
			Mode:     "local",
			LocalURL: "http://localhost:11434",
			Slots:    router.DefaultSlotTable(),
		},
		Reasoning: Reasoning{
			MaxIterations:       5,
			ConfidenceThreshold: 0.85,
			MinConfidence:       0.5,
		},
		Session: Session{
			MaxTurns: 50,
		},
		Knowledge: Knowledge{
			PromptFacts: 10,
		},
		Maintenance: Maintenance{
			Enabled:    true,
			Schedule:   "0 3 * * *",
			SessionTTL: 30 * 24 * time.Hour,
			KeepFacts:  500,
		},
	}
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns in raw YAML bytes.
// Returns an error listing all unresolved variables (no default, no env value).
func expandEnv(raw []byte) ([]byte, error) {
	var errs []error

	result := envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		subs := envPattern.FindSubmatch(match)
		name := string(subs[1])
		hasDefault := len(subs) > 2 && subs[2] != nil
		defaultVal := ""
		if hasDefault {
			defaultVal = string(subs[2])
		}

		value, ok := os.LookupEnv(name)
		if ok {
			return []byte(value)
		}

		if hasDefault {
			return []byte(defaultVal)
		}

		errs = append(errs, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return result, errors.Join(errs...)
}
