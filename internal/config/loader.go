package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// FileName is the config file name inside the data directory.
const FileName = "config.yaml"

const envPrefix = "TASKBOARD"

// Load reads the config file at path over the defaults. A missing file (or an
// empty path) yields the defaults; env overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"log.level", "log.format", "fallback_agent"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// ZeroFields makes a list present in the file replace the default list
	// instead of overwriting it index by index.
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = true
	}); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks internal consistency of a loaded config.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return errors.New("agents: at least one agent is required")
	}
	seen := make(map[string]struct{}, len(c.Agents))
	for _, agent := range c.Agents {
		if strings.TrimSpace(agent.Name) == "" {
			return errors.New("agents: name cannot be empty")
		}
		if _, dup := seen[agent.Name]; dup {
			return fmt.Errorf("agents: duplicate agent %s", agent.Name)
		}
		seen[agent.Name] = struct{}{}
	}
	if c.FallbackAgent != "" {
		if _, ok := seen[c.FallbackAgent]; !ok {
			return fmt.Errorf("fallback_agent %s is not a registered agent", c.FallbackAgent)
		}
	}
	for _, m := range c.AgentMigrations {
		if m.From == "" || m.To == "" {
			return errors.New("agent_migrations: from and to are required")
		}
	}

	templateIDs := make(map[string]struct{}, len(c.Templates))
	for _, tmpl := range c.Templates {
		if strings.TrimSpace(tmpl.ID) == "" || strings.TrimSpace(tmpl.Name) == "" {
			return errors.New("templates: id and name are required")
		}
		if _, dup := templateIDs[tmpl.ID]; dup {
			return fmt.Errorf("templates: duplicate template %s", tmpl.ID)
		}
		templateIDs[tmpl.ID] = struct{}{}
		switch strings.ToLower(tmpl.Priority) {
		case "", "low", "medium", "high", "critical":
		default:
			return fmt.Errorf("templates: %s has invalid priority %q", tmpl.ID, tmpl.Priority)
		}
		if tmpl.EstimatedHours < 0 {
			return fmt.Errorf("templates: %s has negative estimated_hours", tmpl.ID)
		}
	}

	thresholds := map[string]float64{
		"dedup.title_threshold":       c.Dedup.TitleThreshold,
		"dedup.description_threshold": c.Dedup.DescriptionThreshold,
		"dedup.tag_threshold":         c.Dedup.TagThreshold,
		"dedup.dependency_threshold":  c.Dedup.DependencyThreshold,
		"dedup.high_confidence":       c.Dedup.HighConfidence,
		"dedup.medium_confidence":     c.Dedup.MediumConfidence,
		"dedup.auto_merge_score":      c.Dedup.AutoMergeScore,
	}
	for key, value := range thresholds {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", key, value)
		}
	}
	if c.Dedup.MediumConfidence > c.Dedup.HighConfidence {
		return errors.New("dedup.medium_confidence cannot exceed dedup.high_confidence")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// AgentNames returns registered agent names in declaration order.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for _, agent := range c.Agents {
		names = append(names, agent.Name)
	}
	return names
}
