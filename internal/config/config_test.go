package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "DEVELOPER", cfg.FallbackAgent)
	assert.Contains(t, cfg.AgentNames(), "CODEFORGE")
	assert.Contains(t, cfg.AgentNames(), "TESTER")
	assert.Contains(t, cfg.Tags, "cli")

	assert.Equal(t, 100, cfg.Limits.MaxTitleLength)
	assert.Equal(t, 5000, cfg.Limits.MaxDescriptionLength)
	assert.Equal(t, 10, cfg.Limits.MaxDependencies)
	assert.Equal(t, 5, cfg.Limits.MaxTags)
	assert.Equal(t, 10, cfg.Limits.MaxActivePerAgent)

	assert.InDelta(t, 0.85, cfg.Dedup.TitleThreshold, 1e-9)
	assert.InDelta(t, 0.75, cfg.Dedup.DescriptionThreshold, 1e-9)
	assert.InDelta(t, 0.95, cfg.Dedup.AutoMergeScore, 1e-9)

	assert.Equal(t, "warn", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestDefaultMigrationsTargetRegisteredAgents(t *testing.T) {
	cfg := DefaultConfig()
	names := make(map[string]bool)
	for _, name := range cfg.AgentNames() {
		names[name] = true
	}
	for _, m := range cfg.AgentMigrations {
		assert.Truef(t, names[m.To], "migration %s -> %s targets an unregistered agent", m.From, m.To)
		assert.Falsef(t, names[m.From], "migration source %s is itself registered", m.From)
	}
}

func TestDefaultTemplates(t *testing.T) {
	cfg := DefaultConfig()
	ids := make(map[string]TemplateConfig)
	for _, tmpl := range cfg.Templates {
		ids[tmpl.ID] = tmpl
	}
	require.Contains(t, ids, "feature-implementation")
	feature := ids["feature-implementation"]
	assert.Equal(t, "DEVELOPER", feature.Agent)
	assert.Equal(t, []string{"design-{feature_name}", "requirements-{feature_name}"}, feature.DependenciesPattern)
	assert.Contains(t, feature.DescriptionTemplate, "{feature_name}")

	agents := make(map[string]bool)
	for _, name := range cfg.AgentNames() {
		agents[name] = true
	}
	for _, tmpl := range cfg.Templates {
		assert.Truef(t, agents[tmpl.Agent], "template %s uses unregistered agent %s", tmpl.ID, tmpl.Agent)
	}
}

func TestLoad_TemplatesReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
templates:
  - id: bugfix
    name: Bug Fix
    agent: DEVELOPER
    priority: high
    tags: [bug]
    description_template: "Fix {bug}"
    dependencies_pattern: ["repro-{bug}"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Templates, 1)
	assert.Equal(t, "Bug Fix", cfg.Templates[0].Name)
	assert.Equal(t, "Fix {bug}", cfg.Templates[0].DescriptionTemplate)
	assert.Equal(t, []string{"repro-{bug}"}, cfg.Templates[0].DependenciesPattern)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Limits, cfg.Limits)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().FallbackAgent, cfg.FallbackAgent)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
agents:
  - name: BUILDER
    keywords: [build, compile]
  - name: WRITER
    keywords: [docs]
fallback_agent: BUILDER
limits:
  max_tags: 8
dedup:
  title_threshold: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Lists replace the defaults entirely.
	assert.Equal(t, []string{"BUILDER", "WRITER"}, cfg.AgentNames())
	assert.Equal(t, []string{"build", "compile"}, cfg.Agents[0].Keywords)
	assert.Equal(t, "BUILDER", cfg.FallbackAgent)

	// Scalar sections merge key by key.
	assert.Equal(t, 8, cfg.Limits.MaxTags)
	assert.Equal(t, 100, cfg.Limits.MaxTitleLength)
	assert.InDelta(t, 0.9, cfg.Dedup.TitleThreshold, 1e-9)
	assert.InDelta(t, 0.75, cfg.Dedup.DescriptionThreshold, 1e-9)

	// Untouched lists keep their defaults.
	assert.Equal(t, DefaultConfig().Tags, cfg.Tags)
}

func TestLoad_AgentNamesKeepCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
agents:
  - name: MixedCase_Agent
    keywords: [x]
fallback_agent: MixedCase_Agent
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MixedCase_Agent", cfg.Agents[0].Name)
}

func TestLoad_EnvOverridesLogSettings(t *testing.T) {
	t.Setenv("TASKBOARD_LOG_LEVEL", "debug")
	t.Setenv("TASKBOARD_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errLike string
	}{
		{
			name:    "unknown fallback agent",
			content: "fallback_agent: NOBODY\n",
			errLike: "fallback_agent",
		},
		{
			name:    "threshold out of range",
			content: "dedup:\n  title_threshold: 1.5\n",
			errLike: "dedup.title_threshold",
		},
		{
			name:    "bad log format",
			content: "log:\n  format: xml\n",
			errLike: "log.format",
		},
		{
			name:    "duplicate template",
			content: "templates:\n  - id: t\n    name: T\n  - id: t\n    name: Again\n",
			errLike: "duplicate template t",
		},
		{
			name:    "template priority",
			content: "templates:\n  - id: t\n    name: T\n    priority: urgent\n",
			errLike: "invalid priority",
		},
		{
			name:    "template without name",
			content: "templates:\n  - id: t\n",
			errLike: "templates: id and name",
		},
		{
			name:    "malformed yaml",
			content: "agents: [\n",
			errLike: "read config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errLike)
		})
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteDefault_KeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("fallback_agent: TESTER\n"), 0644))
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fallback_agent: TESTER\n", string(data))
}
