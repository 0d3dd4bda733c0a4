package config

// Config is the full taskboard configuration, read from .taskboard/config.yaml.
type Config struct {
	// Agent registry: names and the capability keywords used to score them.
	Agents []AgentConfig `yaml:"agents" mapstructure:"agents"`

	// Agent used when no registry keyword matches a task.
	FallbackAgent string `yaml:"fallback_agent" mapstructure:"fallback_agent"`

	// Direct legacy-name rewrites, checked before keyword scoring.
	AgentMigrations []MigrationConfig `yaml:"agent_migrations" mapstructure:"agent_migrations"`

	// Known tag vocabulary
	Tags []string `yaml:"tags" mapstructure:"tags"`

	// Task templates for `new --template`.
	Templates []TemplateConfig `yaml:"templates" mapstructure:"templates"`

	Limits LimitsConfig `yaml:"limits" mapstructure:"limits"`
	Dedup  DedupConfig  `yaml:"dedup" mapstructure:"dedup"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// AgentConfig declares one known agent. Names live in values, not keys,
// because viper lower-cases map keys.
type AgentConfig struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// MigrationConfig maps a retired agent name onto a current one.
type MigrationConfig struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// TemplateConfig is a reusable task shape. DescriptionTemplate and
// DependenciesPattern may contain {key} placeholders filled from --var.
type TemplateConfig struct {
	ID                  string   `yaml:"id" mapstructure:"id"`
	Name                string   `yaml:"name" mapstructure:"name"`
	Agent               string   `yaml:"agent" mapstructure:"agent"`
	Priority            string   `yaml:"priority" mapstructure:"priority"`
	EstimatedHours      float64  `yaml:"estimated_hours,omitempty" mapstructure:"estimated_hours"`
	Tags                []string `yaml:"tags" mapstructure:"tags"`
	DescriptionTemplate string   `yaml:"description_template" mapstructure:"description_template"`
	DependenciesPattern []string `yaml:"dependencies_pattern,omitempty" mapstructure:"dependencies_pattern"`
}

// LimitsConfig holds the soft ceilings the validator warns about.
type LimitsConfig struct {
	MaxTitleLength       int `yaml:"max_title_length" mapstructure:"max_title_length"`
	MaxDescriptionLength int `yaml:"max_description_length" mapstructure:"max_description_length"`
	MaxDependencies      int `yaml:"max_dependencies" mapstructure:"max_dependencies"`
	MaxTags              int `yaml:"max_tags" mapstructure:"max_tags"`
	MaxActivePerAgent    int `yaml:"max_active_per_agent" mapstructure:"max_active_per_agent"`
}

// DedupConfig holds similarity thresholds for duplicate detection.
type DedupConfig struct {
	TitleThreshold       float64 `yaml:"title_threshold" mapstructure:"title_threshold"`
	DescriptionThreshold float64 `yaml:"description_threshold" mapstructure:"description_threshold"`
	TagThreshold         float64 `yaml:"tag_threshold" mapstructure:"tag_threshold"`
	DependencyThreshold  float64 `yaml:"dependency_threshold" mapstructure:"dependency_threshold"`
	HighConfidence       float64 `yaml:"high_confidence" mapstructure:"high_confidence"`
	MediumConfidence     float64 `yaml:"medium_confidence" mapstructure:"medium_confidence"`
	AutoMergeScore       float64 `yaml:"auto_merge_score" mapstructure:"auto_merge_score"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug|info|warn|error
	Format string `yaml:"format" mapstructure:"format"` // text|json
}
