package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Agents: []AgentConfig{
			{Name: "CODEFORGE", Keywords: []string{"implement", "develop", "code", "build", "infrastructure"}},
			{Name: "DESIGNER", Keywords: []string{"design", "ui", "ux", "interface", "visual"}},
			{Name: "DOCUMENTER", Keywords: []string{"documentation", "technical-writing", "api-docs"}},
			{Name: "ANALYST", Keywords: []string{"text-processing", "task-generation", "document-analysis", "workflow-automation", "ai-collaboration"}},
			{Name: "DEVELOPER", Keywords: []string{"implement", "develop", "code", "build", "programming", "software"}},
			{Name: "DEVOPS", Keywords: []string{"deploy", "ops", "ci/cd", "pipeline", "infrastructure"}},
			{Name: "TESTER", Keywords: []string{"testing", "quality-assurance", "reliability", "pytest", "coverage"}},
			{Name: "ARCHITECT", Keywords: []string{"branding", "naming", "research", "cli-design", "market-analysis"}},
			{Name: "AUTOMATION", Keywords: []string{"epics", "phases", "hierarchy", "display", "ui"}},
			{Name: "DEMO_AGENT", Keywords: []string{"demos", "examples", "use-cases", "portfolio-enhancement", "documentation"}},
			{Name: "MANAGER", Keywords: []string{"planning", "prioritization", "roadmap", "coordination", "stakeholder"}},
			{Name: "REVIEWER", Keywords: []string{"review", "code-review", "compliance", "verification", "audit"}},
			{Name: "SECURITY", Keywords: []string{"security", "vulnerability", "threat", "permissions", "secrets"}},
			{Name: "RESEARCHER", Keywords: []string{"investigate", "explore", "survey", "benchmark", "prototype"}},
		},
		FallbackAgent: "DEVELOPER",
		AgentMigrations: []MigrationConfig{
			{From: "ARCHAIOS_PRIME", To: "ARCHITECT"},
			{From: "CONSENSUS_ENGINE", To: "MANAGER"},
			{From: "TheArchitect", To: "ARCHITECT"},
			{From: "GOVERNANCE_ADVISOR", To: "MANAGER"},
			{From: "BUILDFLOW", To: "DEVOPS"},
			{From: "AUTOSYNTH", To: "AUTOMATION"},
			{From: "DesignSynth", To: "DESIGNER"},
			{From: "OpsMind", To: "DEVOPS"},
			{From: "COMPLIANCE_SENTINEL", To: "REVIEWER"},
			{From: "PERMIT_WATCHDOG", To: "SECURITY"},
			{From: "JurisMind", To: "ANALYST"},
			{From: "LegalSentinel", To: "ANALYST"},
			{From: "RISK_DOCTOR", To: "ANALYST"},
			{From: "GRANT_WRANGLER", To: "MANAGER"},
			{From: "ResearchOracle", To: "RESEARCHER"},
			{From: "SCENARIO_SMITH", To: "ANALYST"},
			{From: "TRACE_SYNTHESIZER", To: "DEVELOPER"},
			{From: "MemoryWeaver", To: "DEVELOPER"},
			{From: "SECSENTINEL", To: "SECURITY"},
			{From: "SIM_ENGINEER", To: "DEVELOPER"},
			{From: "TESTCRAFTERPRO", To: "TESTER"},
			{From: "STAKEHOLDERVOICE", To: "MANAGER"},
			{From: "NARRATIVE_WARDEN", To: "DOCUMENTER"},
			{From: "TASK_VERIFIER_REWRITER", To: "REVIEWER"},
			{From: "EthosGolem", To: "ANALYST"},
			{From: "ECOSENTRY", To: "SECURITY"},
			{From: "FINANCEORACLE", To: "ANALYST"},
		},
		Tags:      defaultTags(),
		Templates: defaultTemplates(),
		Limits: LimitsConfig{
			MaxTitleLength:       100,
			MaxDescriptionLength: 5000,
			MaxDependencies:      10,
			MaxTags:              5,
			MaxActivePerAgent:    10,
		},
		Dedup: DedupConfig{
			TitleThreshold:       0.85,
			DescriptionThreshold: 0.75,
			TagThreshold:         0.5,
			DependencyThreshold:  0.5,
			HighConfidence:       0.90,
			MediumConfidence:     0.70,
			AutoMergeScore:       0.95,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func defaultTemplates() []TemplateConfig {
	return []TemplateConfig{
		{
			ID:             "research-investigation",
			Name:           "Research Investigation",
			Agent:          "RESEARCHER",
			Priority:       "medium",
			EstimatedHours: 8,
			Tags:           []string{"research", "analysis"},
			DescriptionTemplate: `Research and investigate {topic}.

## Objectives
- Understand the current state of {topic}
- Identify key challenges and opportunities
- Provide actionable recommendations

## Deliverables
- [ ] Research brief
- [ ] Key findings summary
- [ ] Recommendations with rationale`,
		},
		{
			ID:             "feature-implementation",
			Name:           "Feature Implementation",
			Agent:          "DEVELOPER",
			Priority:       "high",
			EstimatedHours: 16,
			Tags:           []string{"feature-enhancement", "code-generation"},
			DescriptionTemplate: `Implement {feature_name}.

## Acceptance criteria
{acceptance_criteria}

## Deliverables
- [ ] Implementation
- [ ] Unit tests
- [ ] Documentation updates`,
			DependenciesPattern: []string{"design-{feature_name}", "requirements-{feature_name}"},
		},
		{
			ID:             "testing-suite",
			Name:           "Testing Suite",
			Agent:          "TESTER",
			Priority:       "high",
			EstimatedHours: 12,
			Tags:           []string{"testing", "quality-assurance"},
			DescriptionTemplate: `Build the test suite for {feature_name}.

## Coverage
- [ ] Unit tests
- [ ] Integration tests
- [ ] Edge cases and failure modes`,
			DependenciesPattern: []string{"implementation-{feature_name}"},
		},
		{
			ID:             "security-assessment",
			Name:           "Security Assessment",
			Agent:          "SECURITY",
			Priority:       "critical",
			EstimatedHours: 10,
			Tags:           []string{"security", "analysis"},
			DescriptionTemplate: `Assess the security of {component}.

## Scope
- [ ] Threat model
- [ ] Permission review
- [ ] Secrets handling
- [ ] Findings with severity`,
		},
		{
			ID:             "documentation-update",
			Name:           "Documentation Update",
			Agent:          "DOCUMENTER",
			Priority:       "medium",
			EstimatedHours: 4,
			Tags:           []string{"documentation", "technical-writing"},
			DescriptionTemplate: `Update the documentation for {subject}.

## Checklist
- [ ] Review current documentation
- [ ] Draft updates
- [ ] Validate cross-references`,
		},
	}
}

func defaultTags() []string {
	return []string{
		"cli", "ux", "blockers", "visualization", "feature-enhancement",
		"logging", "infrastructure", "production-ready", "monitoring",
		"testing", "quality-assurance", "portfolio-enhancement", "ci-cd",
		"automation", "changelog", "release-management", "task-analysis", "code-generation",
		"maintenance", "validation", "cleanup", "workflow",
		"text-processing", "task-generation", "document-analysis", "workflow-automation", "ai-collaboration",
		"reporting", "analytics", "dashboard",
		"epics", "phases", "hierarchy", "display", "ui",
		"configuration", "data-quality", "system-flexibility",
		"dependencies", "bug-fix", "improvement",
		"api", "integration", "security",
		"code-review", "github-actions", "agent-integration",
		"branding", "naming", "research", "market-analysis",
		"data-model", "schema-extension", "task-enhancement",
		"performance", "optimization", "scalability", "caching",
		"packaging", "distribution", "version-management",
		"ide-integration", "user-experience", "interface-design", "refactoring",
		"project-history", "time-management",
		"demos", "examples", "use-cases", "cli-design",
		"coverage", "workflow-tracking", "test", "example",
		"agent-management", "github", "sync", "technical-writing", "api-docs",
		"integrations", "api-bindings", "frameworks", "devops", "quality-of-life",
		"data-cleanup", "fixes", "data-format", "ideas", "expansion", "ai",
		"brainstorming", "data-hygiene", "grouping", "nesting", "status",
		"visual", "accessibility", "flexibility", "data-management",
		"reliability", "backlog", "routing", "prioritization", "git",
		"polish", "deployment", "priority-management", "workflow-optimization",
		"backlog-management", "analysis", "debugging", "script",
		"recommendations", "architecture", "categorization",
		"planning", "task-management", "data-integrity",
		"timestamps", "auto-fix", "migration",
		"enhancement", "code-analysis", "linting", "formatting", "type-checking",
		"standardization", "yaml", "documentation", "code-quality",
	}
}

const defaultHeader = `# taskboard configuration
#
# Lists replace the defaults wholesale when present; scalar sections merge
# key by key. TASKBOARD_LOG_LEVEL and TASKBOARD_LOG_FORMAT override log.
`

// WriteDefault writes the default configuration to path, creating parent
// directories as needed. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0644)
}
