// Agent registry: known agent names, their capability keywords, and the
// rewrite rules used to move tasks off retired agent names.
package taskboard

import (
	"strings"

	"github.com/sandover/taskboard/internal/config"
)

type AgentRegistry struct {
	names      []string // declaration order; ties in scoring go to the earlier agent
	keywords   map[string][]string
	migrations map[string]string
	fallback   string
}

// NewAgentRegistry builds a registry from configuration.
func NewAgentRegistry(cfg *config.Config) *AgentRegistry {
	r := &AgentRegistry{
		keywords:   make(map[string][]string, len(cfg.Agents)),
		migrations: make(map[string]string, len(cfg.AgentMigrations)),
		fallback:   cfg.FallbackAgent,
	}
	for _, agent := range cfg.Agents {
		r.names = append(r.names, agent.Name)
		lowered := make([]string, 0, len(agent.Keywords))
		for _, kw := range agent.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				lowered = append(lowered, kw)
			}
		}
		r.keywords[agent.Name] = lowered
	}
	for _, m := range cfg.AgentMigrations {
		r.migrations[m.From] = m.To
	}
	return r
}

func (r *AgentRegistry) Known(agent string) bool {
	_, ok := r.keywords[agent]
	return ok
}

// Names returns registered agents in declaration order.
func (r *AgentRegistry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *AgentRegistry) Keywords(agent string) []string {
	return append([]string(nil), r.keywords[agent]...)
}

// Suggest proposes a registered agent for a task carrying an unknown agent
// name. Order: direct migration, best keyword score over the task text,
// then the fallback agent. Returns "" when the registry is empty.
func (r *AgentRegistry) Suggest(agent string, task *Task) string {
	if target, ok := r.migrations[agent]; ok && r.Known(target) {
		return target
	}
	text := taskText(task)
	best, bestScore := "", 0
	for _, name := range r.names {
		score := 0
		for _, kw := range r.keywords[name] {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best != "" {
		return best
	}
	if r.Known(r.fallback) {
		return r.fallback
	}
	if len(r.names) > 0 {
		return r.names[0]
	}
	return ""
}

// Matches reports whether any of agent's keywords occur in the task text.
// Agents without keywords match everything.
func (r *AgentRegistry) Matches(agent string, task *Task) bool {
	keywords := r.keywords[agent]
	if len(keywords) == 0 {
		return true
	}
	text := taskText(task)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func taskText(task *Task) string {
	if task == nil {
		return ""
	}
	parts := []string{task.Title, task.Description}
	parts = append(parts, task.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}
