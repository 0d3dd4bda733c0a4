package taskboard

import (
	"testing"

	"github.com/sandover/taskboard/internal/config"
)

func TestAgentRegistry_Suggest(t *testing.T) {
	r := NewAgentRegistry(config.DefaultConfig())
	tests := []struct {
		name     string
		agent    string
		task     *Task
		expected string
	}{
		{"migration", "TheArchitect", &Task{Title: "anything"}, "ARCHITECT"},
		{"keyword", "SomeBot", &Task{Title: "Deploy the pipeline"}, "DEVOPS"},
		{"first agent wins ties", "SomeBot", &Task{Title: "implement it"}, "CODEFORGE"},
		{"tags count", "SomeBot", &Task{Title: "x", Tags: []string{"security"}}, "SECURITY"},
		{"fallback", "SomeBot", &Task{Title: "nothing relevant"}, "DEVELOPER"},
	}
	for _, tt := range tests {
		if got := r.Suggest(tt.agent, tt.task); got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.expected, got)
		}
	}
}

func TestAgentRegistry_EmptyConfig(t *testing.T) {
	r := NewAgentRegistry(&config.Config{FallbackAgent: "DEVELOPER"})
	if got := r.Suggest("X", &Task{Title: "build"}); got != "" {
		t.Fatalf("expected no suggestion from an empty registry, got %q", got)
	}
	if r.Known("DEVELOPER") {
		t.Fatal("expected unregistered fallback to be unknown")
	}
}

func TestAgentRegistry_Matches(t *testing.T) {
	cfg := &config.Config{Agents: []config.AgentConfig{
		{Name: "TESTER", Keywords: []string{" Testing ", ""}},
		{Name: "FREE"},
	}}
	r := NewAgentRegistry(cfg)
	if !r.Matches("TESTER", &Task{Title: "More TESTING please"}) {
		t.Fatal("expected case-insensitive keyword match")
	}
	if r.Matches("TESTER", &Task{Title: "write docs"}) {
		t.Fatal("expected no match")
	}
	if !r.Matches("FREE", &Task{Title: "anything"}) {
		t.Fatal("expected agents without keywords to match everything")
	}
	if kws := r.Keywords("TESTER"); len(kws) != 1 || kws[0] != "testing" {
		t.Fatalf("expected normalized keywords, got %v", kws)
	}
	if names := r.Names(); len(names) != 2 || names[0] != "TESTER" {
		t.Fatalf("expected declaration order, got %v", names)
	}
}
