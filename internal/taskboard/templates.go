// Task templates: named task shapes from config, filled in with key=value
// variables at creation time.
package taskboard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sandover/taskboard/internal/config"
)

// ErrUnknownTemplate is returned when --template names no configured template.
var ErrUnknownTemplate = errors.New("unknown template")

type Template struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Agent               string   `json:"agent"`
	Priority            Priority `json:"priority"`
	EstimatedHours      *float64 `json:"estimated_hours,omitempty"`
	Tags                []string `json:"tags"`
	DescriptionTemplate string   `json:"description_template"`
	DependenciesPattern []string `json:"dependencies_pattern"`
}

// TemplatesFromConfig converts configured templates, in declaration order.
// Priorities were checked when the config loaded; an empty one is medium.
func TemplatesFromConfig(cfg *config.Config) []Template {
	out := make([]Template, 0, len(cfg.Templates))
	for _, tc := range cfg.Templates {
		priority, err := ParsePriority(tc.Priority)
		if err != nil || tc.Priority == "" {
			priority = PriorityMedium
		}
		tmpl := Template{
			ID:                  tc.ID,
			Name:                tc.Name,
			Agent:               tc.Agent,
			Priority:            priority,
			Tags:                append([]string{}, tc.Tags...),
			DescriptionTemplate: tc.DescriptionTemplate,
			DependenciesPattern: append([]string{}, tc.DependenciesPattern...),
		}
		if tc.EstimatedHours > 0 {
			hours := tc.EstimatedHours
			tmpl.EstimatedHours = &hours
		}
		out = append(out, tmpl)
	}
	return out
}

func findTemplate(templates []Template, id string) (Template, error) {
	for _, tmpl := range templates {
		if tmpl.ID == id {
			return tmpl, nil
		}
	}
	return Template{}, fmt.Errorf("%w %q", ErrUnknownTemplate, id)
}

// FilterTemplates keeps templates for agent (when set) carrying any of tags
// (when set).
func FilterTemplates(templates []Template, agent string, tags []string) []Template {
	var out []Template
	for _, tmpl := range templates {
		if agent != "" && tmpl.Agent != agent {
			continue
		}
		if len(tags) > 0 && !anyShared(tmpl.Tags, tags) {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

func anyShared(a, b []string) bool {
	for _, item := range b {
		if containsString(a, item) {
			return true
		}
	}
	return false
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// templateVars lists the placeholder names a template understands, sorted.
func templateVars(t Template) []string {
	seen := make(map[string]struct{})
	for _, text := range append([]string{t.DescriptionTemplate}, t.DependenciesPattern...) {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// ParseTemplateVars turns ["k=v", ...] into a map. The value may contain '='.
func ParseTemplateVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("usage: template variable %q must be key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}

// Fields builds creation input from the template. Every {key} in the
// description is replaced by its variable; unknown placeholders are left as
// written. A dependency pattern becomes a dependency only when substitution
// changed it and no placeholder is left, so a pattern whose variable was not
// supplied is dropped. The task starts blocked when it has dependencies.
func (t Template) Fields(vars map[string]string) TaskFields {
	keys := sortedKeys(vars)
	substitute := func(text string) string {
		for _, key := range keys {
			text = strings.ReplaceAll(text, "{"+key+"}", vars[key])
		}
		return text
	}

	fields := TaskFields{
		Title:       t.Name,
		Description: strings.TrimSpace(substitute(t.DescriptionTemplate)),
		Agent:       t.Agent,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
		Status:      StatusTodo,
	}
	if t.EstimatedHours != nil {
		hours := *t.EstimatedHours
		fields.EstimatedHours = &hours
	}
	for _, pattern := range t.DependenciesPattern {
		dep := substitute(pattern)
		if dep == pattern || strings.ContainsAny(dep, "{}") {
			continue
		}
		fields.Dependencies = append(fields.Dependencies, dep)
	}
	if len(fields.Dependencies) > 0 {
		fields.Status = StatusBlocked
	}
	return fields
}

// overlay applies explicitly given fields on top of template fields.
// Dependencies are concatenated, given ones first.
func (f TaskFields) overlay(given TaskFields) TaskFields {
	out := f
	for _, s := range []struct {
		value string
		dst   *string
	}{
		{given.ID, &out.ID},
		{given.Title, &out.Title},
		{given.Description, &out.Description},
		{given.Agent, &out.Agent},
		{given.Assignee, &out.Assignee},
		{given.Notes, &out.Notes},
	} {
		if s.value != "" {
			*s.dst = s.value
		}
	}
	if given.Status != "" {
		out.Status = given.Status
	}
	if given.Priority != "" {
		out.Priority = given.Priority
	}
	if given.DueDate != nil {
		out.DueDate = given.DueDate
	}
	if given.EstimatedHours != nil {
		out.EstimatedHours = given.EstimatedHours
	}
	if given.ActualHours != nil {
		out.ActualHours = given.ActualHours
	}
	if len(given.Tags) > 0 {
		out.Tags = given.Tags
	}
	if len(given.Dependencies) > 0 {
		out.Dependencies = dedupeStrings(append(append([]string(nil), given.Dependencies...), f.Dependencies...))
		if given.Status == "" {
			out.Status = StatusBlocked
		}
	}
	return out
}
