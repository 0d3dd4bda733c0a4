// Markdown task file encoding: YAML frontmatter header plus a rendered body.
//
// The frontmatter is authoritative; the body (title heading, description,
// notes) is regenerated on every write for humans browsing the directory.
//
// Two layouts are accepted on read:
//   - `---` fenced YAML frontmatter followed by an optional body
//   - legacy header-only files: `key: value` lines up to the first blank line
package taskboard

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontmatterFence = "---"

// taskFile is the on-disk frontmatter shape.
type taskFile struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	Agent          string   `yaml:"agent"`
	Status         string   `yaml:"status"`
	Priority       string   `yaml:"priority"`
	Dependencies   []string `yaml:"dependencies,flow"`
	Tags           []string `yaml:"tags,flow"`
	CreatedAt      string   `yaml:"created_at,omitempty"`
	UpdatedAt      string   `yaml:"updated_at,omitempty"`
	DueDate        string   `yaml:"due_date,omitempty"`
	EstimatedHours *float64 `yaml:"estimated_hours,omitempty"`
	ActualHours    *float64 `yaml:"actual_hours,omitempty"`
	Assignee       string   `yaml:"assignee,omitempty"`
	Notes          string   `yaml:"notes,omitempty"`
}

// encodeTask renders a task as a Markdown file with YAML frontmatter.
func encodeTask(task *Task) ([]byte, error) {
	tf := taskFile{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Agent:          task.Agent,
		Status:         string(task.Status),
		Priority:       string(task.Priority),
		Dependencies:   nonNil(task.Dependencies),
		Tags:           nonNil(task.Tags),
		CreatedAt:      formatOptionalTime(task.CreatedAt),
		UpdatedAt:      formatOptionalTime(task.UpdatedAt),
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Assignee:       task.Assignee,
		Notes:          task.Notes,
	}
	if task.DueDate != nil {
		tf.DueDate = formatTime(*task.DueDate)
	}
	header, err := yaml.Marshal(&tf)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterFence + "\n")
	buf.Write(header)
	buf.WriteString(frontmatterFence + "\n\n")
	fmt.Fprintf(&buf, "# %s\n\n", task.Title)
	if strings.Contains(task.Description, "\n") {
		fmt.Fprintf(&buf, "## Description\n\n%s\n\n", strings.TrimSpace(task.Description))
	}
	if strings.TrimSpace(task.Notes) != "" {
		fmt.Fprintf(&buf, "## Notes\n\n%s\n\n", strings.TrimSpace(task.Notes))
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// decodeTask parses either file layout. Missing id/status are left empty for
// the caller to infer from the file location.
func decodeTask(content []byte) (*Task, error) {
	trimmed := bytes.TrimLeft(content, "\ufeff \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty task file")
	}

	var tf taskFile
	if bytes.HasPrefix(trimmed, []byte(frontmatterFence)) {
		header, err := splitFrontmatter(trimmed)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(header, &tf); err != nil {
			return nil, fmt.Errorf("invalid frontmatter: %w", err)
		}
	} else {
		legacy, err := parseLegacyHeader(trimmed)
		if err != nil {
			return nil, err
		}
		tf = legacy
	}
	return tf.toTask()
}

// splitFrontmatter returns the YAML between the opening and closing fences.
func splitFrontmatter(content []byte) ([]byte, error) {
	reader := bufio.NewReader(bytes.NewReader(content))
	first, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(first) != frontmatterFence {
		return nil, errors.New("unterminated frontmatter")
	}
	var header bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == frontmatterFence {
			return header.Bytes(), nil
		}
		header.WriteString(line)
		if err != nil {
			return nil, errors.New("unterminated frontmatter")
		}
	}
}

// parseLegacyHeader reads `key: value` lines until the first blank line.
// List values accept `[a, b]` or `a, b`.
func parseLegacyHeader(content []byte) (taskFile, error) {
	var tf taskFile
	scanner := bufio.NewScanner(bytes.NewReader(content))
	seen := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if seen > 0 {
				break
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		seen++
		switch key {
		case "id":
			tf.ID = value
		case "title":
			tf.Title = value
		case "description":
			tf.Description = value
		case "agent":
			tf.Agent = value
		case "status":
			tf.Status = value
		case "priority":
			tf.Priority = value
		case "dependencies":
			tf.Dependencies = splitLegacyList(value)
		case "tags":
			tf.Tags = splitLegacyList(value)
		case "created_at":
			tf.CreatedAt = value
		case "updated_at":
			tf.UpdatedAt = value
		case "due_date":
			tf.DueDate = value
		case "assignee":
			tf.Assignee = value
		case "notes":
			tf.Notes = value
		case "estimated_hours", "actual_hours":
			if value == "" {
				continue
			}
			hours, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return tf, fmt.Errorf("invalid %s %q", key, value)
			}
			if key == "estimated_hours" {
				tf.EstimatedHours = &hours
			} else {
				tf.ActualHours = &hours
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return tf, err
	}
	if tf.ID == "" {
		return tf, errors.New("legacy task file has no id field")
	}
	return tf, nil
}

func splitLegacyList(value string) []string {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(value, "["), "]"))
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (tf taskFile) toTask() (*Task, error) {
	task := &Task{
		ID:             strings.TrimSpace(tf.ID),
		Title:          tf.Title,
		Description:    tf.Description,
		Agent:          tf.Agent,
		Dependencies:   tf.Dependencies,
		Tags:           tf.Tags,
		Notes:          tf.Notes,
		EstimatedHours: tf.EstimatedHours,
		ActualHours:    tf.ActualHours,
		Assignee:       tf.Assignee,
	}
	if strings.TrimSpace(tf.Status) != "" {
		status, err := ParseStatus(tf.Status)
		if err != nil {
			return nil, err
		}
		task.Status = status
	}
	priority, err := ParsePriority(tf.Priority)
	if err != nil {
		return nil, err
	}
	task.Priority = priority

	if task.CreatedAt, err = parseOptionalTime("created_at", tf.CreatedAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseOptionalTime("updated_at", tf.UpdatedAt); err != nil {
		return nil, err
	}
	due, err := parseOptionalTime("due_date", tf.DueDate)
	if err != nil {
		return nil, err
	}
	if !due.IsZero() {
		task.DueDate = &due
	}
	return task, nil
}

// Layouts seen in task files: RFC 3339 from this tool, naive ISO 8601 from
// older writers (interpreted as UTC), and bare dates for due dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseOptionalTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q (expected RFC 3339)", field, value)
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTime(t)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
