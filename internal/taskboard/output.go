// JSON output shapes shared by the commands.
package taskboard

import (
	"encoding/json"
	"io"
	"time"
)

type taskOutput struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Agent          string   `json:"agent"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	Dependencies   []string `json:"dependencies"`
	Tags           []string `json:"tags"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
	DueDate        string   `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	ActualHours    *float64 `json:"actual_hours,omitempty"`
	Assignee       string   `json:"assignee,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	BlockedBy      []string `json:"blocked_by"`
	Overdue        bool     `json:"overdue,omitempty"`
	Path           string   `json:"path,omitempty"`
}

type initOutput struct {
	TaskboardDir string `json:"taskboard_dir"`
}

type whereOutput struct {
	TaskboardDir string `json:"taskboard_dir"`
	ProjectDir   string `json:"project_dir"`
}

type depsOutput struct {
	ID         string   `json:"id"`
	Chain      []string `json:"chain"`
	BlockedBy  []string `json:"blocked_by"`
	Dependents []string `json:"dependents"`
	InCycle    bool     `json:"in_cycle"`
}

type statusOutput struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Unblocked []string `json:"unblocked"`
}

type dupesOutput struct {
	Matches []Match        `json:"matches"`
	Stats   DuplicateStats `json:"stats"`
}

type statsOutput struct {
	Summary      Summary          `json:"summary"`
	Agents       []AgentStats     `json:"agents"`
	Bottlenecks  BottleneckReport `json:"bottlenecks"`
	Velocity     VelocityReport   `json:"velocity"`
	Dependencies DependencyReport `json:"dependencies"`
}

type exportOutput struct {
	ExportedAt string       `json:"exported_at"`
	Tasks      []taskOutput `json:"tasks"`
	Analytics  statsOutput  `json:"analytics"`
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func buildTaskOutput(store *Store, task *Task, now time.Time) taskOutput {
	out := taskOutput{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Agent:          task.Agent,
		Status:         string(task.Status),
		Priority:       string(task.Priority),
		Dependencies:   nonNil(task.Dependencies),
		Tags:           nonNil(task.Tags),
		CreatedAt:      formatTime(task.CreatedAt),
		UpdatedAt:      formatTime(task.UpdatedAt),
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		Assignee:       task.Assignee,
		Notes:          task.Notes,
		BlockedBy:      nonNil(store.BlockedBy(task.ID)),
		Overdue:        task.Overdue(now),
		Path:           store.Path(task.ID),
	}
	if task.DueDate != nil {
		out.DueDate = formatTime(*task.DueDate)
	}
	return out
}

func buildTaskOutputs(store *Store, tasks []*Task, now time.Time) []taskOutput {
	out := make([]taskOutput, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, buildTaskOutput(store, task, now))
	}
	return out
}

func buildStats(tasks []*Task, now time.Time, weeks int) statsOutput {
	return statsOutput{
		Summary:      Summarize(tasks, now),
		Agents:       AgentPerformance(tasks),
		Bottlenecks:  Bottlenecks(tasks, now),
		Velocity:     Velocity(tasks, now, weeks),
		Dependencies: DependencyAnalysis(tasks),
	}
}
