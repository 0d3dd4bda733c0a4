// Duplicate detection: pairwise similarity over the store's tasks.
//
// Text similarity is difflib's SequenceMatcher ratio (2·M/T) over the
// trimmed, lower-cased strings. A pair is reported only when its title or
// description crossed the configured threshold; agent, priority, tag and
// dependency signals can raise a score but never create a match.
package taskboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sandover/taskboard/internal/config"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceRank = map[Confidence]int{
	ConfidenceHigh:   0,
	ConfidenceMedium: 1,
	ConfidenceLow:    2,
}

// Fixed contributions of the exact-match signals.
const (
	agentMatchScore    = 1.0
	priorityMatchScore = 0.8
)

// Match is one candidate duplicate pair. FirstID sorts before SecondID in
// store iteration order.
type Match struct {
	FirstID       string     `json:"first_id"`
	SecondID      string     `json:"second_id"`
	Score         float64    `json:"score"`
	TitleRatio    float64    `json:"title_ratio"`
	Criteria      []string   `json:"criteria"`
	Confidence    Confidence `json:"confidence"`
	AutoMergeable bool       `json:"auto_mergeable"`
}

func (m Match) String() string {
	return fmt.Sprintf("%s ~ %s %.2f %s [%s]", m.FirstID, m.SecondID, m.Score, m.Confidence, strings.Join(m.Criteria, ","))
}

type Deduplicator struct {
	store    *Store
	cfg      config.DedupConfig
	notifier Notifier
	clock    func() time.Time
}

type DedupOption func(*Deduplicator)

func WithDedupNotifier(n Notifier) DedupOption {
	return func(d *Deduplicator) {
		if n != nil {
			d.notifier = n
		}
	}
}

func WithDedupClock(now func() time.Time) DedupOption {
	return func(d *Deduplicator) {
		if now != nil {
			d.clock = now
		}
	}
}

func NewDeduplicator(store *Store, cfg config.DedupConfig, opts ...DedupOption) *Deduplicator {
	d := &Deduplicator{store: store, cfg: cfg, notifier: Discard, clock: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Deduplicator) now() time.Time {
	return d.clock().UTC().Truncate(time.Second)
}

// Similarity returns the SequenceMatcher ratio of two strings after trimming
// and lower-casing. Two empty strings are identical; one empty string
// matches nothing.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	switch {
	case a == "" && b == "":
		return 1
	case a == "" || b == "":
		return 0
	case a == b:
		return 1
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// jaccard is |a∩b| / |a∪b| over the distinct values of each list.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, item := range a {
		setA[item] = struct{}{}
	}
	union := len(setA)
	inter := 0
	seenB := make(map[string]struct{}, len(b))
	for _, item := range b {
		if _, dup := seenB[item]; dup {
			continue
		}
		seenB[item] = struct{}{}
		if _, ok := setA[item]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Analyze scores a pair. ok is false when neither title nor description is
// similar enough for the pair to count as a duplicate.
func (d *Deduplicator) Analyze(a, b *Task) (match Match, ok bool) {
	var criteria []string
	var scores []float64

	titleRatio := Similarity(a.Title, b.Title)
	if titleRatio > d.cfg.TitleThreshold {
		criteria = append(criteria, "title")
		scores = append(scores, titleRatio)
	}
	if strings.TrimSpace(a.Description) != "" && strings.TrimSpace(b.Description) != "" {
		if ratio := Similarity(a.Description, b.Description); ratio > d.cfg.DescriptionThreshold {
			criteria = append(criteria, "description")
			scores = append(scores, ratio)
		}
	}
	if len(criteria) == 0 {
		return Match{}, false
	}

	if a.Agent == b.Agent {
		criteria = append(criteria, "agent")
		scores = append(scores, agentMatchScore)
	}
	if a.Priority == b.Priority {
		criteria = append(criteria, "priority")
		scores = append(scores, priorityMatchScore)
	}
	if len(a.Tags) > 0 && len(b.Tags) > 0 {
		if overlap := jaccard(a.Tags, b.Tags); overlap > d.cfg.TagThreshold {
			criteria = append(criteria, "tags")
			scores = append(scores, overlap)
		}
	}
	if len(a.Dependencies) > 0 && len(b.Dependencies) > 0 {
		if overlap := jaccard(a.Dependencies, b.Dependencies); overlap > d.cfg.DependencyThreshold {
			criteria = append(criteria, "dependencies")
			scores = append(scores, overlap)
		}
	}

	total := 0.0
	for _, s := range scores {
		total += s
	}
	score := total / float64(len(scores))

	return Match{
		FirstID:       a.ID,
		SecondID:      b.ID,
		Score:         score,
		TitleRatio:    titleRatio,
		Criteria:      criteria,
		Confidence:    d.confidence(score),
		AutoMergeable: score >= d.cfg.AutoMergeScore || (titleRatio == 1 && a.Agent == b.Agent),
	}, true
}

func (d *Deduplicator) confidence(score float64) Confidence {
	switch {
	case score >= d.cfg.HighConfidence:
		return ConfidenceHigh
	case score >= d.cfg.MediumConfidence:
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// FindDuplicates compares every pair of tasks, skipping complete tasks unless
// includeCompleted is set. Results are ordered by confidence, then score,
// then ids.
func (d *Deduplicator) FindDuplicates(includeCompleted bool) []Match {
	var tasks []*Task
	for _, id := range sortedKeys(d.store.tasks) {
		task := d.store.tasks[id]
		if !includeCompleted && task.Status == StatusComplete {
			continue
		}
		tasks = append(tasks, task)
	}

	var matches []Match
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			if m, ok := d.Analyze(tasks[i], tasks[j]); ok {
				matches = append(matches, m)
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if confidenceRank[a.Confidence] != confidenceRank[b.Confidence] {
			return confidenceRank[a.Confidence] < confidenceRank[b.Confidence]
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FirstID != b.FirstID {
			return a.FirstID < b.FirstID
		}
		return a.SecondID < b.SecondID
	})
	return matches
}

// DuplicateStats summarizes FindDuplicates output.
type DuplicateStats struct {
	Total         int            `json:"total"`
	AutoMergeable int            `json:"auto_mergeable"`
	High          int            `json:"high_confidence"`
	Medium        int            `json:"medium_confidence"`
	Low           int            `json:"low_confidence"`
	ByCriteria    map[string]int `json:"by_criteria"`
}

func SummarizeMatches(matches []Match) DuplicateStats {
	stats := DuplicateStats{Total: len(matches), ByCriteria: make(map[string]int)}
	for _, m := range matches {
		if m.AutoMergeable {
			stats.AutoMergeable++
		}
		switch m.Confidence {
		case ConfidenceHigh:
			stats.High++
		case ConfidenceMedium:
			stats.Medium++
		default:
			stats.Low++
		}
		for _, c := range m.Criteria {
			stats.ByCriteria[c]++
		}
	}
	return stats
}

func (d *Deduplicator) Stats(includeCompleted bool) DuplicateStats {
	return SummarizeMatches(d.FindDuplicates(includeCompleted))
}
