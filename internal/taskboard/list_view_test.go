// Tests for list rendering: grouping, annotations, and width handling.
package taskboard

import (
	"bytes"
	"strings"
	"testing"
)

func TestVisibleLen_IgnoresANSI(t *testing.T) {
	if got := visibleLen(ansiRed + "abc" + ansiReset); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := visibleLen("日本"); got != 4 {
		t.Fatalf("expected wide runes to count double, got %d", got)
	}
}

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateToWidth(tt.input, tt.max); got != tt.expected {
			t.Errorf("truncateToWidth(%q, %d): expected %q, got %q", tt.input, tt.max, tt.expected, got)
		}
	}
	colored := ansiDim + "abcdefgh" + ansiReset
	if got := truncateToWidth(colored, 4); visibleLen(got) != 4 || !strings.HasPrefix(got, ansiDim) {
		t.Fatalf("expected escapes kept and width 4, got %q", got)
	}
}

func TestRenderListView_GroupsAndAnnotates(t *testing.T) {
	s, _, _ := newTestStore(t)
	past := testNow.Add(-1)
	mustCreate(t, s, TaskFields{ID: "A", Title: "Ship it", Agent: "DEVOPS", Priority: PriorityCritical, DueDate: &past})
	mustCreate(t, s, TaskFields{ID: "B", Title: "Wait for ship", Status: StatusBlocked, Dependencies: []string{"A"}})
	mustCreate(t, s, TaskFields{ID: "C", Title: "Old work", Status: StatusComplete})

	var buf bytes.Buffer
	renderListView(&buf, s, s.All(), false, 80, testNow)
	out := buf.String()

	todo := strings.Index(out, "Todo (1)")
	blocked := strings.Index(out, "Blocked (1)")
	done := strings.Index(out, "Done (1)")
	if todo < 0 || blocked < 0 || done < 0 {
		t.Fatalf("expected all three groups, got:\n%s", out)
	}
	if !(blocked < todo && todo < done) {
		t.Fatalf("expected workflow order blocked, todo, done, got:\n%s", out)
	}
	for _, want := range []string{"@DEVOPS", "!!", "overdue", "⧗ A", "1 ready · 1 blocked · 1 done"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("expected no escapes without color")
	}
}

func TestRenderListView_RightAlignsIDs(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "SHORT", Title: "a"})
	mustCreate(t, s, TaskFields{ID: "MUCH-LONGER-ID", Title: strings.Repeat("long title ", 10)})

	var buf bytes.Buffer
	renderListView(&buf, s, s.All(), false, 60, testNow)
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.HasPrefix(line, "  ○") {
			continue
		}
		if got := visibleLen(line); got != 60-idRightMargin {
			t.Errorf("expected line width %d, got %d: %q", 60-idRightMargin, got, line)
		}
		if !strings.HasSuffix(line, "SHORT") && !strings.HasSuffix(line, "MUCH-LONGER-ID") {
			t.Errorf("expected id at end of line: %q", line)
		}
	}
}

func TestRenderListView_ColorOn(t *testing.T) {
	s, _, _ := newTestStore(t)
	mustCreate(t, s, TaskFields{ID: "A", Title: "x"})
	var buf bytes.Buffer
	renderListView(&buf, s, s.All(), true, 80, testNow)
	if !strings.Contains(buf.String(), ansiBold) {
		t.Fatalf("expected bold headers with color, got %q", buf.String())
	}
}

func TestRenderSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, nil, false)
	if buf.Len() != 0 {
		t.Fatalf("expected no summary for no tasks, got %q", buf.String())
	}
}
