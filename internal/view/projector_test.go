package view

import (
	"reflect"
	"testing"

	"github.com/shabbark/pocketpaw/internal/mission"
)

func levelIDs(levels []TaskLevel) [][]string {
	out := make([][]string, 0, len(levels))
	for _, l := range levels {
		ids := make([]string, 0, len(l.Tasks))
		for _, t := range l.Tasks {
			ids = append(ids, t.ID)
		}
		out = append(out, ids)
	}
	return out
}

func TestGroupTasksByLevelUsesAuthoritativeLevels(t *testing.T) {
	project := mission.Project{
		ID:              "p1",
		ExecutionLevels: [][]string{{"b"}, {"a"}},
	}
	tasks := []mission.Task{
		{ID: "a", Seq: 1},
		{ID: "b", Seq: 2},
	}

	got := levelIDs(GroupTasksByLevel(project, tasks))
	// The planner's layout wins even when a local recompute would
	// order differently.
	want := [][]string{{"b"}, {"a"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("levels = %v, want %v", got, want)
	}
}

func TestGroupTasksByLevelFallsBackToLocalCompute(t *testing.T) {
	project := mission.Project{ID: "p1"}
	tasks := []mission.Task{
		{ID: "a", Seq: 1},
		{ID: "b", Seq: 2, BlockedBy: []string{"a"}},
	}

	got := levelIDs(GroupTasksByLevel(project, tasks))
	want := [][]string{{"a"}, {"b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("levels = %v, want %v", got, want)
	}
}

func TestGroupTasksByLevelSkipsUnresolvableAndAppendsLeftovers(t *testing.T) {
	project := mission.Project{
		ID:              "p1",
		ExecutionLevels: [][]string{{"a", "deleted"}, {"b"}},
	}
	tasks := []mission.Task{
		{ID: "a"},
		{ID: "b"},
		{ID: "newcomer"},
	}

	got := levelIDs(GroupTasksByLevel(project, tasks))
	want := [][]string{{"a"}, {"b"}, {"newcomer"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("levels = %v, want %v", got, want)
	}
}

func TestBlockerNames(t *testing.T) {
	store := mission.NewStore()
	store.UpsertTask(mission.Task{ID: "dep-1", Title: "Design schema"})

	task := mission.Task{ID: "t", BlockedBy: []string{"dep-1", "0123456789abcdef"}}
	got := BlockerNames(store, task)
	want := []string{"Design schema", "task 01234567…"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BlockerNames() = %v, want %v", got, want)
	}
}

func TestIsReady(t *testing.T) {
	store := mission.NewStore()
	store.UpsertTask(mission.Task{ID: "done", Status: mission.TaskDone})
	store.UpsertTask(mission.Task{ID: "open", Status: mission.TaskInProgress})

	if !IsReady(store, mission.Task{ID: "t", BlockedBy: []string{"done"}}) {
		t.Error("done blocker should satisfy")
	}
	if IsReady(store, mission.Task{ID: "t", BlockedBy: []string{"open"}}) {
		t.Error("in-progress blocker should not satisfy")
	}
}

func TestTimelineScale(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []mission.Task
		expected int
	}{
		{"empty floors at 30", nil, 30},
		{"small estimates floor at 30", []mission.Task{{EstimatedMinutes: 10}}, 30},
		{"largest estimate wins", []mission.Task{{EstimatedMinutes: 45}, {EstimatedMinutes: 90}}, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimelineScale(tt.tasks); got != tt.expected {
				t.Errorf("TimelineScale() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestProgressLabel(t *testing.T) {
	got := ProgressLabel(mission.Progress{Completed: 2, Skipped: 1, Total: 7, Percent: 42.857})
	if got != "3/7 (42.9%)" {
		t.Errorf("ProgressLabel() = %q", got)
	}
}

func TestStatusVisualsUnknownStatus(t *testing.T) {
	v := TaskStatusVisual(mission.TaskStatus("future_state"))
	if v.Icon != "?" {
		t.Errorf("unknown task status icon = %q, want ?", v.Icon)
	}
	if v.Label != "future_state" {
		t.Errorf("unknown task status label = %q, want raw status", v.Label)
	}

	if AgentStatusVisual(mission.AgentStatus("odd")).Label != "unknown" {
		t.Error("unknown agent status should render the default visual")
	}
	if ProjectStatusVisual(mission.ProjectStatus("odd")).Label != "unknown" {
		t.Error("unknown project status should render the default visual")
	}
}

func TestOutputPrefix(t *testing.T) {
	if OutputPrefix(mission.OutputToolUse) != "⚙ " {
		t.Error("tool use prefix mismatch")
	}
	if OutputPrefix(mission.OutputToolResult) != "→ " {
		t.Error("tool result prefix mismatch")
	}
	if OutputPrefix(mission.OutputMessage) != "" {
		t.Error("plain messages carry no prefix")
	}
}
