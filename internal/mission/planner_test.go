package mission

import (
	"reflect"
	"testing"
)

func depTask(id string, seq int, blockedBy ...string) Task {
	return Task{ID: id, Title: id, Status: TaskInbox, Seq: seq, BlockedBy: blockedBy}
}

func TestComputeExecutionLevels(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []Task
		expected [][]string
	}{
		{
			name:     "empty set",
			tasks:    nil,
			expected: [][]string{},
		},
		{
			name: "independent tasks share level zero",
			tasks: []Task{
				depTask("a", 1),
				depTask("b", 2),
				depTask("c", 3),
			},
			expected: [][]string{{"a", "b", "c"}},
		},
		{
			name: "linear chain",
			tasks: []Task{
				depTask("a", 1),
				depTask("b", 2, "a"),
				depTask("c", 3, "b"),
			},
			expected: [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name: "diamond",
			tasks: []Task{
				depTask("a", 1),
				depTask("b", 2, "a"),
				depTask("c", 3, "a"),
				depTask("d", 4, "b", "c"),
			},
			expected: [][]string{{"a"}, {"b", "c"}, {"d"}},
		},
		{
			name: "blocker outside the set is ignored",
			tasks: []Task{
				depTask("a", 1, "ghost"),
				depTask("b", 2, "a"),
			},
			expected: [][]string{{"a"}, {"b"}},
		},
		{
			name: "cycle collects into overflow level",
			tasks: []Task{
				depTask("a", 1),
				depTask("b", 2, "c"),
				depTask("c", 3, "b"),
			},
			expected: [][]string{{"a"}, {"b", "c"}},
		},
		{
			name: "creation order breaks ties within a level",
			tasks: []Task{
				depTask("z", 3),
				depTask("a", 1),
				depTask("m", 2),
			},
			expected: [][]string{{"a", "m", "z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels, levelMap := ComputeExecutionLevels(tt.tasks)
			if !reflect.DeepEqual(levels, tt.expected) {
				t.Errorf("levels = %v, want %v", levels, tt.expected)
			}
			for i, ids := range tt.expected {
				for _, id := range ids {
					if levelMap[id] != i {
						t.Errorf("levelMap[%s] = %d, want %d", id, levelMap[id], i)
					}
				}
			}
		})
	}
}

func TestIsTaskReady(t *testing.T) {
	known := map[string]Task{
		"done":    {ID: "done", Status: TaskDone},
		"skipped": {ID: "skipped", Status: TaskSkipped},
		"pending": {ID: "pending", Status: TaskInProgress},
	}
	lookup := func(id string) (Task, bool) {
		task, ok := known[id]
		return task, ok
	}

	tests := []struct {
		name     string
		task     Task
		expected bool
	}{
		{
			name:     "no blockers",
			task:     Task{ID: "t"},
			expected: true,
		},
		{
			name:     "done blocker satisfies",
			task:     Task{ID: "t", BlockedBy: []string{"done"}},
			expected: true,
		},
		{
			name:     "skipped blocker satisfies",
			task:     Task{ID: "t", BlockedBy: []string{"skipped"}},
			expected: true,
		},
		{
			name:     "in-progress blocker does not satisfy",
			task:     Task{ID: "t", BlockedBy: []string{"done", "pending"}},
			expected: false,
		},
		{
			name:     "unknown blocker counts as unsatisfied",
			task:     Task{ID: "t", BlockedBy: []string{"ghost"}},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTaskReady(tt.task, lookup); got != tt.expected {
				t.Errorf("IsTaskReady() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUnsatisfiedBlockers(t *testing.T) {
	lookup := func(id string) (Task, bool) {
		if id == "done" {
			return Task{ID: "done", Status: TaskDone}, true
		}
		if id == "open" {
			return Task{ID: "open", Status: TaskAssigned}, true
		}
		return Task{}, false
	}

	task := Task{ID: "t", BlockedBy: []string{"done", "open", "ghost"}}
	got := UnsatisfiedBlockers(task, lookup)
	want := []string{"open", "ghost"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UnsatisfiedBlockers() = %v, want %v", got, want)
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []Task
		expected Progress
	}{
		{
			name:     "empty project",
			tasks:    nil,
			expected: Progress{},
		},
		{
			name: "skipped counts toward percent",
			tasks: []Task{
				{ID: "a", Status: TaskDone},
				{ID: "b", Status: TaskSkipped},
				{ID: "c", Status: TaskInProgress},
				{ID: "d", Status: TaskInbox},
			},
			expected: Progress{Completed: 1, Skipped: 1, Total: 4, Percent: 50},
		},
		{
			name: "all done",
			tasks: []Task{
				{ID: "a", Status: TaskDone},
				{ID: "b", Status: TaskDone},
			},
			expected: Progress{Completed: 2, Total: 2, Percent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeProgress(tt.tasks); got != tt.expected {
				t.Errorf("ComputeProgress() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}
