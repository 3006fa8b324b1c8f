// Package view provides the read-only queries the presentation layer
// consumes. Every function here reads store snapshots and derives; none
// of them mutate anything, and all of them tolerate missing or partial
// data, because the store may be ahead of or behind the remote service
// at any instant.
package view

import (
	"fmt"

	"github.com/shabbark/pocketpaw/internal/mission"
)

// minTimelineMinutes is the floor for the timeline scale so empty or
// tiny projects still render a usable axis.
const minTimelineMinutes = 30

// blockerIDDisplayLen is how much of an unresolvable blocker id to show.
const blockerIDDisplayLen = 8

// TaskLevel is one rendered execution level: an index plus the tasks
// that sit on it, in level order.
type TaskLevel struct {
	Index int
	Tasks []mission.Task
}

// GroupTasksByLevel arranges a project's tasks into execution levels
// for display. The project's authoritative levels are used when
// present; otherwise the levels are recomputed locally as a fallback.
// Task ids in the levels that no longer resolve locally are skipped,
// and tasks absent from the levels are appended as a trailing level so
// nothing disappears from the screen.
func GroupTasksByLevel(project mission.Project, tasks []mission.Task) []TaskLevel {
	levels := project.ExecutionLevels
	if len(levels) == 0 {
		levels, _ = mission.ComputeExecutionLevels(tasks)
	}

	byID := make(map[string]mission.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	seen := make(map[string]bool, len(tasks))
	out := make([]TaskLevel, 0, len(levels))
	for i, ids := range levels {
		level := TaskLevel{Index: i}
		for _, id := range ids {
			if t, ok := byID[id]; ok {
				level.Tasks = append(level.Tasks, t)
				seen[id] = true
			}
		}
		if len(level.Tasks) > 0 {
			out = append(out, level)
		}
	}

	var leftover []mission.Task
	for _, t := range tasks {
		if !seen[t.ID] {
			leftover = append(leftover, t)
		}
	}
	if len(leftover) > 0 {
		out = append(out, TaskLevel{Index: len(out), Tasks: leftover})
	}
	return out
}

// IsReady reports whether the task's blockers are all satisfied in the
// store.
func IsReady(store *mission.Store, t mission.Task) bool {
	return mission.IsTaskReady(t, store.GetTask)
}

// BlockerNames resolves the task's blockers to their titles for
// display. A blocker id with no local task falls back to a truncated
// id rather than an error: the task may belong to another client or
// may simply not have synced.
func BlockerNames(store *mission.Store, t mission.Task) []string {
	if len(t.BlockedBy) == 0 {
		return nil
	}
	names := make([]string, 0, len(t.BlockedBy))
	for _, id := range t.BlockedBy {
		if dep, ok := store.GetTask(id); ok && dep.Title != "" {
			names = append(names, dep.Title)
			continue
		}
		short := id
		if len(short) > blockerIDDisplayLen {
			short = short[:blockerIDDisplayLen]
		}
		names = append(names, fmt.Sprintf("task %s…", short))
	}
	return names
}

// TimelineScale returns the minute span the project timeline should
// cover: the largest task estimate, floored at 30 minutes.
func TimelineScale(tasks []mission.Task) int {
	scale := minTimelineMinutes
	for _, t := range tasks {
		if t.EstimatedMinutes > scale {
			scale = t.EstimatedMinutes
		}
	}
	return scale
}

// ProgressLabel renders project progress as "3/7 (42.9%)".
func ProgressLabel(p mission.Progress) string {
	done := p.Completed + p.Skipped
	return fmt.Sprintf("%d/%d (%.1f%%)", done, p.Total, p.Percent)
}
