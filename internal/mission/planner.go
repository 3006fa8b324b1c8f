package mission

import "sort"

// ComputeExecutionLevels groups tasks into dependency levels: level 0
// holds tasks with no blockers inside the set, and level k holds tasks
// whose in-set blockers all sit at levels below k. Within a level,
// tasks keep their creation order. The authoritative levels come from
// the remote planner; this is the presentation fallback used when a
// project carries no levels.
//
// Blockers that reference ids outside the task set are ignored for
// layering purposes. Tasks caught in a dependency cycle can never be
// placed, so after the layering stalls they are collected into one
// final overflow level instead of being dropped.
func ComputeExecutionLevels(tasks []Task) ([][]string, map[string]int) {
	levels := make([][]string, 0)
	levelMap := make(map[string]int, len(tasks))
	if len(tasks) == 0 {
		return levels, levelMap
	}

	ordered := make([]Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	inSet := make(map[string]bool, len(ordered))
	for _, t := range ordered {
		inSet[t.ID] = true
	}

	placed := make(map[string]bool, len(ordered))
	for len(placed) < len(ordered) {
		var current []string
		for _, t := range ordered {
			if placed[t.ID] {
				continue
			}
			ready := true
			for _, depID := range t.BlockedBy {
				if inSet[depID] && !placed[depID] {
					ready = false
					break
				}
			}
			if ready {
				current = append(current, t.ID)
			}
		}

		if len(current) == 0 {
			// Remaining tasks form one or more cycles. Put them all in
			// a final overflow level, preserving creation order.
			var overflow []string
			for _, t := range ordered {
				if !placed[t.ID] {
					overflow = append(overflow, t.ID)
					placed[t.ID] = true
				}
			}
			for _, id := range overflow {
				levelMap[id] = len(levels)
			}
			levels = append(levels, overflow)
			break
		}

		for _, id := range current {
			placed[id] = true
			levelMap[id] = len(levels)
		}
		levels = append(levels, current)
	}

	return levels, levelMap
}

// IsTaskReady reports whether every blocker of the task resolves to a
// task whose status satisfies dependents (done or skipped). Tasks with
// no blockers are always ready. A blocker id that does not resolve in
// the lookup counts as unsatisfied: an unknown blocker may simply not
// have synced yet, and guessing ready would start work too early.
func IsTaskReady(t Task, lookup func(id string) (Task, bool)) bool {
	for _, depID := range t.BlockedBy {
		dep, ok := lookup(depID)
		if !ok || !dep.Status.Satisfies() {
			return false
		}
	}
	return true
}

// UnsatisfiedBlockers returns the ids of blockers that have not yet
// reached a satisfying status, in the order they appear on the task.
func UnsatisfiedBlockers(t Task, lookup func(id string) (Task, bool)) []string {
	var out []string
	for _, depID := range t.BlockedBy {
		dep, ok := lookup(depID)
		if !ok || !dep.Status.Satisfies() {
			out = append(out, depID)
		}
	}
	return out
}

// ComputeProgress tallies project completion the way the service does:
// done and skipped both count toward the percent numerator.
func ComputeProgress(tasks []Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskDone:
			p.Completed++
		case TaskSkipped:
			p.Skipped++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed+p.Skipped) / float64(p.Total) * 100
	}
	return p
}
