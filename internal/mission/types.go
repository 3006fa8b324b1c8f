// Package mission defines the Mission Control entity model and the
// in-memory store that holds the client's authoritative view of it.
// Agents, tasks and projects mirror the objects served by the remote
// orchestration service; the store is the single mutation path that
// keeps user commands and pushed events from drifting apart.
package mission

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentIdle indicates the agent has no task in flight.
	AgentIdle AgentStatus = "idle"

	// AgentActive indicates the agent is working on a task.
	AgentActive AgentStatus = "active"
)

// String returns the string representation of the agent status.
func (s AgentStatus) String() string {
	return string(s)
}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskInbox indicates the task has been created but not assigned.
	TaskInbox TaskStatus = "inbox"

	// TaskAssigned indicates the task has at least one assignee.
	TaskAssigned TaskStatus = "assigned"

	// TaskInProgress indicates an agent is actively executing the task.
	TaskInProgress TaskStatus = "in_progress"

	// TaskReview indicates the task output is awaiting human review.
	TaskReview TaskStatus = "review"

	// TaskDone indicates the task finished successfully.
	TaskDone TaskStatus = "done"

	// TaskBlocked indicates execution failed or was stopped; a new run
	// command may return the task to in_progress.
	TaskBlocked TaskStatus = "blocked"

	// TaskSkipped indicates the task was skipped. Skipped tasks satisfy
	// dependents the same way done tasks do.
	TaskSkipped TaskStatus = "skipped"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
// Blocked is not terminal: a new run command may resume the task.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskDone || s == TaskSkipped
}

// Satisfies reports whether a blocker in this status releases its
// dependents.
func (s TaskStatus) Satisfies() bool {
	return s == TaskDone || s == TaskSkipped
}

// CanTransitionTo reports whether the documented state machine allows
// moving from this status to next. The lifecycle is
// inbox -> assigned -> in_progress -> {review, done, blocked, skipped};
// review -> done and blocked -> in_progress are the only ways forward
// from those states. Skip is allowed from any non-terminal state.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	if next == TaskSkipped {
		return !s.IsTerminal()
	}
	switch s {
	case TaskInbox:
		return next == TaskAssigned || next == TaskInProgress
	case TaskAssigned:
		return next == TaskInProgress
	case TaskInProgress:
		return next == TaskReview || next == TaskDone || next == TaskBlocked
	case TaskReview:
		return next == TaskDone || next == TaskBlocked
	case TaskBlocked:
		return next == TaskInProgress
	default:
		return false
	}
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// String returns the string representation of the priority.
func (p TaskPriority) String() string {
	return string(p)
}

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectDraft            ProjectStatus = "draft"
	ProjectPlanning         ProjectStatus = "planning"
	ProjectAwaitingApproval ProjectStatus = "awaiting_approval"
	ProjectApproved         ProjectStatus = "approved"
	ProjectExecuting        ProjectStatus = "executing"
	ProjectPaused           ProjectStatus = "paused"
	ProjectCompleted        ProjectStatus = "completed"
	ProjectFailed           ProjectStatus = "failed"
)

// String returns the string representation of the project status.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectCompleted || s == ProjectFailed
}

// OutputType classifies a chunk of streamed task output.
type OutputType string

const (
	// OutputMessage is plain agent output text.
	OutputMessage OutputType = "message"

	// OutputToolUse records a tool invocation by the agent.
	OutputToolUse OutputType = "tool_use"

	// OutputToolResult records the (truncated) result of a tool call.
	OutputToolResult OutputType = "tool_result"
)

// ActivityType classifies entries on the activity feed.
type ActivityType string

const (
	ActivityTaskCreated     ActivityType = "task_created"
	ActivityTaskUpdated     ActivityType = "task_updated"
	ActivityTaskCompleted   ActivityType = "task_completed"
	ActivityAgentJoined     ActivityType = "agent_joined"
	ActivityDocumentCreated ActivityType = "document_created"
)

// Agent is an AI agent profile known to Mission Control.
type Agent struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Role          string      `json:"role"`
	Description   string      `json:"description,omitempty"`
	Status        AgentStatus `json:"status"`
	CurrentTaskID string      `json:"current_task_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Task is a unit of work, optionally owned by a project and optionally
// blocked by other tasks. BlockedBy and Blocks are mirror images of the
// same dependency edges, stored as id sets.
type Task struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description,omitempty"`
	Priority          TaskPriority `json:"priority"`
	Status            TaskStatus   `json:"status"`
	AssigneeIDs       []string     `json:"assignee_ids,omitempty"`
	BlockedBy         []string     `json:"blocked_by,omitempty"`
	Blocks            []string     `json:"blocks,omitempty"`
	ProjectID         string       `json:"project_id,omitempty"`
	ActiveDescription string       `json:"active_description,omitempty"`
	EstimatedMinutes  int          `json:"estimated_minutes,omitempty"`
	StartedAt         *time.Time   `json:"started_at,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`

	// Seq is the store-local creation sequence, used as the stable
	// tie-break when grouping tasks into execution levels. It is not
	// part of the wire format.
	Seq int `json:"-"`
}

// HasAssignees reports whether the task has at least one assignee.
func (t *Task) HasAssignees() bool {
	return len(t.AssigneeIDs) > 0
}

// Progress summarizes project completion. Skipped tasks count toward
// the percent numerator alongside done tasks.
type Progress struct {
	Completed int     `json:"completed"`
	Skipped   int     `json:"skipped"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// Project groups tasks under a plan produced by the remote planner.
// ExecutionLevels and TaskLevelMap are authoritative when present;
// the client recomputes them only as a presentation fallback.
type Project struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Status          ProjectStatus  `json:"status"`
	Progress        Progress       `json:"progress"`
	ExecutionLevels [][]string     `json:"execution_levels,omitempty"`
	TaskLevelMap    map[string]int `json:"task_level_map,omitempty"`
	PRDDocumentID   string         `json:"prd_document_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Activity is one entry on the activity feed.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	AgentID   string       `json:"agent_id,omitempty"`
	TaskID    string       `json:"task_id,omitempty"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}
