package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "task.changed", "stream.connected")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Store Change Events
// -----------------------------------------------------------------------------

// TaskChangedEvent is published after a task is mutated in the store.
type TaskChangedEvent struct {
	baseEvent
	TaskID string
	Reason string // "started", "output", "completed", "command", "removed"
}

// NewTaskChangedEvent creates a TaskChangedEvent.
func NewTaskChangedEvent(taskID, reason string) TaskChangedEvent {
	return TaskChangedEvent{
		baseEvent: newBaseEvent("task.changed"),
		TaskID:    taskID,
		Reason:    reason,
	}
}

// AgentChangedEvent is published after an agent is mutated in the store.
type AgentChangedEvent struct {
	baseEvent
	AgentID string
}

// NewAgentChangedEvent creates an AgentChangedEvent.
func NewAgentChangedEvent(agentID string) AgentChangedEvent {
	return AgentChangedEvent{
		baseEvent: newBaseEvent("agent.changed"),
		AgentID:   agentID,
	}
}

// ProjectChangedEvent is published after a project is mutated in the
// store, including plan refreshes.
type ProjectChangedEvent struct {
	baseEvent
	ProjectID string
	Phase     string // planning phase label when driven by planning events
}

// NewProjectChangedEvent creates a ProjectChangedEvent.
func NewProjectChangedEvent(projectID, phase string) ProjectChangedEvent {
	return ProjectChangedEvent{
		baseEvent: newBaseEvent("project.changed"),
		ProjectID: projectID,
		Phase:     phase,
	}
}

// ActivityAddedEvent is published when a new entry lands on the
// activity feed.
type ActivityAddedEvent struct {
	baseEvent
	Message string
}

// NewActivityAddedEvent creates an ActivityAddedEvent.
func NewActivityAddedEvent(message string) ActivityAddedEvent {
	return ActivityAddedEvent{
		baseEvent: newBaseEvent("activity.added"),
		Message:   message,
	}
}

// -----------------------------------------------------------------------------
// Stream Lifecycle Events
// -----------------------------------------------------------------------------

// StreamStateEvent is published when the event stream connects or
// drops; the dashboard uses it for the connection indicator.
type StreamStateEvent struct {
	baseEvent
	Connected bool
	Error     string // last error when disconnected
}

// NewStreamStateEvent creates a StreamStateEvent.
func NewStreamStateEvent(connected bool, errMsg string) StreamStateEvent {
	return StreamStateEvent{
		baseEvent: newBaseEvent("stream.state"),
		Connected: connected,
		Error:     errMsg,
	}
}
