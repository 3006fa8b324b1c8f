package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/shabbark/pocketpaw/internal/mission"
)

// Wire event types delivered on the service's push stream.
const (
	EventTaskStarted      = "mc_task_started"
	EventTaskOutput       = "mc_task_output"
	EventTaskCompleted    = "mc_task_completed"
	EventActivityCreated  = "mc_activity_created"
	EventPlanningPhase    = "dw_planning_phase"
	EventPlanningComplete = "dw_planning_complete"
)

// Envelope is the typed wrapper around every pushed event.
type Envelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a raw stream frame into an Envelope.
func ParseEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed event envelope: %w", err)
	}
	if env.EventType == "" {
		return Envelope{}, fmt.Errorf("event envelope missing event_type")
	}
	return env, nil
}

// TaskStartedData announces that an agent began executing a task.
type TaskStartedData struct {
	TaskID    string `json:"task_id"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	TaskTitle string `json:"task_title"`
}

// TaskOutputData carries one chunk of streamed output.
type TaskOutputData struct {
	TaskID     string             `json:"task_id"`
	Content    string             `json:"content"`
	OutputType mission.OutputType `json:"output_type"`
}

// Terminal statuses carried by task_completed events.
const (
	CompletionCompleted = "completed"
	CompletionError     = "error"
	CompletionStopped   = "stopped"
)

// TaskCompletedData announces that execution ended.
type TaskCompletedData struct {
	TaskID  string `json:"task_id"`
	AgentID string `json:"agent_id"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// ActivityCreatedData carries a new activity feed entry.
type ActivityCreatedData struct {
	Activity mission.Activity `json:"activity"`
}

// PlanningPhaseData reports progress of the remote planner.
type PlanningPhaseData struct {
	ProjectID string `json:"project_id"`
	Phase     string `json:"phase"`
	Message   string `json:"message,omitempty"`
}

// PlanningCompleteData reports the outcome of remote planning.
type PlanningCompleteData struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}
