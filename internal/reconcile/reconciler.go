// Package reconcile applies the service's pushed execution events to
// the local entity store. Events are applied synchronously in arrival
// order and idempotently: duplicates and references to entities the
// store no longer holds are safe no-ops. The reconciler is one of the
// two writers to the store; the command gateway is the other, and both
// go through the store's patch operations so neither can lose the
// other's update.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/logging"
	"github.com/shabbark/pocketpaw/internal/mission"
)

// Refresher pulls authoritative state from the remote service. The
// command gateway implements it. Plan layout after planning completes
// and after skips comes from here, never from local recomputation: the
// dependent-unblocking logic lives in the remote planner.
type Refresher interface {
	// FetchPlan re-fetches a project's plan and merges it into the store.
	FetchPlan(ctx context.Context, projectID string) error
	// FetchTask fetches a single task and merges it into the store.
	FetchTask(ctx context.Context, taskID string) error
}

// Stats are the dashboard counters maintained from completion events.
type Stats struct {
	CompletedToday int
	ActiveTasks    int
}

// Reconciler applies inbound event envelopes to the store and handle
// registry, publishes change notifications on the bus, and maintains
// the activity feed and counters.
//
// Apply must be called from a single goroutine per stream so that
// events for the same task keep their arrival order; the stream
// consumer guarantees this.
type Reconciler struct {
	store   *mission.Store
	handles *mission.HandleRegistry
	bus     *event.Bus
	log     *logging.Logger

	refresher Refresher

	mu        sync.Mutex
	feed      []mission.Activity
	feedLimit int
	stats     Stats
}

// New creates a Reconciler. feedLimit caps the activity feed; values
// below 1 fall back to 50.
func New(store *mission.Store, handles *mission.HandleRegistry, bus *event.Bus, log *logging.Logger, feedLimit int) *Reconciler {
	if feedLimit < 1 {
		feedLimit = 50
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Reconciler{
		store:     store,
		handles:   handles,
		bus:       bus,
		log:       log,
		feedLimit: feedLimit,
	}
}

// SetRefresher wires the gateway in after construction; the gateway and
// reconciler reference each other, so one side has to be set late.
func (r *Reconciler) SetRefresher(ref Refresher) {
	r.refresher = ref
}

// Apply routes one envelope to its handler. Unknown event types are
// ignored: the service is free to add event kinds the client does not
// understand yet. Malformed payloads are logged and dropped; nothing
// on this path may take the stream down.
func (r *Reconciler) Apply(env Envelope) {
	var err error
	switch env.EventType {
	case EventTaskStarted:
		err = decodeAndApply(env.Data, r.applyTaskStarted)
	case EventTaskOutput:
		err = decodeAndApply(env.Data, r.applyTaskOutput)
	case EventTaskCompleted:
		err = decodeAndApply(env.Data, r.applyTaskCompleted)
	case EventActivityCreated:
		err = decodeAndApply(env.Data, r.applyActivityCreated)
	case EventPlanningPhase:
		err = decodeAndApply(env.Data, r.applyPlanningPhase)
	case EventPlanningComplete:
		err = decodeAndApply(env.Data, r.applyPlanningComplete)
	default:
		r.log.Debug("ignoring unknown event type", "event_type", env.EventType)
		return
	}
	if err != nil {
		r.log.Warn("dropping malformed event", "event_type", env.EventType, "error", err)
	}
}

// decodeAndApply unmarshals the payload and hands it to the handler.
func decodeAndApply[T any](data json.RawMessage, apply func(T)) error {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	apply(payload)
	return nil
}

func (r *Reconciler) applyTaskStarted(d TaskStartedData) {
	if d.TaskID == "" {
		return
	}
	if _, ok := r.store.GetTask(d.TaskID); !ok {
		// The task was created by another client and has not synced
		// yet. Fetch it before registering anything: a handle without
		// a backing task would dangle forever.
		r.resolveOrphanStart(d)
		return
	}
	r.registerStart(d)
}

// resolveOrphanStart fetches the unknown task in the background and,
// if the fetch lands it in the store, applies the start. If the fetch
// fails the event is discarded.
func (r *Reconciler) resolveOrphanStart(d TaskStartedData) {
	if r.refresher == nil {
		r.log.Warn("discarding start event for unknown task", "task_id", d.TaskID)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.refresher.FetchTask(ctx, d.TaskID); err != nil {
			r.log.Warn("discarding start event for unfetchable task",
				"task_id", d.TaskID, "error", err)
			return
		}
		if _, ok := r.store.GetTask(d.TaskID); ok {
			r.registerStart(d)
		}
	}()
}

func (r *Reconciler) registerStart(d TaskStartedData) {
	created := r.handles.Start(d.TaskID, d.AgentID, d.AgentName)

	now := time.Now()
	status := mission.TaskInProgress
	desc := fmt.Sprintf("%s is working...", d.AgentName)
	r.store.ApplyTaskPatch(d.TaskID, mission.TaskPatch{
		Status:            &status,
		ActiveDescription: &desc,
		StartedAt:         &now,
	})

	if d.AgentID != "" {
		agentStatus := mission.AgentActive
		r.store.ApplyAgentPatch(d.AgentID, mission.AgentPatch{
			Status:        &agentStatus,
			CurrentTaskID: &d.TaskID,
		})
		r.bus.Publish(event.NewAgentChangedEvent(d.AgentID))
	}

	if created {
		r.mu.Lock()
		r.stats.ActiveTasks++
		r.mu.Unlock()
	}

	r.log.Info("task started", "task_id", d.TaskID, "agent", d.AgentName)
	r.bus.Publish(event.NewTaskChangedEvent(d.TaskID, "started"))
}

func (r *Reconciler) applyTaskOutput(d TaskOutputData) {
	if !r.handles.AppendOutput(d.TaskID, d.Content, d.OutputType) {
		// Output for a task with no handle: late chunk after
		// completion, or a task we chose not to track. Drop it.
		return
	}
	r.bus.Publish(event.NewTaskChangedEvent(d.TaskID, "output"))
}

func (r *Reconciler) applyTaskCompleted(d TaskCompletedData) {
	if !r.handles.Remove(d.TaskID) {
		// The handle is already gone: duplicate completion, or a stop
		// command already rolled the task back. Nothing to do.
		return
	}

	success := d.Status == CompletionCompleted
	patch := mission.TaskPatch{ClearActiveDesc: true}
	status := mission.TaskBlocked
	if success {
		status = mission.TaskDone
		now := time.Now()
		patch.CompletedAt = &now
	}
	patch.Status = &status
	r.store.ApplyTaskPatch(d.TaskID, patch)

	if d.AgentID != "" {
		idle := mission.AgentIdle
		r.store.ApplyAgentPatch(d.AgentID, mission.AgentPatch{
			Status:           &idle,
			ClearCurrentTask: true,
		})
		r.bus.Publish(event.NewAgentChangedEvent(d.AgentID))
	}

	if success {
		r.mu.Lock()
		r.stats.CompletedToday++
		if r.stats.ActiveTasks > 0 {
			r.stats.ActiveTasks--
		}
		r.mu.Unlock()
	}

	r.log.Info("task completed", "task_id", d.TaskID, "status", d.Status, "error", d.Error)
	r.bus.Publish(event.NewTaskChangedEvent(d.TaskID, "completed"))
}

func (r *Reconciler) applyActivityCreated(d ActivityCreatedData) {
	r.mu.Lock()
	r.feed = append([]mission.Activity{d.Activity}, r.feed...)
	if len(r.feed) > r.feedLimit {
		r.feed = r.feed[:r.feedLimit]
	}
	r.mu.Unlock()

	r.bus.Publish(event.NewActivityAddedEvent(d.Activity.Message))
}

func (r *Reconciler) applyPlanningPhase(d PlanningPhaseData) {
	if d.ProjectID == "" {
		return
	}
	status := mission.ProjectPlanning
	r.store.ApplyProjectPatch(d.ProjectID, mission.ProjectPatch{Status: &status})
	r.bus.Publish(event.NewProjectChangedEvent(d.ProjectID, d.Phase))
}

func (r *Reconciler) applyPlanningComplete(d PlanningCompleteData) {
	if d.ProjectID == "" {
		return
	}

	patch := mission.ProjectPatch{}
	var status mission.ProjectStatus
	if d.Status == CompletionCompleted {
		status = mission.ProjectAwaitingApproval
		if d.Title != "" {
			patch.Title = &d.Title
		}
	} else {
		status = mission.ProjectFailed
	}
	patch.Status = &status
	r.store.ApplyProjectPatch(d.ProjectID, patch)

	if status == mission.ProjectAwaitingApproval && r.refresher != nil {
		// The plan's execution levels are the planner's output; pull
		// them rather than recomputing locally. Done off the event
		// path so a slow fetch cannot block the stream.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := r.refresher.FetchPlan(ctx, d.ProjectID); err != nil {
				r.log.Warn("plan fetch after planning completion failed",
					"project_id", d.ProjectID, "error", err)
			}
		}()
	}

	r.log.Info("planning finished", "project_id", d.ProjectID, "status", d.Status)
	r.bus.Publish(event.NewProjectChangedEvent(d.ProjectID, "complete"))
}

// Feed returns a copy of the activity feed, most recent first.
func (r *Reconciler) Feed() []mission.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mission.Activity, len(r.feed))
	copy(out, r.feed)
	return out
}

// Snapshot returns the current counters.
func (r *Reconciler) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
