package mission

import (
	"sync"
	"time"
)

// lastActionLimit caps the length of the running summary taken from
// plain message output.
const lastActionLimit = 80

// OutputEntry is one chunk of streamed output from a running task.
type OutputEntry struct {
	Content string
	Type    OutputType
	At      time.Time
}

// RunningTaskHandle is the ephemeral bookkeeping for a task currently
// executing. It is keyed by task id, created by whichever of the run
// command or the task_started event lands first, and destroyed on
// completion or stop. It is never persisted; the remote service can
// always rebuild the picture.
type RunningTaskHandle struct {
	TaskID     string
	AgentID    string
	AgentName  string
	StartedAt  time.Time
	Output     []OutputEntry
	LastAction string
}

// HandleRegistry tracks the RunningTaskHandles for all in-flight tasks.
// All methods are safe for concurrent use.
type HandleRegistry struct {
	mu      sync.RWMutex
	handles map[string]*RunningTaskHandle
}

// NewHandleRegistry creates an empty registry.
func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{handles: make(map[string]*RunningTaskHandle)}
}

// Start registers a handle for the task. The first writer wins: if a
// handle already exists (the optimistic run command and the
// task_started event race for this slot) the existing handle is kept,
// its agent fields are refreshed from the event, and Start returns
// false.
func (r *HandleRegistry) Start(taskID, agentID, agentName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[taskID]; ok {
		if agentID != "" {
			h.AgentID = agentID
		}
		if agentName != "" {
			h.AgentName = agentName
		}
		return false
	}
	r.handles[taskID] = &RunningTaskHandle{
		TaskID:    taskID,
		AgentID:   agentID,
		AgentName: agentName,
		StartedAt: time.Now(),
	}
	return true
}

// AppendOutput records an output chunk on the task's handle and updates
// the last-action summary: tool invocations are kept whole, non-empty
// messages are truncated to the first 80 characters. Appending to an
// unknown task id is a no-op and returns false.
func (r *HandleRegistry) AppendOutput(taskID, content string, outputType OutputType) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[taskID]
	if !ok {
		return false
	}
	h.Output = append(h.Output, OutputEntry{Content: content, Type: outputType, At: time.Now()})
	switch outputType {
	case OutputToolUse:
		h.LastAction = content
	case OutputMessage:
		if content != "" {
			h.LastAction = truncate(content, lastActionLimit)
		}
	}
	return true
}

// Remove destroys the task's handle. Removing a handle that is already
// gone is a safe no-op (duplicate task_completed events, or a stop
// command racing the completion event) and returns false.
func (r *HandleRegistry) Remove(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[taskID]; !ok {
		return false
	}
	delete(r.handles, taskID)
	return true
}

// Get returns a copy of the task's handle, or false if the task is not
// running.
func (r *HandleRegistry) Get(taskID string) (RunningTaskHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[taskID]
	if !ok {
		return RunningTaskHandle{}, false
	}
	cp := *h
	cp.Output = make([]OutputEntry, len(h.Output))
	copy(cp.Output, h.Output)
	return cp, true
}

// IsRunning reports whether the task has a live handle. Handle presence
// is the tie-breaker for superseded commands: a stop that finds no
// handle has nothing to do regardless of network ordering.
func (r *HandleRegistry) IsRunning(taskID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[taskID]
	return ok
}

// Len returns the number of tasks currently running.
func (r *HandleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// RunningTaskIDs returns the ids of all running tasks.
func (r *HandleRegistry) RunningTaskIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for id := range r.handles {
		out = append(out, id)
	}
	return out
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
