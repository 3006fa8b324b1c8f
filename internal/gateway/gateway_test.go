package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shabbark/pocketpaw/internal/errors"
	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/mission"
)

// fixture wires a gateway against a test HTTP server.
type fixture struct {
	gw      *Gateway
	store   *mission.Store
	handles *mission.HandleRegistry
	server  *httptest.Server

	mu       sync.Mutex
	requests []string
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	f := &fixture{
		store:   mission.NewStore(),
		handles: mission.NewHandleRegistry(),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	client := NewClient(f.server.URL)
	f.gw = New(client, f.store, f.handles, event.NewBus(), nil, 2)
	return f
}

func (f *fixture) sawRequest(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == s {
			return true
		}
	}
	return false
}

func (f *fixture) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func jsonHandler(status int, body any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

func TestCreateAgentValidation(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, mission.Agent{ID: "a1"}))

	tests := []struct {
		name      string
		agentName string
		role      string
	}{
		{"empty name", "", "scout"},
		{"blank name", "   ", "scout"},
		{"empty role", "Scout", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gw.CreateAgent(context.Background(), tt.agentName, tt.role, "")
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}

	if f.requestCount() != 0 {
		t.Error("validation failures must not reach the network")
	}
}

func TestCreateAgentMergesResponse(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, mission.Agent{
		ID: "a1", Name: "Scout", Role: "researcher", Status: mission.AgentIdle,
	}))

	agent, err := f.gw.CreateAgent(context.Background(), "Scout", "researcher", "")
	if err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	if agent.ID != "a1" {
		t.Errorf("agent.ID = %q", agent.ID)
	}
	if _, ok := f.store.GetAgent("a1"); !ok {
		t.Error("agent should be merged into the store")
	}
}

func TestRunTaskValidation(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, taskResponse{Success: true}))
	f.store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout"})
	f.store.UpsertTask(mission.Task{ID: "unassigned", Status: mission.TaskInbox})
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskAssigned, AssigneeIDs: []string{"a1"}})

	tests := []struct {
		name     string
		taskID   string
		agentID  string
		prepare  func()
		sentinel error
	}{
		{
			name:     "unknown task",
			taskID:   "ghost",
			sentinel: errors.ErrTaskNotFound,
		},
		{
			name:     "no assignee",
			taskID:   "unassigned",
			sentinel: errors.ErrNoAssignee,
		},
		{
			name:     "unknown agent",
			taskID:   "t1",
			agentID:  "ghost",
			sentinel: errors.ErrAgentNotFound,
		},
		{
			name:   "already running",
			taskID: "t1",
			prepare: func() {
				f.handles.Start("t1", "a1", "Scout")
			},
			sentinel: errors.ErrTaskAlreadyRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepare != nil {
				tt.prepare()
			}
			err := f.gw.RunTask(context.Background(), tt.taskID, tt.agentID)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestRunTaskAtCapacity(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, taskResponse{Success: true}))
	f.store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout"})
	f.store.UpsertTask(mission.Task{ID: "t3", Status: mission.TaskAssigned, AssigneeIDs: []string{"a1"}})

	// The fixture's gateway caps concurrency at 2.
	f.handles.Start("t1", "a1", "Scout")
	f.handles.Start("t2", "a1", "Scout")

	err := f.gw.RunTask(context.Background(), "t3", "")
	if !errors.Is(err, errors.ErrAtCapacity) {
		t.Errorf("error = %v, want ErrAtCapacity", err)
	}
}

func TestRunTaskFailureRollsBackHandle(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusInternalServerError, map[string]string{"detail": "boom"}))
	f.store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout"})
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskAssigned, AssigneeIDs: []string{"a1"}})

	err := f.gw.RunTask(context.Background(), "t1", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if f.handles.IsRunning("t1") {
		t.Error("optimistic handle must be rolled back on failure")
	}
	task, _ := f.store.GetTask("t1")
	if task.Status != mission.TaskAssigned {
		t.Errorf("task status = %s, local state must be untouched", task.Status)
	}
	if !errors.IsRetryable(err) {
		t.Error("5xx failures should be retryable")
	}
}

func TestRunTaskSuccess(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, taskResponse{
		Success: true,
		Task:    mission.Task{ID: "t1", Status: mission.TaskInProgress, AssigneeIDs: []string{"a1"}},
	}))
	f.store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout"})
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskAssigned, AssigneeIDs: []string{"a1"}})

	if err := f.gw.RunTask(context.Background(), "t1", ""); err != nil {
		t.Fatalf("RunTask() error = %v", err)
	}
	if !f.handles.IsRunning("t1") {
		t.Error("handle should survive a successful run")
	}
	h, _ := f.handles.Get("t1")
	if h.AgentID != "a1" {
		t.Errorf("handle agent = %q, want first assignee", h.AgentID)
	}
	task, _ := f.store.GetTask("t1")
	if task.Status != mission.TaskInProgress {
		t.Errorf("task status = %s, want server truth merged", task.Status)
	}
}

func TestStopTaskRequiresHandle(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, map[string]bool{"success": true}))

	err := f.gw.StopTask(context.Background(), "t1")
	if !errors.Is(err, errors.ErrTaskNotRunning) {
		t.Errorf("error = %v, want ErrTaskNotRunning", err)
	}
	if f.requestCount() != 0 {
		t.Error("stop without a handle must not reach the network")
	}
}

func TestStopTaskRollsTaskBack(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, map[string]bool{"success": true}))
	f.store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout", Status: mission.AgentActive, CurrentTaskID: "t1"})
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskInProgress, ActiveDescription: "Scout is working..."})
	f.handles.Start("t1", "a1", "Scout")

	if err := f.gw.StopTask(context.Background(), "t1"); err != nil {
		t.Fatalf("StopTask() error = %v", err)
	}
	if f.handles.IsRunning("t1") {
		t.Error("handle should be removed")
	}
	task, _ := f.store.GetTask("t1")
	if task.Status != mission.TaskBlocked || task.ActiveDescription != "" {
		t.Errorf("task not rolled back: %+v", task)
	}
	agent, _ := f.store.GetAgent("a1")
	if agent.Status != mission.AgentIdle || agent.CurrentTaskID != "" {
		t.Errorf("agent not reset: %+v", agent)
	}
}

func TestStopTaskFailureKeepsHandle(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusServiceUnavailable, map[string]string{"detail": "down"}))
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskInProgress})
	f.handles.Start("t1", "a1", "Scout")

	if err := f.gw.StopTask(context.Background(), "t1"); err == nil {
		t.Fatal("expected error")
	}
	if !f.handles.IsRunning("t1") {
		t.Error("failed stop must leave the handle in place")
	}
	task, _ := f.store.GetTask("t1")
	if task.Status != mission.TaskInProgress {
		t.Errorf("failed stop must leave the task alone, got %s", task.Status)
	}
}

func TestSkipTaskRefreshesPlan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/mission-control/tasks/t1/skip", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(taskResponse{
			Success: true,
			Task:    mission.Task{ID: "t1", Status: mission.TaskSkipped, ProjectID: "p1"},
		})
	})
	mux.HandleFunc("/api/deep-work/projects/p1/plan", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(planResponse{
			Project:         mission.Project{ID: "p1", Status: mission.ProjectExecuting},
			Tasks:           []mission.Task{{ID: "t1", Status: mission.TaskSkipped, ProjectID: "p1"}},
			ExecutionLevels: [][]string{{"t1"}},
		})
	})

	f := newFixture(t, mux)
	f.store.UpsertProject(mission.Project{ID: "p1", Status: mission.ProjectExecuting})
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskAssigned, ProjectID: "p1"})

	if err := f.gw.SkipTask(context.Background(), "t1"); err != nil {
		t.Fatalf("SkipTask() error = %v", err)
	}
	if !f.sawRequest("GET /api/deep-work/projects/p1/plan") {
		t.Error("skip must re-fetch the project plan")
	}
	p, _ := f.store.GetProject("p1")
	if len(p.ExecutionLevels) != 1 {
		t.Error("plan levels should be merged from the refresh")
	}
}

func TestSkipTaskRejectsTerminal(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, taskResponse{Success: true}))
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskDone})

	err := f.gw.SkipTask(context.Background(), "t1")
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateTaskStatusRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, taskResponse{Success: true}))
	f.store.UpsertTask(mission.Task{ID: "t1", Status: mission.TaskInbox})

	_, err := f.gw.UpdateTaskStatus(context.Background(), "t1", mission.TaskDone)
	if !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}
	if f.requestCount() != 0 {
		t.Error("forbidden transitions must not reach the network")
	}
}

func TestStartProjectValidation(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, projectResponse{Success: true}))

	_, err := f.gw.StartProject(context.Background(), "too short")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestStartProjectMergesProject(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, projectResponse{
		Success: true,
		Project: mission.Project{ID: "p1", Status: mission.ProjectPlanning},
	}))

	p, err := f.gw.StartProject(context.Background(), "build a small web crawler for docs")
	if err != nil {
		t.Fatalf("StartProject() error = %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("project.ID = %q", p.ID)
	}
	if _, ok := f.store.GetProject("p1"); !ok {
		t.Error("project should be merged into the store")
	}
}

func TestTransportFailureIsRetryable(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, nil))
	f.server.Close()

	_, err := f.gw.FetchAgents(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, errors.ErrServiceUnavailable) {
		t.Errorf("error = %v, want ErrServiceUnavailable", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("transport failures should be retryable")
	}
}

func TestFetchPlanMergesLevels(t *testing.T) {
	f := newFixture(t, jsonHandler(http.StatusOK, planResponse{
		Project:         mission.Project{ID: "p1", Status: mission.ProjectAwaitingApproval},
		Tasks:           []mission.Task{{ID: "t1", ProjectID: "p1"}, {ID: "t2", ProjectID: "p1", BlockedBy: []string{"t1"}}},
		Progress:        mission.Progress{Total: 2},
		ExecutionLevels: [][]string{{"t1"}, {"t2"}},
		TaskLevelMap:    map[string]int{"t1": 0, "t2": 1},
	}))

	if err := f.gw.FetchPlan(context.Background(), "p1"); err != nil {
		t.Fatalf("FetchPlan() error = %v", err)
	}

	p, ok := f.store.GetProject("p1")
	if !ok {
		t.Fatal("project should be in the store")
	}
	if len(p.ExecutionLevels) != 2 || p.TaskLevelMap["t2"] != 1 {
		t.Errorf("plan layout not merged: %+v", p)
	}
	if p.Progress.Total != 2 {
		t.Errorf("progress not merged: %+v", p.Progress)
	}
	if _, ok := f.store.GetTask("t2"); !ok {
		t.Error("plan tasks should be upserted")
	}
}
