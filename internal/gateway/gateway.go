package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shabbark/pocketpaw/internal/errors"
	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/logging"
	"github.com/shabbark/pocketpaw/internal/mission"
)

// Gateway issues commands against the remote service and merges the
// responses into the store. It never mutates entities directly: every
// merge goes through the store's upsert/patch operations, the same
// path the event reconciler uses.
type Gateway struct {
	client        *Client
	store         *mission.Store
	handles       *mission.HandleRegistry
	bus           *event.Bus
	log           *logging.Logger
	maxConcurrent int
}

// New creates a Gateway. maxConcurrent caps simultaneous running
// tasks; values below 1 fall back to 5.
func New(client *Client, store *mission.Store, handles *mission.HandleRegistry, bus *event.Bus, log *logging.Logger, maxConcurrent int) *Gateway {
	if maxConcurrent < 1 {
		maxConcurrent = 5
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Gateway{
		client:        client,
		store:         store,
		handles:       handles,
		bus:           bus,
		log:           log,
		maxConcurrent: maxConcurrent,
	}
}

// -----------------------------------------------------------------------------
// Agents
// -----------------------------------------------------------------------------

// CreateAgent registers a new agent with the service and stores the
// server's object.
func (g *Gateway) CreateAgent(ctx context.Context, name, role, description string) (mission.Agent, error) {
	if strings.TrimSpace(name) == "" {
		return mission.Agent{}, errors.NewValidationError("name", "must not be empty")
	}
	if strings.TrimSpace(role) == "" {
		return mission.Agent{}, errors.NewValidationError("role", "must not be empty")
	}

	var agent mission.Agent
	body := map[string]string{"name": name, "role": role, "description": description}
	if err := g.client.doJSON(ctx, "create agent", "POST", "/api/mission-control/agents", body, &agent); err != nil {
		return mission.Agent{}, err
	}

	g.store.UpsertAgent(agent)
	g.bus.Publish(event.NewAgentChangedEvent(agent.ID))
	return agent, nil
}

// DeleteAgent removes an agent on the service and locally.
func (g *Gateway) DeleteAgent(ctx context.Context, agentID string) error {
	if agentID == "" {
		return errors.NewValidationError("agent_id", "must not be empty")
	}
	path := "/api/mission-control/agents/" + url.PathEscape(agentID)
	if err := g.client.doJSON(ctx, "delete agent", "DELETE", path, nil, nil); err != nil {
		return err
	}
	g.store.RemoveAgent(agentID)
	g.bus.Publish(event.NewAgentChangedEvent(agentID))
	return nil
}

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

// NewTaskInput is the payload for task creation.
type NewTaskInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Priority    mission.TaskPriority `json:"priority,omitempty"`
	ProjectID   string               `json:"project_id,omitempty"`
	AssigneeIDs []string             `json:"assignee_ids,omitempty"`
	BlockedBy   []string             `json:"blocked_by,omitempty"`
}

// CreateTask creates a task on the service and stores the server's
// object.
func (g *Gateway) CreateTask(ctx context.Context, input NewTaskInput) (mission.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return mission.Task{}, errors.NewValidationError("title", "must not be empty")
	}
	if input.Priority == "" {
		input.Priority = mission.PriorityMedium
	}

	var task mission.Task
	if err := g.client.doJSON(ctx, "create task", "POST", "/api/mission-control/tasks", input, &task); err != nil {
		return mission.Task{}, err
	}

	g.store.UpsertTask(task)
	g.bus.Publish(event.NewTaskChangedEvent(task.ID, "command"))
	return task, nil
}

// DeleteTask removes a task on the service and locally.
func (g *Gateway) DeleteTask(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.NewValidationError("task_id", "must not be empty")
	}
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID)
	if err := g.client.doJSON(ctx, "delete task", "DELETE", path, nil, nil); err != nil {
		return err
	}
	g.store.RemoveTask(taskID)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "removed"))
	return nil
}

// taskResponse wraps command responses that return the updated task.
type taskResponse struct {
	Success bool         `json:"success"`
	Task    mission.Task `json:"task"`
}

// AssignTask replaces the task's assignee set with the given agents.
func (g *Gateway) AssignTask(ctx context.Context, taskID string, agentIDs []string) (mission.Task, error) {
	if taskID == "" {
		return mission.Task{}, errors.NewValidationError("task_id", "must not be empty")
	}
	if len(agentIDs) == 0 {
		return mission.Task{}, errors.NewValidationError("agent_ids", "must name at least one agent")
	}
	for _, id := range agentIDs {
		if _, ok := g.store.GetAgent(id); !ok {
			return mission.Task{}, errors.NewNotFoundError("agent", id)
		}
	}

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/assign"
	body := map[string][]string{"agent_ids": agentIDs}
	if err := g.client.doJSON(ctx, "assign task", "POST", path, body, &resp); err != nil {
		return mission.Task{}, err
	}

	g.store.UpsertTask(resp.Task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return resp.Task, nil
}

// UnassignTask removes one agent from the task's assignee set.
func (g *Gateway) UnassignTask(ctx context.Context, taskID, agentID string) (mission.Task, error) {
	if taskID == "" {
		return mission.Task{}, errors.NewValidationError("task_id", "must not be empty")
	}
	if agentID == "" {
		return mission.Task{}, errors.NewValidationError("agent_id", "must not be empty")
	}

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/unassign"
	body := map[string]string{"agent_id": agentID}
	if err := g.client.doJSON(ctx, "unassign task", "POST", path, body, &resp); err != nil {
		return mission.Task{}, err
	}

	g.store.UpsertTask(resp.Task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return resp.Task, nil
}

// UpdateTaskStatus moves the task along its lifecycle. Transitions the
// state machine forbids are rejected before any network call.
func (g *Gateway) UpdateTaskStatus(ctx context.Context, taskID string, status mission.TaskStatus) (mission.Task, error) {
	task, ok := g.store.GetTask(taskID)
	if !ok {
		return mission.Task{}, errors.NewNotFoundError("task", taskID)
	}
	if !task.Status.CanTransitionTo(status) {
		return mission.Task{}, fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, task.Status, status)
	}

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/status"
	body := map[string]string{"status": status.String()}
	if err := g.client.doJSON(ctx, "update status", "POST", path, body, &resp); err != nil {
		return mission.Task{}, err
	}

	g.store.UpsertTask(resp.Task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return resp.Task, nil
}

// UpdateTaskPriority changes the task's priority.
func (g *Gateway) UpdateTaskPriority(ctx context.Context, taskID string, priority mission.TaskPriority) (mission.Task, error) {
	if taskID == "" {
		return mission.Task{}, errors.NewValidationError("task_id", "must not be empty")
	}

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/priority"
	body := map[string]string{"priority": priority.String()}
	if err := g.client.doJSON(ctx, "update priority", "POST", path, body, &resp); err != nil {
		return mission.Task{}, err
	}

	g.store.UpsertTask(resp.Task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return resp.Task, nil
}

// -----------------------------------------------------------------------------
// Execution
// -----------------------------------------------------------------------------

// RunTask starts execution of a task on the given agent. The handle is
// created optimistically before the request so a racing task_started
// event merges into it instead of duplicating state; on failure the
// handle is rolled back and nothing else was touched.
func (g *Gateway) RunTask(ctx context.Context, taskID, agentID string) error {
	task, ok := g.store.GetTask(taskID)
	if !ok {
		return errors.NewNotFoundError("task", taskID)
	}
	if !task.HasAssignees() {
		return errors.ErrNoAssignee
	}
	if agentID == "" {
		agentID = task.AssigneeIDs[0]
	}
	agent, ok := g.store.GetAgent(agentID)
	if !ok {
		return errors.NewNotFoundError("agent", agentID)
	}
	if g.handles.IsRunning(taskID) {
		return errors.ErrTaskAlreadyRunning
	}
	if g.handles.Len() >= g.maxConcurrent {
		return fmt.Errorf("%w (%d)", errors.ErrAtCapacity, g.maxConcurrent)
	}

	g.handles.Start(taskID, agentID, agent.Name)

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/run"
	body := map[string]string{"agent_id": agentID}
	if err := g.client.doJSON(ctx, "run task", "POST", path, body, &resp); err != nil {
		g.handles.Remove(taskID)
		return err
	}

	g.store.UpsertTask(resp.Task)
	g.log.Info("run accepted", "task_id", taskID, "agent_id", agentID)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return nil
}

// StopTask asks the service to stop a running task. Handle presence is
// the tie-breaker for command races, not network ordering: no handle
// means nothing to stop. On the command's own success the task is
// rolled back to blocked immediately; the service's later
// task_completed{stopped} event finds no handle and is a no-op.
func (g *Gateway) StopTask(ctx context.Context, taskID string) error {
	if !g.handles.IsRunning(taskID) {
		return errors.ErrTaskNotRunning
	}

	handle, _ := g.handles.Get(taskID)
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/stop"
	if err := g.client.doJSON(ctx, "stop task", "POST", path, nil, nil); err != nil {
		return err
	}

	g.handles.Remove(taskID)
	blocked := mission.TaskBlocked
	g.store.ApplyTaskPatch(taskID, mission.TaskPatch{
		Status:          &blocked,
		ClearActiveDesc: true,
	})
	if handle.AgentID != "" {
		idle := mission.AgentIdle
		g.store.ApplyAgentPatch(handle.AgentID, mission.AgentPatch{
			Status:           &idle,
			ClearCurrentTask: true,
		})
		g.bus.Publish(event.NewAgentChangedEvent(handle.AgentID))
	}

	g.log.Info("stop accepted", "task_id", taskID)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return nil
}

// SkipTask marks a task skipped. The service's planner decides what
// the skip unblocks, so on success the whole plan is re-fetched rather
// than recomputed locally.
func (g *Gateway) SkipTask(ctx context.Context, taskID string) error {
	task, ok := g.store.GetTask(taskID)
	if !ok {
		return errors.NewNotFoundError("task", taskID)
	}
	if task.Status.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, task.Status, mission.TaskSkipped)
	}

	var resp taskResponse
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID) + "/skip"
	if err := g.client.doJSON(ctx, "skip task", "POST", path, nil, &resp); err != nil {
		return err
	}

	g.store.UpsertTask(resp.Task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))

	if task.ProjectID != "" {
		if err := g.FetchPlan(ctx, task.ProjectID); err != nil {
			// The skip itself landed; a failed refresh only leaves the
			// levels stale until the next pull.
			g.log.Warn("plan refresh after skip failed", "project_id", task.ProjectID, "error", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Projects
// -----------------------------------------------------------------------------

// projectResponse wraps command responses that return the project.
type projectResponse struct {
	Success bool            `json:"success"`
	Project mission.Project `json:"project"`
}

// minProjectDescription matches the service's validation; rejecting
// short descriptions locally saves a round trip.
const minProjectDescription = 10

// StartProject submits a natural-language project description for
// planning. The service answers with the project in draft/planning
// state; phases then arrive on the event stream.
func (g *Gateway) StartProject(ctx context.Context, description string) (mission.Project, error) {
	if len(strings.TrimSpace(description)) < minProjectDescription {
		return mission.Project{}, errors.NewValidationError("description",
			fmt.Sprintf("must be at least %d characters", minProjectDescription))
	}

	var resp projectResponse
	body := map[string]string{"description": description}
	if err := g.client.doJSON(ctx, "start project", "POST", "/api/deep-work/start", body, &resp); err != nil {
		return mission.Project{}, err
	}

	g.store.UpsertProject(resp.Project)
	g.bus.Publish(event.NewProjectChangedEvent(resp.Project.ID, "started"))
	return resp.Project, nil
}

// ApproveProject approves a plan and starts execution.
func (g *Gateway) ApproveProject(ctx context.Context, projectID string) (mission.Project, error) {
	return g.projectAction(ctx, "approve project", projectID, "approve")
}

// PauseProject pauses execution.
func (g *Gateway) PauseProject(ctx context.Context, projectID string) (mission.Project, error) {
	return g.projectAction(ctx, "pause project", projectID, "pause")
}

// ResumeProject resumes a paused project.
func (g *Gateway) ResumeProject(ctx context.Context, projectID string) (mission.Project, error) {
	return g.projectAction(ctx, "resume project", projectID, "resume")
}

func (g *Gateway) projectAction(ctx context.Context, op, projectID, action string) (mission.Project, error) {
	if projectID == "" {
		return mission.Project{}, errors.NewValidationError("project_id", "must not be empty")
	}

	var resp projectResponse
	path := "/api/deep-work/projects/" + url.PathEscape(projectID) + "/" + action
	if err := g.client.doJSON(ctx, op, "POST", path, nil, &resp); err != nil {
		return mission.Project{}, err
	}

	g.store.UpsertProject(resp.Project)
	g.bus.Publish(event.NewProjectChangedEvent(projectID, action))
	return resp.Project, nil
}

// -----------------------------------------------------------------------------
// Pulls (reconcile.Refresher)
// -----------------------------------------------------------------------------

// planResponse is the plan endpoint's payload.
type planResponse struct {
	Project         mission.Project  `json:"project"`
	Tasks           []mission.Task   `json:"tasks"`
	Progress        mission.Progress `json:"progress"`
	ExecutionLevels [][]string       `json:"execution_levels"`
	TaskLevelMap    map[string]int   `json:"task_level_map"`
}

// FetchPlan pulls a project's authoritative plan — project, tasks,
// progress and the planner's execution levels — and merges it all into
// the store.
func (g *Gateway) FetchPlan(ctx context.Context, projectID string) error {
	if projectID == "" {
		return errors.NewValidationError("project_id", "must not be empty")
	}

	var resp planResponse
	path := "/api/deep-work/projects/" + url.PathEscape(projectID) + "/plan"
	if err := g.client.doJSON(ctx, "fetch plan", "GET", path, nil, &resp); err != nil {
		return err
	}

	project := resp.Project
	project.Progress = resp.Progress
	project.ExecutionLevels = resp.ExecutionLevels
	project.TaskLevelMap = resp.TaskLevelMap
	g.store.UpsertProject(project)
	for _, task := range resp.Tasks {
		g.store.UpsertTask(task)
	}

	g.bus.Publish(event.NewProjectChangedEvent(projectID, "plan"))
	return nil
}

// FetchTask pulls one task and merges it into the store.
func (g *Gateway) FetchTask(ctx context.Context, taskID string) error {
	if taskID == "" {
		return errors.NewValidationError("task_id", "must not be empty")
	}

	var task mission.Task
	path := "/api/mission-control/tasks/" + url.PathEscape(taskID)
	if err := g.client.doJSON(ctx, "fetch task", "GET", path, nil, &task); err != nil {
		return err
	}

	g.store.UpsertTask(task)
	g.bus.Publish(event.NewTaskChangedEvent(taskID, "command"))
	return nil
}

// FetchAgents pulls the full agent list.
func (g *Gateway) FetchAgents(ctx context.Context) ([]mission.Agent, error) {
	var agents []mission.Agent
	if err := g.client.doJSON(ctx, "fetch agents", "GET", "/api/mission-control/agents", nil, &agents); err != nil {
		return nil, err
	}
	for _, a := range agents {
		g.store.UpsertAgent(a)
	}
	return agents, nil
}

// FetchTasks pulls the full task list.
func (g *Gateway) FetchTasks(ctx context.Context) ([]mission.Task, error) {
	var tasks []mission.Task
	if err := g.client.doJSON(ctx, "fetch tasks", "GET", "/api/mission-control/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	for _, t := range tasks {
		g.store.UpsertTask(t)
	}
	return tasks, nil
}

// FetchProjects pulls the full project list.
func (g *Gateway) FetchProjects(ctx context.Context) ([]mission.Project, error) {
	var projects []mission.Project
	if err := g.client.doJSON(ctx, "fetch projects", "GET", "/api/deep-work/projects", nil, &projects); err != nil {
		return nil, err
	}
	for _, p := range projects {
		g.store.UpsertProject(p)
	}
	return projects, nil
}
