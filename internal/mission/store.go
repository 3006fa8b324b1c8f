package mission

import (
	"sort"
	"sync"
	"time"
)

// Store is the in-memory table of agents, tasks and projects. It is the
// single source of truth for entity state: both the command gateway and
// the event reconciler write through it, and every write is atomic with
// respect to all readers. All methods are safe for concurrent use.
//
// Reads return copies. Holding an entity across a store mutation without
// re-reading it is how the three sources of truth (user commands,
// optimistic updates, pushed events) drift apart, so nothing outside
// this package ever sees an internal pointer.
type Store struct {
	mu       sync.RWMutex
	agents   map[string]*Agent
	tasks    map[string]*Task
	projects map[string]*Project
	nextSeq  int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		agents:   make(map[string]*Agent),
		tasks:    make(map[string]*Task),
		projects: make(map[string]*Project),
	}
}

// UpsertAgent inserts or replaces an agent.
func (s *Store) UpsertAgent(a Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = &a
}

// GetAgent returns a copy of the agent, or false if unknown.
func (s *Store) GetAgent(id string) (Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// ListAgents returns all agents ordered by creation time, then id.
func (s *Store) ListAgents() []Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RemoveAgent deletes an agent. Removing an unknown id is a no-op.
func (s *Store) RemoveAgent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
}

// UpsertTask inserts or replaces a task. The store-local creation
// sequence is preserved across replacement so execution-level
// tie-breaking stays stable when the server re-sends a task.
func (s *Store) UpsertTask(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.tasks[t.ID]; ok {
		t.Seq = prev.Seq
	} else {
		t.Seq = s.nextSeq
		s.nextSeq++
	}
	t.AssigneeIDs = cloneIDs(t.AssigneeIDs)
	t.BlockedBy = cloneIDs(t.BlockedBy)
	t.Blocks = cloneIDs(t.Blocks)
	s.tasks[t.ID] = &t
}

// GetTask returns a copy of the task, or false if unknown.
func (s *Store) GetTask(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return copyTask(t), true
}

// ListTasks returns all tasks in creation order.
func (s *Store) ListTasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTasks(func(*Task) bool { return true })
}

// TasksForProject returns the project's tasks in creation order.
// This is a projection of the same table ListTasks reads, so a patch
// applied to a task is visible to both views at the same instant.
func (s *Store) TasksForProject(projectID string) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectTasks(func(t *Task) bool { return t.ProjectID == projectID })
}

// collectTasks gathers matching tasks sorted by creation sequence.
// Callers must hold at least a read lock.
func (s *Store) collectTasks(match func(*Task) bool) []Task {
	var out []Task
	for _, t := range s.tasks {
		if match(t) {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// RemoveTask deletes a task. Removing an unknown id is a no-op.
func (s *Store) RemoveTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// UpsertProject inserts or replaces a project.
func (s *Store) UpsertProject(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ExecutionLevels = cloneLevels(p.ExecutionLevels)
	p.TaskLevelMap = cloneLevelMap(p.TaskLevelMap)
	s.projects[p.ID] = &p
}

// GetProject returns a copy of the project, or false if unknown.
func (s *Store) GetProject(id string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	return copyProject(p), true
}

// ListProjects returns all projects ordered by creation time, then id.
func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, copyProject(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RemoveProject deletes a project. Removing an unknown id is a no-op.
func (s *Store) RemoveProject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, id)
}

// TaskPatch is a partial update to a task. Nil fields are left
// untouched. Clear flags reset nullable fields; they win over the
// corresponding set field if both are present.
type TaskPatch struct {
	Title             *string
	Description       *string
	Status            *TaskStatus
	Priority          *TaskPriority
	AssigneeIDs       *[]string
	BlockedBy         *[]string
	Blocks            *[]string
	ProjectID         *string
	ActiveDescription *string
	ClearActiveDesc   bool
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// ApplyTaskPatch merges the patch into the task in one atomic step.
// Patching an unknown id is a no-op and returns false; late events for
// removed tasks must never be fatal.
func (s *Store) ApplyTaskPatch(id string, patch TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssigneeIDs != nil {
		t.AssigneeIDs = cloneIDs(*patch.AssigneeIDs)
	}
	if patch.BlockedBy != nil {
		t.BlockedBy = cloneIDs(*patch.BlockedBy)
	}
	if patch.Blocks != nil {
		t.Blocks = cloneIDs(*patch.Blocks)
	}
	if patch.ProjectID != nil {
		t.ProjectID = *patch.ProjectID
	}
	if patch.ClearActiveDesc {
		t.ActiveDescription = ""
	} else if patch.ActiveDescription != nil {
		t.ActiveDescription = *patch.ActiveDescription
	}
	if patch.StartedAt != nil {
		t.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		t.CompletedAt = patch.CompletedAt
	}
	return true
}

// AgentPatch is a partial update to an agent. Nil fields are left
// untouched; ClearCurrentTask resets the task reference.
type AgentPatch struct {
	Name             *string
	Role             *string
	Status           *AgentStatus
	CurrentTaskID    *string
	ClearCurrentTask bool
}

// ApplyAgentPatch merges the patch into the agent in one atomic step.
// Patching an unknown id is a no-op and returns false.
func (s *Store) ApplyAgentPatch(id string, patch AgentPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return false
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.ClearCurrentTask {
		a.CurrentTaskID = ""
	} else if patch.CurrentTaskID != nil {
		a.CurrentTaskID = *patch.CurrentTaskID
	}
	return true
}

// ProjectPatch is a partial update to a project. Nil fields are left
// untouched.
type ProjectPatch struct {
	Title           *string
	Status          *ProjectStatus
	Progress        *Progress
	ExecutionLevels *[][]string
	TaskLevelMap    *map[string]int
}

// ApplyProjectPatch merges the patch into the project in one atomic
// step. Project status never regresses except to failed: the remote
// service confirms every forward transition, so a stale planning_phase
// event arriving after approval must not rewind the lifecycle.
// Patching an unknown id is a no-op and returns false.
func (s *Store) ApplyProjectPatch(id string, patch ProjectPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return false
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Status != nil {
		next := *patch.Status
		if next == ProjectFailed || !projectStatusRegresses(p.Status, next) {
			p.Status = next
		}
	}
	if patch.Progress != nil {
		p.Progress = *patch.Progress
	}
	if patch.ExecutionLevels != nil {
		p.ExecutionLevels = cloneLevels(*patch.ExecutionLevels)
	}
	if patch.TaskLevelMap != nil {
		p.TaskLevelMap = cloneLevelMap(*patch.TaskLevelMap)
	}
	return true
}

// projectStatusOrder positions each status along the forward lifecycle.
var projectStatusOrder = map[ProjectStatus]int{
	ProjectDraft:            0,
	ProjectPlanning:         1,
	ProjectAwaitingApproval: 2,
	ProjectApproved:         3,
	ProjectExecuting:        4,
	ProjectPaused:           4, // paused/executing flip freely
	ProjectCompleted:        5,
	ProjectFailed:           5,
}

func projectStatusRegresses(from, to ProjectStatus) bool {
	return projectStatusOrder[to] < projectStatusOrder[from]
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func cloneLevels(levels [][]string) [][]string {
	if levels == nil {
		return nil
	}
	out := make([][]string, len(levels))
	for i, level := range levels {
		out[i] = cloneIDs(level)
	}
	return out
}

func cloneLevelMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTask(t *Task) Task {
	cp := *t
	cp.AssigneeIDs = cloneIDs(t.AssigneeIDs)
	cp.BlockedBy = cloneIDs(t.BlockedBy)
	cp.Blocks = cloneIDs(t.Blocks)
	return cp
}

func copyProject(p *Project) Project {
	cp := *p
	cp.ExecutionLevels = cloneLevels(p.ExecutionLevels)
	cp.TaskLevelMap = cloneLevelMap(p.TaskLevelMap)
	return cp
}
