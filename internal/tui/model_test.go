package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/mission"
	"github.com/shabbark/pocketpaw/internal/reconcile"
)

func newTestModel() (*Model, *mission.Store, *mission.HandleRegistry, *event.Bus) {
	store := mission.NewStore()
	handles := mission.NewHandleRegistry()
	bus := event.NewBus()
	rec := reconcile.New(store, handles, bus, nil, 5)
	m := NewModel(store, handles, rec, bus, 50)
	return m, store, handles, bus
}

func TestViewShowsEntities(t *testing.T) {
	m, store, handles, _ := newTestModel()

	store.UpsertAgent(mission.Agent{ID: "a1", Name: "Scout", Role: "researcher", Status: mission.AgentActive, CurrentTaskID: "t1"})
	store.UpsertProject(mission.Project{ID: "p1", Title: "Crawler", Status: mission.ProjectExecuting})
	store.UpsertTask(mission.Task{ID: "t1", Title: "Fetch pages", Status: mission.TaskInProgress, ProjectID: "p1"})
	handles.Start("t1", "a1", "Scout")
	handles.AppendOutput("t1", "Read(main.go)", mission.OutputToolUse)

	out := m.View()

	for _, want := range []string{"Mission Control", "Scout", "Crawler", "Fetch pages", "Read(main.go)"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestViewEmptyState(t *testing.T) {
	m, _, _, _ := newTestModel()

	out := m.View()
	if !strings.Contains(out, "No agents") || !strings.Contains(out, "No projects") {
		t.Error("empty dashboard should say so")
	}
}

func TestUpdateStreamState(t *testing.T) {
	m, _, _, _ := newTestModel()

	m.Update(busMsg{event: event.NewStreamStateEvent(true, "")})
	if !m.connected {
		t.Error("connected flag not set")
	}

	m.Update(busMsg{event: event.NewStreamStateEvent(false, "connection reset")})
	if m.connected || m.lastStreamErr != "connection reset" {
		t.Errorf("disconnect not recorded: connected=%v err=%q", m.connected, m.lastStreamErr)
	}
}

func TestQuitUnsubscribes(t *testing.T) {
	m, _, _, bus := newTestModel()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if bus.Unsubscribe(m.subID) {
		t.Error("model should already have unsubscribed itself")
	}
}

func TestBusEventsReachTheModel(t *testing.T) {
	m, store, _, bus := newTestModel()
	store.UpsertTask(mission.Task{ID: "t1", Title: "Fetch pages", Status: mission.TaskAssigned})

	bus.Publish(event.NewTaskChangedEvent("t1", "command"))

	select {
	case e := <-m.events:
		if e.EventType() != "task.changed" {
			t.Errorf("event type = %s", e.EventType())
		}
	default:
		t.Error("published event never reached the model channel")
	}
}
