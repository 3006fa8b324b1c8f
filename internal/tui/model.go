// Package tui renders the live Mission Control dashboard with
// bubbletea. The model never mutates entity state: it re-reads the
// store whenever a change notification arrives on the bus and draws
// from that snapshot.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shabbark/pocketpaw/internal/event"
	"github.com/shabbark/pocketpaw/internal/mission"
	"github.com/shabbark/pocketpaw/internal/reconcile"
	"github.com/shabbark/pocketpaw/internal/view"
)

// eventBuffer sizes the bus-to-model channel. Publishing never blocks:
// when the dashboard falls behind, notifications are dropped and the
// next redraw reads fresh state anyway.
const eventBuffer = 64

// Model is the dashboard's bubbletea model.
type Model struct {
	store   *mission.Store
	handles *mission.HandleRegistry
	rec     *reconcile.Reconciler

	events chan event.Event
	subID  string
	bus    *event.Bus

	spin           spinner.Model
	width, height  int
	selectedTask   int
	connected      bool
	lastStreamErr  string
	maxOutputLines int
}

// NewModel creates the dashboard model and subscribes it to the bus.
func NewModel(store *mission.Store, handles *mission.HandleRegistry, rec *reconcile.Reconciler, bus *event.Bus, maxOutputLines int) *Model {
	if maxOutputLines < 10 {
		maxOutputLines = 200
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(view.PrimaryColor)

	m := &Model{
		store:          store,
		handles:        handles,
		rec:            rec,
		bus:            bus,
		events:         make(chan event.Event, eventBuffer),
		spin:           sp,
		maxOutputLines: maxOutputLines,
	}
	m.subID = bus.SubscribeAll(func(e event.Event) {
		select {
		case m.events <- e:
		default:
		}
	})
	return m
}

// Init starts the spinner and the bus listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

// busMsg wraps a bus event for the bubbletea loop.
type busMsg struct {
	event event.Event
}

// waitForEvent blocks on the bus channel and resurfaces the event as a
// tea message.
func waitForEvent(events <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return busMsg{event: e}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.bus.Unsubscribe(m.subID)
			return m, tea.Quit
		case "j", "down":
			if m.selectedTask < len(m.store.ListTasks())-1 {
				m.selectedTask++
			}
			return m, nil
		case "k", "up":
			if m.selectedTask > 0 {
				m.selectedTask--
			}
			return m, nil
		}
		return m, nil

	case busMsg:
		if st, ok := msg.event.(event.StreamStateEvent); ok {
			m.connected = st.Connected
			m.lastStreamErr = st.Error
		}
		// Any other event just means the store changed; View re-reads it.
		return m, waitForEvent(m.events)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}
