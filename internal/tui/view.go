package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shabbark/pocketpaw/internal/mission"
	"github.com/shabbark/pocketpaw/internal/view"
)

// feedDisplayLimit caps how many activity entries the dashboard shows.
const feedDisplayLimit = 8

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderAgents())
	b.WriteString("\n")
	b.WriteString(m.renderProjects())
	b.WriteString("\n")
	b.WriteString(m.renderRunning())
	b.WriteString("\n")
	b.WriteString(m.renderFeed())
	b.WriteString("\n")
	b.WriteString(view.Muted.Render("j/k move · q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) renderHeader() string {
	stats := m.rec.Snapshot()

	stream := view.Muted.Render("○ offline")
	if m.connected {
		stream = lipgloss.NewStyle().Foreground(view.GreenColor).Render("● live")
	} else if m.lastStreamErr != "" {
		stream = lipgloss.NewStyle().Foreground(view.RedColor).Render("○ " + m.lastStreamErr)
	}

	counters := view.Muted.Render(fmt.Sprintf("active %d · done today %d",
		stats.ActiveTasks, stats.CompletedToday))

	return view.Title.Render("Mission Control") + "  " + stream + "  " + counters
}

func (m *Model) renderAgents() string {
	agents := m.store.ListAgents()
	if len(agents) == 0 {
		return view.Muted.Render("No agents")
	}

	var b strings.Builder
	b.WriteString(view.Text.Render("Agents"))
	b.WriteString("\n")
	for _, a := range agents {
		v := view.AgentStatusVisual(a.Status)
		line := fmt.Sprintf("  %s %s (%s)", v.Style.Render(v.Icon), a.Name, a.Role)
		if a.CurrentTaskID != "" {
			if t, ok := m.store.GetTask(a.CurrentTaskID); ok {
				line += view.Muted.Render(" — " + t.Title)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderProjects() string {
	projects := m.store.ListProjects()
	if len(projects) == 0 {
		return view.Muted.Render("No projects")
	}

	var b strings.Builder
	for _, p := range projects {
		pv := view.ProjectStatusVisual(p.Status)
		b.WriteString(fmt.Sprintf("%s %s %s %s\n",
			pv.Style.Render(pv.Icon),
			view.Text.Render(p.Title),
			pv.Style.Render(pv.Label),
			view.Muted.Render(view.ProgressLabel(p.Progress))))

		tasks := m.store.TasksForProject(p.ID)
		for _, level := range view.GroupTasksByLevel(p, tasks) {
			b.WriteString(view.Muted.Render(fmt.Sprintf("  Level %d", level.Index+1)))
			b.WriteString("\n")
			for _, t := range level.Tasks {
				b.WriteString("    " + m.renderTaskLine(t))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (m *Model) renderTaskLine(t mission.Task) string {
	v := view.TaskStatusVisual(t.Status)
	line := fmt.Sprintf("%s %s", v.Style.Render(v.Icon), t.Title)

	if t.Status == mission.TaskInProgress {
		line = m.spin.View() + " " + line
		if t.ActiveDescription != "" {
			line += view.Muted.Render(" — " + t.ActiveDescription)
		}
	}

	if !view.IsReady(m.store, t) && !t.Status.IsTerminal() {
		blockers := view.BlockerNames(m.store, t)
		line += view.Muted.Render(" (waiting on " + strings.Join(blockers, ", ") + ")")
	}
	return line
}

func (m *Model) renderRunning() string {
	ids := m.handles.RunningTaskIDs()
	if len(ids) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(view.Text.Render("Running"))
	b.WriteString("\n")
	for _, id := range ids {
		h, ok := m.handles.Get(id)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s", m.spin.View(), h.AgentName))
		if h.LastAction != "" {
			b.WriteString(view.Muted.Render(" · " + h.LastAction))
		}
		b.WriteString("\n")

		output := h.Output
		if len(output) > m.maxOutputLines {
			output = output[len(output)-m.maxOutputLines:]
		}
		for _, entry := range output {
			b.WriteString("    " + view.OutputPrefix(entry.Type) + entry.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *Model) renderFeed() string {
	feed := m.rec.Feed()
	if len(feed) == 0 {
		return ""
	}
	if len(feed) > feedDisplayLimit {
		feed = feed[:feedDisplayLimit]
	}

	var b strings.Builder
	b.WriteString(view.Text.Render("Activity"))
	b.WriteString("\n")
	for _, a := range feed {
		b.WriteString("  " + view.Muted.Render(a.CreatedAt.Format("15:04")) + " " + a.Message)
		b.WriteString("\n")
	}
	return b.String()
}
