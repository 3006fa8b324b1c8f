package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/shabbark/pocketpaw/internal/mission"
)

// Palette shared by the dashboard. All colors meet WCAG AA contrast
// (4.5:1) on dark surfaces.
var (
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	GreenColor   = lipgloss.Color("#10B981") // Green
	AmberColor   = lipgloss.Color("#F59E0B") // Amber
	RedColor     = lipgloss.Color("#F87171") // Red
	BlueColor    = lipgloss.Color("#60A5FA") // Blue
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	TextColor    = lipgloss.Color("#F9FAFB") // Light text

	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)
	Text    = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)
)

// StatusVisual is the icon, label and style a status renders with.
type StatusVisual struct {
	Icon  string
	Label string
	Style lipgloss.Style
}

var taskStatusVisuals = map[mission.TaskStatus]StatusVisual{
	mission.TaskInbox:      {Icon: "○", Label: "inbox", Style: Muted},
	mission.TaskAssigned:   {Icon: "◔", Label: "assigned", Style: lipgloss.NewStyle().Foreground(BlueColor)},
	mission.TaskInProgress: {Icon: "◐", Label: "in progress", Style: lipgloss.NewStyle().Foreground(AmberColor)},
	mission.TaskReview:     {Icon: "◕", Label: "review", Style: lipgloss.NewStyle().Foreground(PrimaryColor)},
	mission.TaskDone:       {Icon: "●", Label: "done", Style: lipgloss.NewStyle().Foreground(GreenColor)},
	mission.TaskBlocked:    {Icon: "✗", Label: "blocked", Style: lipgloss.NewStyle().Foreground(RedColor)},
	mission.TaskSkipped:    {Icon: "⊘", Label: "skipped", Style: Muted},
}

// defaultVisual renders any status the client does not recognize; an
// unknown status from a newer server is a display question, not an
// error.
var defaultVisual = StatusVisual{Icon: "?", Label: "unknown", Style: Muted}

// TaskStatusVisual returns the visual for a task status.
func TaskStatusVisual(s mission.TaskStatus) StatusVisual {
	if v, ok := taskStatusVisuals[s]; ok {
		return v
	}
	v := defaultVisual
	if s != "" {
		v.Label = string(s)
	}
	return v
}

var agentStatusVisuals = map[mission.AgentStatus]StatusVisual{
	mission.AgentIdle:   {Icon: "·", Label: "idle", Style: Muted},
	mission.AgentActive: {Icon: "●", Label: "active", Style: lipgloss.NewStyle().Foreground(GreenColor)},
}

// AgentStatusVisual returns the visual for an agent status.
func AgentStatusVisual(s mission.AgentStatus) StatusVisual {
	if v, ok := agentStatusVisuals[s]; ok {
		return v
	}
	return defaultVisual
}

var projectStatusVisuals = map[mission.ProjectStatus]StatusVisual{
	mission.ProjectDraft:            {Icon: "○", Label: "draft", Style: Muted},
	mission.ProjectPlanning:         {Icon: "◌", Label: "planning", Style: lipgloss.NewStyle().Foreground(BlueColor)},
	mission.ProjectAwaitingApproval: {Icon: "◑", Label: "awaiting approval", Style: lipgloss.NewStyle().Foreground(AmberColor)},
	mission.ProjectApproved:         {Icon: "◑", Label: "approved", Style: lipgloss.NewStyle().Foreground(PrimaryColor)},
	mission.ProjectExecuting:        {Icon: "◐", Label: "executing", Style: lipgloss.NewStyle().Foreground(AmberColor)},
	mission.ProjectPaused:           {Icon: "‖", Label: "paused", Style: lipgloss.NewStyle().Foreground(BlueColor)},
	mission.ProjectCompleted:        {Icon: "●", Label: "completed", Style: lipgloss.NewStyle().Foreground(GreenColor)},
	mission.ProjectFailed:           {Icon: "✗", Label: "failed", Style: lipgloss.NewStyle().Foreground(RedColor)},
}

// ProjectStatusVisual returns the visual for a project status.
func ProjectStatusVisual(s mission.ProjectStatus) StatusVisual {
	if v, ok := projectStatusVisuals[s]; ok {
		return v
	}
	return defaultVisual
}

// OutputPrefix returns the rendering prefix for a streamed output
// chunk.
func OutputPrefix(t mission.OutputType) string {
	switch t {
	case mission.OutputToolUse:
		return "⚙ "
	case mission.OutputToolResult:
		return "→ "
	default:
		return ""
	}
}
