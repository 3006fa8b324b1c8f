package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/shabbark/pocketpaw/internal/stream"
	"github.com/shabbark/pocketpaw/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Long: `Open the Mission Control dashboard. The dashboard mirrors the
service's event stream: running tasks, agent activity, project plans
and the activity feed update as events arrive.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the store before the stream attaches so the first frame is
	// not empty. Failures here are tolerable; the stream catches us up.
	seedCtx, seedCancel := cmdContext(a)
	defer seedCancel()
	if _, err := a.gw.FetchAgents(seedCtx); err != nil {
		a.log.Warn("initial agent fetch failed", "error", err)
	}
	if _, err := a.gw.FetchTasks(seedCtx); err != nil {
		a.log.Warn("initial task fetch failed", "error", err)
	}
	if projects, err := a.gw.FetchProjects(seedCtx); err != nil {
		a.log.Warn("initial project fetch failed", "error", err)
	} else {
		for _, p := range projects {
			if err := a.gw.FetchPlan(seedCtx, p.ID); err != nil {
				a.log.Warn("initial plan fetch failed", "project_id", p.ID, "error", err)
			}
		}
	}

	streamURL := a.cfg.Service.StreamURL
	if streamURL == "" {
		streamURL = stream.StreamURL(a.cfg.Service.BaseURL)
	}
	consumer := stream.NewConsumer(streamURL, a.rec, a.bus, a.log)
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("event stream stopped", "error", err)
		}
	}()

	model := tui.NewModel(a.store, a.handles, a.rec, a.bus, a.cfg.TUI.MaxOutputLines)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}
