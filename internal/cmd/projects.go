package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shabbark/pocketpaw/internal/view"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage deep-work projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectsList,
}

var projectsStartCmd = &cobra.Command{
	Use:   "start <description>",
	Short: "Start planning a project from a description",
	Long: `Submit a natural-language description to the planner. The service
decomposes it into tasks; approve the plan to begin execution.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectsStart,
}

var projectsPlanCmd = &cobra.Command{
	Use:   "plan <project-id>",
	Short: "Show a project's plan as execution levels",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsPlan,
}

var projectsApproveCmd = &cobra.Command{
	Use:   "approve <project-id>",
	Short: "Approve a plan and start execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsApprove,
}

var projectsPauseCmd = &cobra.Command{
	Use:   "pause <project-id>",
	Short: "Pause project execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsPause,
}

var projectsResumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Resume a paused project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsResume,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsStartCmd)
	projectsCmd.AddCommand(projectsPlanCmd)
	projectsCmd.AddCommand(projectsApproveCmd)
	projectsCmd.AddCommand(projectsPauseCmd)
	projectsCmd.AddCommand(projectsResumeCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	projects, err := a.gw.FetchProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Progress"})
	for _, p := range projects {
		tw.AppendRow(table.Row{p.ID, p.Title, p.Status, view.ProgressLabel(p.Progress)})
	}
	tw.Render()
	return nil
}

func runProjectsStart(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	project, err := a.gw.StartProject(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Project %s is %s\n", project.ID, project.Status)
	fmt.Println("Planning runs in the background; watch the dashboard or run 'pocketpaw projects plan' once it completes.")
	return nil
}

func runProjectsPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	if err := a.gw.FetchPlan(ctx, args[0]); err != nil {
		return err
	}

	project, ok := a.store.GetProject(args[0])
	if !ok {
		fmt.Println("No such project")
		return nil
	}

	fmt.Printf("%s (%s) — %s\n\n", project.Title, project.Status, view.ProgressLabel(project.Progress))

	tasks := a.store.TasksForProject(project.ID)
	for _, level := range view.GroupTasksByLevel(project, tasks) {
		fmt.Printf("Level %d\n", level.Index+1)
		for _, t := range level.Tasks {
			v := view.TaskStatusVisual(t.Status)
			line := fmt.Sprintf("  %s %s [%s]", v.Icon, t.Title, v.Label)
			if blockers := view.BlockerNames(a.store, t); len(blockers) > 0 {
				line += " after " + strings.Join(blockers, ", ")
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runProjectsApprove(cmd *cobra.Command, args []string) error {
	return runProjectAction(args[0], "approve")
}

func runProjectsPause(cmd *cobra.Command, args []string) error {
	return runProjectAction(args[0], "pause")
}

func runProjectsResume(cmd *cobra.Command, args []string) error {
	return runProjectAction(args[0], "resume")
}

func runProjectAction(projectID, action string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	switch action {
	case "approve":
		p, err := a.gw.ApproveProject(ctx, projectID)
		if err != nil {
			return err
		}
		fmt.Printf("Project %q approved; execution started\n", p.Title)
	case "pause":
		p, err := a.gw.PauseProject(ctx, projectID)
		if err != nil {
			return err
		}
		fmt.Printf("Project %q paused\n", p.Title)
	case "resume":
		p, err := a.gw.ResumeProject(ctx, projectID)
		if err != nil {
			return err
		}
		fmt.Printf("Project %q resumed\n", p.Title)
	}
	return nil
}
