package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shabbark/pocketpaw/internal/gateway"
	"github.com/shabbark/pocketpaw/internal/mission"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksAdd,
}

var tasksRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRemove,
}

var tasksAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <agent-id> [agent-id...]",
	Short: "Assign agents to a task",
	Long:  `Replace a task's assignee set with the given agents.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTasksAssign,
}

var tasksUnassignCmd = &cobra.Command{
	Use:   "unassign <task-id> <agent-id>",
	Short: "Remove an agent from a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksUnassign,
}

var tasksStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Move a task to a new status",
	Long: `Move a task along its lifecycle. Valid statuses:
inbox, assigned, in_progress, review, done, blocked, skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runTasksStatus,
}

var tasksPriorityCmd = &cobra.Command{
	Use:   "priority <task-id> <priority>",
	Short: "Change a task's priority (low, medium, high, urgent)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksPriority,
}

var tasksRunCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Run a task on one of its assigned agents",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRun,
}

var tasksStopCmd = &cobra.Command{
	Use:   "stop <task-id>",
	Short: "Stop a running task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksStop,
}

var tasksSkipCmd = &cobra.Command{
	Use:   "skip <task-id>",
	Short: "Skip a task, satisfying its dependents",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksSkip,
}

var (
	taskDescription string
	taskPriority    string
	taskProjectID   string
	taskAssignees   []string
	taskBlockedBy   []string
	taskRunAgent    string
	taskListProject string
)

func init() {
	tasksAddCmd.Flags().StringVar(&taskDescription, "description", "", "task description")
	tasksAddCmd.Flags().StringVar(&taskPriority, "priority", "medium", "priority (low, medium, high, urgent)")
	tasksAddCmd.Flags().StringVar(&taskProjectID, "project", "", "owning project id")
	tasksAddCmd.Flags().StringSliceVar(&taskAssignees, "assign", nil, "agent ids to assign")
	tasksAddCmd.Flags().StringSliceVar(&taskBlockedBy, "blocked-by", nil, "task ids this task depends on")
	tasksRunCmd.Flags().StringVar(&taskRunAgent, "agent", "", "agent id (defaults to the first assignee)")
	tasksListCmd.Flags().StringVar(&taskListProject, "project", "", "only tasks in this project")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksRemoveCmd)
	tasksCmd.AddCommand(tasksAssignCmd)
	tasksCmd.AddCommand(tasksUnassignCmd)
	tasksCmd.AddCommand(tasksStatusCmd)
	tasksCmd.AddCommand(tasksPriorityCmd)
	tasksCmd.AddCommand(tasksRunCmd)
	tasksCmd.AddCommand(tasksStopCmd)
	tasksCmd.AddCommand(tasksSkipCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	tasks, err := a.gw.FetchTasks(ctx)
	if err != nil {
		return err
	}
	if taskListProject != "" {
		filtered := tasks[:0]
		for _, t := range tasks {
			if t.ProjectID == taskListProject {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignees", "Blocked By"})
	for _, t := range tasks {
		tw.AppendRow(table.Row{
			t.ID, t.Title, t.Status, t.Priority,
			strings.Join(t.AssigneeIDs, ","),
			strings.Join(t.BlockedBy, ","),
		})
	}
	tw.Render()
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	task, err := a.gw.CreateTask(ctx, gateway.NewTaskInput{
		Title:       args[0],
		Description: taskDescription,
		Priority:    mission.TaskPriority(taskPriority),
		ProjectID:   taskProjectID,
		AssigneeIDs: taskAssignees,
		BlockedBy:   taskBlockedBy,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Task %q created (%s)\n", task.Title, task.ID)
	return nil
}

func runTasksRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	if err := a.gw.DeleteTask(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Task %s deleted\n", args[0])
	return nil
}

func runTasksAssign(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	// Assignment validates agents locally, so pull them first.
	if _, err := a.gw.FetchAgents(ctx); err != nil {
		return err
	}

	task, err := a.gw.AssignTask(ctx, args[0], args[1:])
	if err != nil {
		return err
	}

	fmt.Printf("Task %q assigned to %s\n", task.Title, strings.Join(task.AssigneeIDs, ", "))
	return nil
}

func runTasksUnassign(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	task, err := a.gw.UnassignTask(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Agent %s unassigned from %q\n", args[1], task.Title)
	return nil
}

func runTasksStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	// Transition checks need the task's current status.
	if err := a.gw.FetchTask(ctx, args[0]); err != nil {
		return err
	}

	task, err := a.gw.UpdateTaskStatus(ctx, args[0], mission.TaskStatus(args[1]))
	if err != nil {
		return err
	}

	fmt.Printf("Task %q is now %s\n", task.Title, task.Status)
	return nil
}

func runTasksPriority(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	task, err := a.gw.UpdateTaskPriority(ctx, args[0], mission.TaskPriority(args[1]))
	if err != nil {
		return err
	}

	fmt.Printf("Task %q priority set to %s\n", task.Title, task.Priority)
	return nil
}

func runTasksRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	// Run validates the task and agent locally before issuing the
	// command.
	if err := a.gw.FetchTask(ctx, args[0]); err != nil {
		return err
	}
	if _, err := a.gw.FetchAgents(ctx); err != nil {
		return err
	}

	if err := a.gw.RunTask(ctx, args[0], taskRunAgent); err != nil {
		return err
	}

	fmt.Printf("Task %s is running\n", args[0])
	return nil
}

func runTasksStop(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	// A one-shot process has no handle for the task, so reconstruct
	// one from server state before stopping.
	if err := a.gw.FetchTask(ctx, args[0]); err != nil {
		return err
	}
	if task, ok := a.store.GetTask(args[0]); ok && task.Status == mission.TaskInProgress {
		agentID, agentName := "", ""
		if task.HasAssignees() {
			agentID = task.AssigneeIDs[0]
			if ag, ok := a.store.GetAgent(agentID); ok {
				agentName = ag.Name
			}
		}
		a.handles.Start(args[0], agentID, agentName)
	}

	if err := a.gw.StopTask(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Task %s stopped\n", args[0])
	return nil
}

func runTasksSkip(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	if err := a.gw.FetchTask(ctx, args[0]); err != nil {
		return err
	}
	if err := a.gw.SkipTask(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Task %s skipped\n", args[0])
	return nil
}
