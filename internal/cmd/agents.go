package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE:  runAgentsList,
}

var agentsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a new agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsAdd,
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <agent-id>",
	Short: "Remove an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsRemove,
}

var (
	agentRole        string
	agentDescription string
)

func init() {
	agentsAddCmd.Flags().StringVar(&agentRole, "role", "generalist", "agent role")
	agentsAddCmd.Flags().StringVar(&agentDescription, "description", "", "agent description")

	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsAddCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
	rootCmd.AddCommand(agentsCmd)
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	agents, err := a.gw.FetchAgents(ctx)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Role", "Status", "Current Task"})
	for _, ag := range agents {
		tw.AppendRow(table.Row{ag.ID, ag.Name, ag.Role, ag.Status, ag.CurrentTaskID})
	}
	tw.Render()
	return nil
}

func runAgentsAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	agent, err := a.gw.CreateAgent(ctx, args[0], agentRole, agentDescription)
	if err != nil {
		return err
	}

	fmt.Printf("Agent %s created (%s)\n", agent.Name, agent.ID)
	return nil
}

func runAgentsRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := cmdContext(a)
	defer cancel()

	if err := a.gw.DeleteAgent(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("Agent %s removed\n", args[0])
	return nil
}
