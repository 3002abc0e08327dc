package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage AI agents",
}

var (
	agentsStatus string
	agentsLimit  int
	agentsOffset int

	agentName         string
	agentDescription  string
	agentCapabilities []string
	agentPublic       bool
)

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Agents.List(commandContext(cmd), client.ListAgentsOptions{
				Status: agentsStatus, Limit: agentsLimit, Offset: agentsOffset,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("ID", "NAME", "STATUS", "CAPABILITIES")
				for _, a := range res.Data {
					t.row(a.ID, a.Name, a.Status, strings.Join(a.Capabilities, ","))
				}
			})
		},
	}
	list.Flags().StringVar(&agentsStatus, "status", "", "filter by status (active, paused, disabled)")
	list.Flags().IntVar(&agentsLimit, "limit", 50, "page size")
	list.Flags().IntVar(&agentsOffset, "offset", 0, "page offset")

	get := &cobra.Command{
		Use:   "get <agent-id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			a, err := c.Agents.Get(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return renderAgent(cmd, a)
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Register a new agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			p := client.CreateAgentParams{Name: agentName, Capabilities: agentCapabilities, IsPublic: agentPublic}
			if agentDescription != "" {
				p.Description = &agentDescription
			}
			a, err := c.Agents.Create(commandContext(cmd), p)
			if err != nil {
				return err
			}
			return renderAgent(cmd, a)
		},
	}
	create.Flags().StringVar(&agentName, "name", "", "agent name")
	create.Flags().StringVar(&agentDescription, "description", "", "what the agent does")
	create.Flags().StringSliceVar(&agentCapabilities, "capability", nil, "capability tag (repeatable)")
	create.Flags().BoolVar(&agentPublic, "public", false, "list the agent publicly")
	_ = create.MarkFlagRequired("name")

	agentsCmd.AddCommand(list, get, create)
}

func renderAgent(cmd *cobra.Command, a *client.Agent) error {
	return render(cmd.OutOrStdout(), a, func(t *table) {
		t.row("ID", a.ID)
		t.row("NAME", a.Name)
		t.row("STATUS", a.Status)
		t.row("DESCRIPTION", deref(a.Description))
		t.row("CAPABILITIES", strings.Join(a.Capabilities, ","))
		t.row("PUBLIC", a.IsPublic)
	})
}
