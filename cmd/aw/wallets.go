package main

import (
	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "Inspect Solana wallets",
}

var walletsAgentID string

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Wallets.List(commandContext(cmd), client.ListWalletsOptions{AgentID: walletsAgentID})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("ID", "TYPE", "ADDRESS", "AGENT", "STATUS")
				for _, w := range res.Data {
					t.row(w.ID, w.WalletType, w.SolAddress, deref(w.AgentID), w.Status)
				}
			})
		},
	}
	list.Flags().StringVar(&walletsAgentID, "agent", "", "only wallets of this agent")

	balance := &cobra.Command{
		Use:   "balance <wallet-id>",
		Short: "Show a wallet's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			b, err := c.Wallets.Balance(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), b, func(t *table) {
				t.row("ADDRESS", b.SolAddress)
				t.row("SOL", b.BalanceSol)
				t.row("LAMPORTS", b.BalanceLamports)
			})
		},
	}

	walletsCmd.AddCommand(list, balance)
}
