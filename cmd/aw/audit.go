package main

import (
	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var auditOpts client.AuditLogOptions

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Compliance.AuditLog(commandContext(cmd), auditOpts)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res, func(t *table) {
			t.row("TIME", "EVENT", "ACTOR", "RESOURCE", "HASH")
			for _, e := range res.Data {
				t.row(e.CreatedAt.Format("2006-01-02 15:04:05"), e.EventType,
					e.ActorType+":"+e.ActorID, e.ResourceType+":"+e.ResourceID, short(e.Hash))
			}
		})
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditOpts.EventType, "event", "", "only this event type")
	f.StringVar(&auditOpts.ResourceType, "resource-type", "", "only this resource type")
	f.StringVar(&auditOpts.ResourceID, "resource", "", "only this resource id")
	f.IntVar(&auditOpts.Limit, "limit", 50, "page size")
	f.IntVar(&auditOpts.Offset, "offset", 0, "rows to skip")
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
