package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manage webhook subscriptions",
}

var (
	webhookEvents     []string
	webhookNewEvents  []string
	webhookURL        string
	webhookActive     bool
	webhookDelivLimit int
)

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Webhooks.List(commandContext(cmd))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("ID", "URL", "EVENTS", "ACTIVE")
				for _, w := range res.Data {
					t.row(w.ID, w.URL, strings.Join(w.Events, ","), w.IsActive)
				}
			})
		},
	}

	create := &cobra.Command{
		Use:   "create <url>",
		Short: "Subscribe a URL to events",
		Long:  "Subscribe a URL to events. The signing secret is printed once; store it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			w, err := c.Webhooks.Create(commandContext(cmd), args[0], webhookEvents)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), w, func(t *table) {
				t.row("ID", w.ID)
				t.row("URL", w.URL)
				t.row("EVENTS", strings.Join(w.Events, ","))
				t.row("SECRET", w.Secret)
			})
		},
	}
	create.Flags().StringSliceVar(&webhookEvents, "event", []string{"*"}, "event type to deliver (repeatable)")

	update := &cobra.Command{
		Use:   "update <webhook-id>",
		Short: "Change a webhook's URL, events or active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p client.UpdateWebhookParams
			flags := cmd.Flags()
			if flags.Changed("url") {
				p.URL = &webhookURL
			}
			if flags.Changed("event") {
				p.Events = webhookNewEvents
			}
			if flags.Changed("active") {
				p.IsActive = &webhookActive
			}
			if p.URL == nil && p.Events == nil && p.IsActive == nil {
				return fmt.Errorf("nothing to update: pass --url, --event or --active")
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			w, err := c.Webhooks.Update(commandContext(cmd), args[0], p)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), w, func(t *table) {
				t.row("ID", w.ID)
				t.row("URL", w.URL)
				t.row("EVENTS", strings.Join(w.Events, ","))
				t.row("ACTIVE", w.IsActive)
			})
		},
	}
	update.Flags().StringVar(&webhookURL, "url", "", "new delivery URL")
	update.Flags().StringSliceVar(&webhookNewEvents, "event", nil, "replace the event list (repeatable)")
	update.Flags().BoolVar(&webhookActive, "active", true, "enable or disable deliveries")

	del := &cobra.Command{
		Use:   "delete <webhook-id>",
		Short: "Delete a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Webhooks.Delete(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	deliveries := &cobra.Command{
		Use:   "deliveries <webhook-id>",
		Short: "Show recent delivery attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.Webhooks.Deliveries(commandContext(cmd), args[0], webhookDelivLimit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("TIME", "EVENT", "ATTEMPT", "STATUS", "OK", "ERROR")
				for _, d := range res.Data {
					t.row(d.CreatedAt.Format("2006-01-02 15:04:05"), d.EventType, d.Attempt, d.StatusCode, d.Success, d.ErrorMessage)
				}
			})
		},
	}
	deliveries.Flags().IntVar(&webhookDelivLimit, "limit", 20, "maximum attempts to show")

	webhooksCmd.AddCommand(list, create, update, del, deliveries)
}
