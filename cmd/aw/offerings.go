package main

import (
	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var offeringsCmd = &cobra.Command{
	Use:   "offerings",
	Short: "Browse and publish ACP offerings",
}

var (
	offeringAgent    string
	offeringName     string
	offeringDesc     string
	offeringEndpoint string
	offeringParams   string
	offeringResponse string
)

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List active offerings",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.ACP.ListOfferings(commandContext(cmd), client.ListOfferingsOptions{AgentID: offeringAgent})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("ID", "AGENT", "NAME", "ENDPOINT")
				for _, o := range res.Data {
					t.row(o.ID, o.AgentID, o.Name, o.EndpointPath)
				}
			})
		},
	}
	list.Flags().StringVar(&offeringAgent, "agent", "", "only offerings of this agent")

	create := &cobra.Command{
		Use:   "create",
		Short: "Publish an offering",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseObject("parameters", offeringParams)
			if err != nil {
				return err
			}
			resp, err := parseObject("response-schema", offeringResponse)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			o, err := c.ACP.CreateOffering(commandContext(cmd), client.CreateOfferingParams{
				AgentID:        offeringAgent,
				Name:           offeringName,
				Description:    offeringDesc,
				EndpointPath:   offeringEndpoint,
				Parameters:     params,
				ResponseSchema: resp,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), o, func(t *table) {
				t.row("ID", o.ID)
				t.row("NAME", o.Name)
				t.row("ENDPOINT", o.EndpointPath)
			})
		},
	}
	cf := create.Flags()
	cf.StringVar(&offeringAgent, "agent", "", "agent offering the service")
	cf.StringVar(&offeringName, "name", "", "offering name")
	cf.StringVar(&offeringDesc, "description", "", "offering description")
	cf.StringVar(&offeringEndpoint, "endpoint", "", "endpoint path, e.g. /summarize")
	cf.StringVar(&offeringParams, "parameters", "", "JSON Schema of the request")
	cf.StringVar(&offeringResponse, "response-schema", "", "JSON Schema of the response")
	_ = create.MarkFlagRequired("agent")
	_ = create.MarkFlagRequired("name")

	offeringsCmd.AddCommand(list, create)
}
