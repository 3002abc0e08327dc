package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/agentwallet/agentwallet-go/pkg/acp"
	"github.com/agentwallet/agentwallet-go/pkg/client"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Drive ACP jobs",
	Long: `jobs drives Agent Commerce Protocol jobs. A job moves through

  created -> negotiating -> funded -> delivered -> evaluated | disputed

negotiate and deliver act as the seller, fund as the buyer, and evaluate as
the evaluator (the buyer when no evaluator was named).`,
}

var (
	jobBuyer, jobSeller, jobEvaluator string
	jobTitle, jobDescription         string
	jobPrice                         float64
	jobRequirements                  string

	jobsAgent  string
	jobsPhase  string
	jobsLimit  int
	jobsOffset int

	negTerms string
	negPrice float64

	delResult string
	delNotes  string

	evalApproved bool
	evalRejected bool
	evalNotes    string
	evalRating   int

	memoType    string
	memoContent string
)

func init() {
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a job",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseObject("requirements", jobRequirements)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.CreateJob(commandContext(cmd), client.CreateJobParams{
				BuyerAgentID:     jobBuyer,
				SellerAgentID:    jobSeller,
				EvaluatorAgentID: jobEvaluator,
				Title:            jobTitle,
				Description:      jobDescription,
				PriceUSDC:        jobPrice,
				Requirements:     req,
			})
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}
	f := create.Flags()
	f.StringVar(&jobBuyer, "buyer", "", "buyer agent ID")
	f.StringVar(&jobSeller, "seller", "", "seller agent ID")
	f.StringVar(&jobEvaluator, "evaluator", "", "evaluator agent ID (default: the buyer)")
	f.StringVar(&jobTitle, "title", "", "job title")
	f.StringVar(&jobDescription, "description", "", "what must be delivered")
	f.Float64Var(&jobPrice, "price", 0, "price in USDC")
	f.StringVar(&jobRequirements, "requirements", "", "requirements as a JSON object")
	for _, name := range []string{"buyer", "seller", "title", "description", "price"} {
		_ = create.MarkFlagRequired(name)
	}

	get := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.GetJob(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			phase := acp.Phase(jobsPhase)
			if phase != "" && !phase.Valid() {
				return errors.New("unknown --phase; want one of created, negotiating, funded, delivered, evaluated, disputed")
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.ACP.ListJobs(commandContext(cmd), client.ListJobsOptions{
				AgentID: jobsAgent, Phase: phase, Limit: jobsLimit, Offset: jobsOffset,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("ID", "TITLE", "PHASE", "STATUS", "PRICE")
				for _, j := range res.Data {
					t.row(j.ID, j.Title, j.Phase, j.Status, j.PriceUSDC)
				}
			})
		},
	}
	list.Flags().StringVar(&jobsAgent, "agent", "", "only jobs this agent takes part in")
	list.Flags().StringVar(&jobsPhase, "phase", "", "only jobs in this phase")
	list.Flags().IntVar(&jobsLimit, "limit", 20, "page size")
	list.Flags().IntVar(&jobsOffset, "offset", 0, "page offset")

	negotiate := &cobra.Command{
		Use:   "negotiate <job-id> <seller-agent-id>",
		Short: "Propose terms as the seller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := parseObject("terms", negTerms)
			if err != nil {
				return err
			}
			p := client.NegotiateParams{AgreedTerms: terms}
			if cmd.Flags().Changed("price") {
				p.AgreedPriceUSDC = &negPrice
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.Negotiate(commandContext(cmd), args[0], args[1], p)
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}
	negotiate.Flags().StringVar(&negTerms, "terms", "", "agreed terms as a JSON object")
	negotiate.Flags().Float64Var(&negPrice, "price", 0, "agreed price in USDC")

	fund := &cobra.Command{
		Use:   "fund <job-id> <buyer-agent-id>",
		Short: "Fund the job as the buyer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.Fund(commandContext(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}

	deliver := &cobra.Command{
		Use:   "deliver <job-id> <seller-agent-id>",
		Short: "Deliver the result as the seller",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := parseObject("result", delResult)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.Deliver(commandContext(cmd), args[0], args[1], client.DeliverParams{
				ResultData: result, Notes: delNotes,
			})
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}
	deliver.Flags().StringVar(&delResult, "result", "", "result data as a JSON object")
	deliver.Flags().StringVar(&delNotes, "notes", "", "delivery notes")

	evaluate := &cobra.Command{
		Use:   "evaluate <job-id> <evaluator-agent-id>",
		Short: "Approve or reject the delivery",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if evalApproved == evalRejected {
				return errors.New("pass exactly one of --approve or --reject")
			}
			p := client.EvaluateParams{Approved: evalApproved, EvaluationNotes: evalNotes}
			if cmd.Flags().Changed("rating") {
				p.Rating = &evalRating
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			job, err := c.ACP.Evaluate(commandContext(cmd), args[0], args[1], p)
			if err != nil {
				return err
			}
			return renderJob(cmd, job)
		},
	}
	evaluate.Flags().BoolVar(&evalApproved, "approve", false, "accept the delivery")
	evaluate.Flags().BoolVar(&evalRejected, "reject", false, "reject the delivery and dispute the job")
	evaluate.Flags().StringVar(&evalNotes, "notes", "", "evaluation notes")
	evaluate.Flags().IntVar(&evalRating, "rating", 0, "rating from 1 to 5")

	memo := &cobra.Command{
		Use:   "memo <job-id> <sender-agent-id>",
		Short: "Attach a memo to a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := parseObject("content", memoContent)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			m, err := c.ACP.SendMemo(commandContext(cmd), args[0], args[1], client.SendMemoParams{
				MemoType: acp.MemoType(memoType), Content: content,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), m, func(t *table) {
				t.row("ID", m.ID)
				t.row("TYPE", m.MemoType)
				t.row("SENDER", m.SenderAgentID)
			})
		},
	}
	memo.Flags().StringVar(&memoType, "type", string(acp.MemoGeneral), "memo type")
	memo.Flags().StringVar(&memoContent, "content", "", "content as a JSON object")

	memos := &cobra.Command{
		Use:   "memos <job-id>",
		Short: "List a job's memos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			res, err := c.ACP.ListMemos(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res, func(t *table) {
				t.row("CREATED", "TYPE", "SENDER", "ADVANCES")
				for _, m := range res.Data {
					t.row(m.CreatedAt.Format("2006-01-02 15:04:05"), m.MemoType, m.SenderAgentID, m.AdvancesPhase)
				}
			})
		},
	}

	jobsCmd.AddCommand(create, get, list, negotiate, fund, deliver, evaluate, memo, memos)
}

func renderJob(cmd *cobra.Command, j *client.AcpJob) error {
	return render(cmd.OutOrStdout(), j, func(t *table) {
		t.row("ID", j.ID)
		t.row("TITLE", j.Title)
		t.row("PHASE", j.Phase)
		t.row("STATUS", j.Status)
		t.row("BUYER", j.BuyerAgentID)
		t.row("SELLER", j.SellerAgentID)
		t.row("EVALUATOR", deref(j.EvaluatorAgentID))
		t.row("PRICE", j.PriceUSDC)
		t.row("AGREED PRICE", deref(j.AgreedPriceUSDC))
		t.row("RATING", deref(j.Rating))
	})
}
