// Package client is the AgentWallet Go SDK.
//
// It wraps the AgentWallet REST API in one typed method per operation:
// agents, wallets, transactions, escrow, spending policies, analytics, PDA
// wallets, swarms, webhooks, the compliance audit log, and the Agent
// Commerce Protocol (ACP) job lifecycle.
// Settlement, custody and policy enforcement happen server-side; the SDK is
// a thin transport and never retries or validates business rules itself.
//
// # Creating a client
//
//	aw, err := client.New(os.Getenv("AGENTWALLET_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Options override the defaults (https://api.agentwallet.fun/v1, 30s per
// call):
//
//	aw, err := client.New(key,
//	    client.WithBaseURL("http://localhost:8080/v1"),
//	    client.WithTimeout(5*time.Second),
//	    client.WithLogger(logger),
//	)
//
// # Running an ACP job
//
// Each transition returns the server's new snapshot of the job. Replace your
// copy with it; the SDK does not track phases locally.
//
//	job, err := aw.ACP.CreateJob(ctx, client.CreateJobParams{
//	    BuyerAgentID:  buyer,
//	    SellerAgentID: seller,
//	    Title:         "Summarize filings",
//	    Description:   "Q3 10-K summaries",
//	    PriceUSDC:     25,
//	})
//	job, err = aw.ACP.Negotiate(ctx, job.ID, seller, client.NegotiateParams{
//	    AgreedTerms: client.JSONObject{"deadline": "48h"},
//	})
//	job, err = aw.ACP.Fund(ctx, job.ID, buyer)
//	job, err = aw.ACP.Deliver(ctx, job.ID, seller, client.DeliverParams{
//	    ResultData: client.JSONObject{"url": "https://..."},
//	})
//	job, err = aw.ACP.Evaluate(ctx, job.ID, buyer, client.EvaluateParams{Approved: true})
//
// # Errors
//
// Every failure is an *Error carrying a Kind. Branch with errors.Is against
// the sentinels or switch on KindOf:
//
//	_, err := aw.ACP.Fund(ctx, jobID, buyer)
//	switch {
//	case errors.Is(err, client.ErrValidation):
//	    // job is not in the negotiating phase
//	case errors.Is(err, client.ErrAuthentication):
//	    // wrong key, or buyer is not this job's buyer
//	case errors.Is(err, client.ErrTimeout):
//	    // no response within the configured timeout
//	}
//
// Required identifiers are checked before any request is made; an empty one
// yields ErrMissingArgument.
//
// # Webhooks
//
// Deliveries are signed with the secret returned once by Webhooks.Create.
// Verify the X-AgentWallet-Signature header, "sha256=" followed by the hex
// HMAC-SHA256 of the raw body:
//
//	mac := hmac.New(sha256.New, []byte(secret))
//	mac.Write(body)
//	ok := hmac.Equal([]byte(sig), []byte("sha256="+hex.EncodeToString(mac.Sum(nil))))
//
// # Raw requests
//
// Endpoints without a typed method can be reached with Get, Post, Patch,
// Delete, or Do, which share authentication, timeout and error handling.
package client
