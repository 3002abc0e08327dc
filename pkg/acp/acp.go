// Package acp models the Agent Commerce Protocol job lifecycle: the phases a
// job moves through, the participant roles, and which role may drive which
// transition.
//
// The lifecycle is:
//
//	created ──negotiate──▶ negotiating ──fund──▶ funded ──deliver──▶ delivered
//	                                                                   │
//	                                             evaluate(approved) ───┼──▶ evaluated
//	                                             evaluate(rejected) ───┴──▶ disputed
//
// The phase is authoritative on the server. Clients read it from the job
// snapshot returned by each call and never compute it locally; Next exists so
// a server (or a test double) can enforce ordering.
package acp

import (
	"errors"
	"fmt"
)

// Phase is the lifecycle position of a job.
type Phase string

const (
	PhaseCreated     Phase = "created"
	PhaseNegotiating Phase = "negotiating"
	PhaseFunded      Phase = "funded"
	PhaseDelivered   Phase = "delivered"
	PhaseEvaluated   Phase = "evaluated"
	PhaseDisputed    Phase = "disputed"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseCreated, PhaseNegotiating, PhaseFunded,
	PhaseDelivered, PhaseEvaluated, PhaseDisputed,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves p.
func (p Phase) IsTerminal() bool {
	return p == PhaseEvaluated || p == PhaseDisputed
}

// Status is the open/closed state of a job, orthogonal to its phase.
type Status string

const (
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

// Role identifies which participant of a job is acting.
type Role string

const (
	RoleBuyer     Role = "buyer"
	RoleSeller    Role = "seller"
	RoleEvaluator Role = "evaluator"
	RoleSender    Role = "sender"
)

// QueryParam returns the query parameter that carries the acting agent's ID
// for r, e.g. "seller_agent_id".
func (r Role) QueryParam() string {
	return string(r) + "_agent_id"
}

// Transition is a phase-changing operation on an existing job.
type Transition string

const (
	TransitionNegotiate Transition = "negotiate"
	TransitionFund      Transition = "fund"
	TransitionDeliver   Transition = "deliver"
	TransitionEvaluate  Transition = "evaluate"
)

// MemoType classifies a memo on a job.
type MemoType string

const (
	MemoJobRequest  MemoType = "job_request"
	MemoAgreement   MemoType = "agreement"
	MemoTransaction MemoType = "transaction"
	MemoDeliverable MemoType = "deliverable"
	MemoEvaluation  MemoType = "evaluation"
	MemoGeneral     MemoType = "general"
)

// Valid reports whether m is one of the accepted memo types.
func (m MemoType) Valid() bool {
	switch m {
	case MemoJobRequest, MemoAgreement, MemoTransaction, MemoDeliverable, MemoEvaluation, MemoGeneral:
		return true
	}
	return false
}

type rule struct {
	role Role
	from Phase
	to   Phase
	memo MemoType
}

var rules = map[Transition]rule{
	TransitionNegotiate: {role: RoleSeller, from: PhaseCreated, to: PhaseNegotiating, memo: MemoAgreement},
	TransitionFund:      {role: RoleBuyer, from: PhaseNegotiating, to: PhaseFunded, memo: MemoTransaction},
	TransitionDeliver:   {role: RoleSeller, from: PhaseFunded, to: PhaseDelivered, memo: MemoDeliverable},
	TransitionEvaluate:  {role: RoleEvaluator, from: PhaseDelivered, to: PhaseEvaluated, memo: MemoEvaluation},
}

// ErrUnknownTransition is returned for a Transition not in the lifecycle.
var ErrUnknownTransition = errors.New("unknown transition")

// InvalidTransitionError reports a transition attempted from the wrong phase.
type InvalidTransitionError struct {
	From       Phase
	Transition Transition
	Expected   Phase
}

func (e *InvalidTransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("cannot %s: job is %s (terminal)", e.Transition, e.From)
	}
	return fmt.Sprintf("cannot %s: job is %s, expected %s", e.Transition, e.From, e.Expected)
}

// RoleFor returns the role allowed to perform t.
func RoleFor(t Transition) (Role, error) {
	r, ok := rules[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransition, t)
	}
	return r.role, nil
}

// MemoFor returns the memo type recorded when t advances a job.
func MemoFor(t Transition) (MemoType, error) {
	r, ok := rules[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransition, t)
	}
	return r.memo, nil
}

// Next returns the phase a job in from reaches after t. approved only
// matters for TransitionEvaluate: a rejection moves the job to disputed.
func Next(from Phase, t Transition, approved bool) (Phase, error) {
	r, ok := rules[t]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTransition, t)
	}
	if from != r.from {
		return "", &InvalidTransitionError{From: from, Transition: t, Expected: r.from}
	}
	if t == TransitionEvaluate && !approved {
		return PhaseDisputed, nil
	}
	return r.to, nil
}
