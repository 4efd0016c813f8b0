package service

import (
	"fmt"
	"slices"
	"time"
)

// FlowKind names an orchestrated authentication flow.
type FlowKind string

const (
	FlowLogin         FlowKind = "login"
	FlowSignup        FlowKind = "signup"
	FlowOAuth         FlowKind = "oauth"
	FlowResetRequest  FlowKind = "password_reset_request"
	FlowResetComplete FlowKind = "password_reset_complete"
)

// FlowState is a state within a flow.
type FlowState string

const (
	StateIdle                 FlowState = "idle"
	StateAuthenticating       FlowState = "authenticating"
	StateResolvingProfile     FlowState = "resolving_profile"
	StateClassifying          FlowState = "classifying"
	StateRedirected           FlowState = "redirected"
	StateFailed               FlowState = "failed"
	StateCreating             FlowState = "creating"
	StateAwaitingVerification FlowState = "awaiting_verification"
	StateRedirecting          FlowState = "redirecting"
	StateCallbackReceived     FlowState = "callback_received"
	StateSending              FlowState = "sending"
	StateSent                 FlowState = "sent"
	StateUpdating             FlowState = "updating"
	StateDone                 FlowState = "done"
)

type transitionTable map[FlowState][]FlowState

var flowTransitions = map[FlowKind]transitionTable{
	FlowLogin: {
		StateIdle:             {StateAuthenticating, StateFailed},
		StateAuthenticating:   {StateResolvingProfile, StateFailed},
		StateResolvingProfile: {StateClassifying, StateFailed},
		StateClassifying:      {StateRedirected, StateFailed},
	},
	FlowSignup: {
		StateIdle:     {StateCreating, StateFailed},
		StateCreating: {StateAwaitingVerification, StateFailed},
	},
	FlowOAuth: {
		StateIdle:             {StateRedirecting, StateFailed},
		StateRedirecting:      {StateCallbackReceived, StateFailed},
		StateCallbackReceived: {StateResolvingProfile, StateFailed},
		StateResolvingProfile: {StateClassifying, StateFailed},
		StateClassifying:      {StateRedirected, StateFailed},
	},
	FlowResetRequest: {
		StateIdle:    {StateSending, StateFailed},
		StateSending: {StateSent},
	},
	FlowResetComplete: {
		StateIdle:     {StateUpdating, StateFailed},
		StateUpdating: {StateDone, StateFailed},
	},
}

// resumePoints are the states a flow may be re-entered at after an external hop.
var resumePoints = map[FlowKind][]FlowState{
	FlowOAuth: {StateCallbackReceived},
}

// Flow tracks one run of a flow and rejects transitions its table does not allow.
type Flow struct {
	kind    FlowKind
	state   FlowState
	trace   []FlowState
	started time.Time
}

// NewFlow starts kind at Idle.
func NewFlow(kind FlowKind) *Flow {
	return &Flow{kind: kind, state: StateIdle, trace: []FlowState{StateIdle}, started: time.Now()}
}

// ResumeFlow re-enters kind at a resume point, e.g. the OAuth callback.
func ResumeFlow(kind FlowKind, at FlowState) (*Flow, error) {
	if !slices.Contains(resumePoints[kind], at) {
		return nil, fmt.Errorf("flow %s cannot resume at %s", kind, at)
	}
	return &Flow{kind: kind, state: at, trace: []FlowState{at}, started: time.Now()}, nil
}

// Kind returns the flow kind.
func (f *Flow) Kind() FlowKind { return f.kind }

// State returns the current state.
func (f *Flow) State() FlowState { return f.state }

// Elapsed is the wall time since the flow started or resumed.
func (f *Flow) Elapsed() time.Duration { return time.Since(f.started) }

// Trace returns a copy of every state visited, in order.
func (f *Flow) Trace() []FlowState { return slices.Clone(f.trace) }

// Terminal reports whether the flow has no outgoing transitions.
func (f *Flow) Terminal() bool { return len(flowTransitions[f.kind][f.state]) == 0 }

// To moves the flow to next.
func (f *Flow) To(next FlowState) error {
	if !slices.Contains(flowTransitions[f.kind][f.state], next) {
		return fmt.Errorf("flow %s: illegal transition %s -> %s", f.kind, f.state, next)
	}
	f.state = next
	f.trace = append(f.trace, next)
	return nil
}

// mustTo is To for transitions the orchestrator hard-codes; a failure is a programming error.
func (f *Flow) mustTo(next FlowState) {
	if err := f.To(next); err != nil {
		panic(err)
	}
}
