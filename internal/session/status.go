package session

import "triage/internal/types"

// DisplayStatus is the six-way user-facing classification derived from
// the raw session lifecycle and the agent's self-reported phase.
type DisplayStatus string

const (
	DisplayNotScoped     DisplayStatus = "not-scoped"
	DisplayScoping       DisplayStatus = "scoping"
	DisplayInitializing  DisplayStatus = "initializing"
	DisplayAwaitingInput DisplayStatus = "awaiting-input"
	DisplayExecuting     DisplayStatus = "executing"
	DisplayPRReady       DisplayStatus = "pr-ready"
)

// MapDisplayStatus collapses raw status x self-reported phase into one
// display state. The raw lifecycle and the agent phase are independent
// signals that can disagree transiently; raw status wins for terminal and
// blocking conditions because it is the more authoritative of the two,
// while the phase disambiguates "running" into a concrete affordance.
// The match order is load-bearing.
func MapDisplayStatus(detail *types.SessionDetail) DisplayStatus {
	if detail == nil {
		return DisplayNotScoped
	}
	if detail.Status == types.SessionStatusInitializing {
		return DisplayInitializing
	}
	out := Normalize(detail.StructuredOutput)
	phase := ""
	if out != nil {
		phase = out.Status
	}
	if detail.Status == types.SessionStatusFinished || phase == PhaseCompleted {
		return DisplayPRReady
	}
	if detail.Status == types.SessionStatusBlocked {
		return DisplayAwaitingInput
	}
	switch phase {
	case PhaseScoping:
		return DisplayScoping
	case PhaseExecuting:
		return DisplayExecuting
	}
	return DisplayScoping
}

func (s DisplayStatus) String() string { return string(s) }

// Label returns the human-readable form used in tables and badges.
func (s DisplayStatus) Label() string {
	switch s {
	case DisplayNotScoped:
		return "Not Scoped"
	case DisplayScoping:
		return "Scoping"
	case DisplayInitializing:
		return "Initializing"
	case DisplayAwaitingInput:
		return "Awaiting Input"
	case DisplayExecuting:
		return "Executing"
	case DisplayPRReady:
		return "PR Ready"
	default:
		return string(s)
	}
}
