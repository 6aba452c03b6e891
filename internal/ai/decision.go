package ai

// Action is the policy authority's trade directive.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionWait  Action = "WAIT"
)

// Valid reports whether the action is one of the known enum values.
func (a Action) Valid() bool {
	switch a {
	case ActionLong, ActionShort, ActionWait:
		return true
	}
	return false
}

// Decision is the normalized policy output. When Action is not WAIT, the
// execution gate requires TargetLiquidity and StopReference to be present.
type Decision struct {
	Action          Action   `json:"action"`
	Confidence      int      `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	EntryPOI        *float64 `json:"entry_poi"`
	TargetLiquidity *float64 `json:"target_liquidity"`
	StopReference   *float64 `json:"stop_reference"`
}

// FallbackWait is the fail-safe decision used whenever the authority cannot
// be consulted or returns garbage. The structural stop level is preserved
// from the originating snapshot so it is never silently lost.
func FallbackWait(reason string, stopReference *float64) Decision {
	return Decision{
		Action:        ActionWait,
		Confidence:    0,
		Reasoning:     "System defaulted to WAIT: " + reason + ".",
		StopReference: stopReference,
	}
}
