package model

// RunState is a step of the orchestrator state machine.
type RunState string

// Run states.
const (
	StateScanning           RunState = "scanning"
	StateParsing            RunState = "parsing"
	StateWaitingResolutions RunState = "waiting-resolutions"
	StateReviewResults      RunState = "review-results"
	StateWriting            RunState = "writing"
	StateDone               RunState = "done"
	StateError              RunState = "error"
)

// Terminal reports whether no further transitions follow this state.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateError
}

// ProgressEvent is emitted by the orchestrator as a run advances.
type ProgressEvent struct {
	Err        error
	Summary    *RunSummary
	State      RunState
	Message    string
	File       string
	Percentage float64
}
