package analysis

// Outcome is the terminal state of one analysis run.
type Outcome string

const (
	OutcomeFound        Outcome = "found"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeAborted      Outcome = "aborted"
	OutcomeFailed       Outcome = "failed"
	OutcomeInvalidInput Outcome = "invalid_input"

	// OutcomeSkipped is used by the monitor for submissions that need no analysis.
	OutcomeSkipped Outcome = "skipped"
)

// IsError reports whether the outcome should fail the invoking command.
func (o Outcome) IsError() bool {
	switch o {
	case OutcomeAborted, OutcomeFailed, OutcomeInvalidInput:
		return true
	default:
		return false
	}
}
