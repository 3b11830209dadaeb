package pipeline

// State tracks one invoice's progress through the pipeline. The machine
// is linear with conditional skips: PENDING -> OCR_DONE -> PARSED ->
// VALIDATED -> DONE, with ERROR reachable from every stage.
type State string

const (
	StatePending   State = "PENDING"
	StateOCRDone   State = "OCR_DONE"
	StateParsed    State = "PARSED"
	StateValidated State = "VALIDATED"
	StateDone      State = "DONE"
	StateError     State = "ERROR"
)

// next returns the successor state in the happy path.
func (s State) next() State {
	switch s {
	case StatePending:
		return StateOCRDone
	case StateOCRDone:
		return StateParsed
	case StateParsed:
		return StateValidated
	case StateValidated:
		return StateDone
	default:
		return StateError
	}
}
