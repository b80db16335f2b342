package taskform

// State is the lifecycle of one request through the form.
//
//	Validating -> Valid | Invalid
//	Valid -> Assembled (add) | Queried (list)
//
// Invalid is terminal.
type State int

const (
	StateValidating State = iota
	StateValid
	StateInvalid
	StateAssembled
	StateQueried
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	case StateAssembled:
		return "assembled"
	case StateQueried:
		return "queried"
	default:
		return "unknown"
	}
}
