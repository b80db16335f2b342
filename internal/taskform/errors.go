package taskform

import (
	"strings"
)

// Kind classifies a field error.
type Kind int

const (
	// KindStructural marks a missing or malformed field.
	KindStructural Kind = iota
	// KindReference marks an ID that did not resolve to an entity.
	KindReference
	// KindTemporal marks a limit time that is not in the future.
	KindTemporal
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindReference:
		return "reference"
	case KindTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// FieldError is a single validation failure on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"-"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors holds every failure collected by one validation pass, in rule order.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// For returns the errors recorded against field.
func (e ValidationErrors) For(field string) []FieldError {
	var out []FieldError
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe)
		}
	}
	return out
}

// Has reports whether field has an error of the given kind.
func (e ValidationErrors) Has(field string, kind Kind) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Kind == kind {
			return true
		}
	}
	return false
}

// Fields groups the messages by field name for field-level display.
func (e ValidationErrors) Fields() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}
