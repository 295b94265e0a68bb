package params

import (
	"fmt"
	"strings"
)

// Issue codes reported in ValidationError.
const (
	CodeMissing = "MISSING_PARAM"
	CodeInvalid = "INVALID_PARAM"
)

// Issue describes one offending input field.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError lists every missing or malformed field of a request.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s (%s: %s)", is.Field, is.Code, is.Message))
	}
	return "params: invalid input: " + strings.Join(parts, ", ")
}

// Missing returns the names of the required fields that were not supplied.
func (e *ValidationError) Missing() []string {
	var out []string
	for _, is := range e.Issues {
		if is.Code == CodeMissing {
			out = append(out, is.Field)
		}
	}
	return out
}

// HasInvalid reports whether any supplied value was malformed.
func (e *ValidationError) HasInvalid() bool {
	for _, is := range e.Issues {
		if is.Code == CodeInvalid {
			return true
		}
	}
	return false
}
