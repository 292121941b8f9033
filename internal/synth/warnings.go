package synth

import (
	"fmt"

	shimchecker "github.com/microsoft/typescript-go/shim/checker"
)

// Warning kinds recorded during synthesis.
const (
	WarnCircularType  = "circular-type"
	WarnDepthExceeded = "depth-exceeded"
)

// Warning is a non-fatal problem found while synthesizing a schema.
type Warning struct {
	// Kind is one of the Warn* constants.
	Kind string
	// TypeName is the display name of the type that triggered the warning.
	TypeName string
	Message  string
}

// UnsupportedTypeError is returned when a type has no schema equivalent.
type UnsupportedTypeError struct {
	TypeName string
	Reason   string

	typ *shimchecker.Type
}

func (e *UnsupportedTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported type %s: %s", e.TypeName, e.Reason)
	}
	return fmt.Sprintf("unsupported type %s", e.TypeName)
}
