package augment

import "fmt"

// MalformedDecoratorError is returned when a recognized decorator's first
// argument is not an object literal.
type MalformedDecoratorError struct {
	Decorator string
	// Found is the syntax kind of the offending argument.
	Found string
}

func (e *MalformedDecoratorError) Error() string {
	return fmt.Sprintf("@%s: first argument must be an object literal, found %s", e.Decorator, e.Found)
}

// SiteError locates a failure at a recognized site. It wraps either a
// *synth.UnsupportedTypeError or a *MalformedDecoratorError.
type SiteError struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
	Site   string
	Err    error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %v", e.File, e.Line, e.Column, e.Site, e.Err)
}

func (e *SiteError) Unwrap() error { return e.Err }
