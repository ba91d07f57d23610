package parser

import "fmt"

// ParseError reports an artifact whose raw bytes could not be parsed.
// It is scoped to the one artifact and never aborts a batch.
type ParseError struct {
	Artifact string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Artifact, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnsupportedStateVersionError reports a state snapshot older than the
// minimum format version the normalizer understands.
type UnsupportedStateVersionError struct {
	Found   int
	Minimum int
}

func (e *UnsupportedStateVersionError) Error() string {
	return fmt.Sprintf("state format version %d not supported (need v%d or later)", e.Found, e.Minimum)
}

// InvalidActionError reports an action verb outside the supported set. It
// fails the whole change-set document, since an unrecognized action would
// invalidate any summary computed over it.
type InvalidActionError struct {
	Address string
	Verb    string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q for %s", e.Verb, e.Address)
}

// MissingFieldError reports a record missing a field the schema requires.
type MissingFieldError struct {
	Context string
	Field   string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Context, e.Field)
}
