package convert

import "fmt"

// EmptyInputError means a unit had no content at all. Never retried.
type EmptyInputError struct {
	Unit string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("empty content in %s", e.Unit)
}

// BackendError wraps a transport-level failure from the model backend.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend failure: %v", e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// SchemaError means the output parsed but contained none of the expected
// keys for the request.
type SchemaError struct {
	Found []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing expected keys, found: %v", e.Found)
}

// UnitError is a unit-level failure: every chunk failed, or the fallback
// request after an unusable recombination also failed.
type UnitError struct {
	Unit   string
	Reason string
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Unit, e.Reason)
}
