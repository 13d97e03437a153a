package domain

import "fmt"

// ValidationError reports a missing or unusable submission field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ClassificationError reports a failed classification backend call. It
// is always surfaced to the caller; submissions are never accepted with
// defaulted classification fields.
type ClassificationError struct {
	Err error
}

func (e ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e ClassificationError) Unwrap() error { return e.Err }

// InvalidStatusError reports a status update outside the closed
// open/processing/resolved/closed set.
type InvalidStatusError struct {
	Status string
}

func (e InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Status)
}
