package pipeline

import (
	"fmt"
	"strings"
)

// InvalidOptionCombinationError reports mode flags that cannot be combined.
type InvalidOptionCombinationError struct {
	Option    string
	Conflicts []string
}

func (e *InvalidOptionCombinationError) Error() string {
	return fmt.Sprintf("invalid option combination: %s cannot be combined with %s",
		e.Option, strings.Join(e.Conflicts, ", "))
}

// ResolutionNotAvailableError reports that no track matches the requested
// resolution or tier.
type ResolutionNotAvailableError struct {
	Resolution string
}

func (e *ResolutionNotAvailableError) Error() string {
	return fmt.Sprintf("resolution %s is not available", e.Resolution)
}

// EncodeError is a failure reported by the encoder process.
type EncodeError struct {
	Message string
	Err     error
}

func (e *EncodeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("encode failed: %v", e.Err)
	}
	return fmt.Sprintf("encode failed: %s", e.Message)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
