package race

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoParticipants is returned by Start when there is nothing to race.
	ErrNoParticipants = errors.New("race has no participants")

	// ErrEmptyResult marks a call that returned only whitespace.
	ErrEmptyResult = errors.New("empty result")
)

// Error is returned by Race.Winner when every participant failed. Failures
// lists every outcome in the order the calls settled.
type Error struct {
	Failures []Outcome
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("all backends failed")
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.Backend, f.Err)
	}
	return b.String()
}

// Unwrap exposes every per-backend error to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}
