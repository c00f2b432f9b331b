package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned for an event the current phase does
	// not accept. The state is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnansweredQuestions is returned when submitting an exam with
	// unanswered questions without confirmation.
	ErrUnansweredQuestions = errors.New("unanswered questions")

	// ErrStale is returned by Await when the state moved on while the call
	// was in flight. The result was discarded.
	ErrStale = errors.New("stale result discarded")
)

// ValidationError rejects learner input. The state carries a validation
// notice but stays in the same phase.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UnansweredError reports how many questions are still unanswered.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d unanswered question(s)", e.Count)
}

func (e *UnansweredError) Is(target error) bool {
	return target == ErrUnansweredQuestions
}

func invalid(p Phase, ev Event) error {
	return fmt.Errorf("%w: %T in %s", ErrInvalidTransition, ev, p)
}
