package coach

import (
	"fmt"
	"strings"

	"github.com/abhisek/drillsergeant/internal/backend"
)

// Validator checks a generated drill. Implementations are stateless.
type Validator interface {
	Name() string
	Validate(s *backend.Session) *ValidationError
}

// ValidationError describes why a generated drill was rejected.
type ValidationError struct {
	Validator string
	Message   string
	Retryable bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructureValidator checks the passage and the question list.
type StructureValidator struct {
	MinQuestions int
	MaxQuestions int
}

func (v *StructureValidator) Name() string { return "structure" }

func (v *StructureValidator) Validate(s *backend.Session) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...), Retryable: true}
	}

	if strings.TrimSpace(s.Passage.Text) == "" {
		return fail("passage text is empty")
	}
	n := len(s.Questions)
	if n < v.MinQuestions {
		return fail("got %d questions, want at least %d", n, v.MinQuestions)
	}
	if v.MaxQuestions > 0 && n > v.MaxQuestions {
		return fail("got %d questions, want at most %d", n, v.MaxQuestions)
	}
	for i, q := range s.Questions {
		if q.ID != i+1 {
			return fail("question %d has id %d, want sequential ids from 1", i+1, q.ID)
		}
		if strings.TrimSpace(q.Text) == "" {
			return fail("question %d has an empty stem", q.ID)
		}
	}
	return nil
}

// OptionValidator checks every question's options and answer key.
type OptionValidator struct{}

func (v *OptionValidator) Name() string { return "options" }

func (v *OptionValidator) Validate(s *backend.Session) *ValidationError {
	for _, q := range s.Questions {
		if len(q.Options) < 2 {
			return &ValidationError{Validator: v.Name(), Retryable: true,
				Message: fmt.Sprintf("question %d has %d options", q.ID, len(q.Options))}
		}
		seen := make(map[string]bool, len(q.Options))
		for key, text := range q.Options {
			if len(key) != 1 || key[0] < 'A' || key[0] > 'E' {
				return &ValidationError{Validator: v.Name(), Retryable: true,
					Message: fmt.Sprintf("question %d has option key %q", q.ID, key)}
			}
			t := strings.ToLower(strings.TrimSpace(text))
			if t == "" || seen[t] {
				return &ValidationError{Validator: v.Name(), Retryable: true,
					Message: fmt.Sprintf("question %d has an empty or repeated option", q.ID)}
			}
			seen[t] = true
		}
		if _, ok := q.Options[q.CorrectOption]; !ok {
			return &ValidationError{Validator: v.Name(), Retryable: true,
				Message: fmt.Sprintf("question %d marks %q correct, which is not an option", q.ID, q.CorrectOption)}
		}
	}
	return nil
}
