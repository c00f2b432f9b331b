// Package redemption implements the per-mistake retry flow: read the hint,
// retry once with the original wrong option disabled, then either celebrate
// or reveal the full explanation.
package redemption

import (
	"errors"
	"slices"
)

// Stage is the position of the engine within one mistake.
type Stage int

const (
	// StageViewHint shows the trap type and hint. The original wrong option
	// is disabled.
	StageViewHint Stage = iota

	// StageRetrying accepts a single answer.
	StageRetrying

	// StageFeedbackCorrect is terminal: the retry fixed the mistake.
	StageFeedbackCorrect

	// StageFeedbackWrong may only move on to StageRevealed.
	StageFeedbackWrong

	// StageRevealed shows the full explanation. Terminal.
	StageRevealed
)

func (s Stage) String() string {
	switch s {
	case StageViewHint:
		return "view_hint"
	case StageRetrying:
		return "retrying"
	case StageFeedbackCorrect:
		return "feedback_correct"
	case StageFeedbackWrong:
		return "feedback_wrong"
	case StageRevealed:
		return "revealed"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidStage   = errors.New("action not allowed at this stage")
	ErrOptionDisabled = errors.New("option is disabled")
	ErrUnknownOption  = errors.New("unknown option")
)

// Engine is an immutable value; every action returns the next Engine.
type Engine struct {
	questionID int
	options    []string
	correct    string
	disabled   string
	stage      Stage
	answer     string
}

// New starts redemption for a question. options are the question's option
// keys, correct the answer key and examAnswer the wrong option picked in the
// exam (empty when the question was left unanswered).
func New(questionID int, options []string, correct, examAnswer string) Engine {
	opts := slices.Clone(options)
	slices.Sort(opts)
	return Engine{
		questionID: questionID,
		options:    opts,
		correct:    correct,
		disabled:   examAnswer,
		stage:      StageViewHint,
	}
}

func (e Engine) QuestionID() int { return e.questionID }
func (e Engine) Stage() Stage    { return e.stage }

// Disabled returns the option that cannot be chosen on retry.
func (e Engine) Disabled() string { return e.disabled }

// Answer returns the retry answer, empty until one is selected.
func (e Engine) Answer() string { return e.answer }

// Correct returns the key of the correct option.
func (e Engine) Correct() string { return e.correct }

// Selectable lists the option keys allowed on retry, in key order.
func (e Engine) Selectable() []string {
	out := make([]string, 0, len(e.options))
	for _, o := range e.options {
		if o != e.disabled {
			out = append(out, o)
		}
	}
	return out
}

// BeginRetry moves from the hint to the retry.
func (e Engine) BeginRetry() (Engine, error) {
	if e.stage != StageViewHint {
		return e, ErrInvalidStage
	}
	e.stage = StageRetrying
	return e, nil
}

// Select records the single retry answer.
func (e Engine) Select(option string) (Engine, error) {
	if e.stage != StageRetrying {
		return e, ErrInvalidStage
	}
	if !slices.Contains(e.options, option) {
		return e, ErrUnknownOption
	}
	if option == e.disabled {
		return e, ErrOptionDisabled
	}
	e.answer = option
	if option == e.correct {
		e.stage = StageFeedbackCorrect
	} else {
		e.stage = StageFeedbackWrong
	}
	return e, nil
}

// Reveal shows the full explanation after a wrong retry.
func (e Engine) Reveal() (Engine, error) {
	if e.stage != StageFeedbackWrong {
		return e, ErrInvalidStage
	}
	e.stage = StageRevealed
	return e, nil
}

// Resolved reports whether the cursor may move past this mistake.
func (e Engine) Resolved() bool {
	return e.stage == StageFeedbackCorrect || e.stage == StageRevealed
}

// Fixed reports whether the retry answered correctly.
func (e Engine) Fixed() bool {
	return e.stage == StageFeedbackCorrect
}
