// Package mastery computes drill scores before and after redemption.
package mastery

import (
	"fmt"
	"strconv"
	"strings"
)

// Score is a "correct/total" fraction.
type Score struct {
	Correct int
	Total   int
}

// String renders the score as "correct/total".
func (s Score) String() string {
	return fmt.Sprintf("%d/%d", s.Correct, s.Total)
}

// Percent returns the score as a 0-100 percentage. An empty score is 0.
func (s Score) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Correct * 100 / s.Total
}

// ParseScore parses a "correct/total" string.
func ParseScore(s string) (Score, error) {
	left, right, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Score{}, fmt.Errorf("score %q: missing '/'", s)
	}
	correct, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return Score{}, fmt.Errorf("score %q: %w", s, err)
	}
	total, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return Score{}, fmt.Errorf("score %q: %w", s, err)
	}
	if correct < 0 || total < 0 || correct > total {
		return Score{}, fmt.Errorf("score %q: out of range", s)
	}
	return Score{Correct: correct, Total: total}, nil
}

// Result holds the original and final scores of one drill.
type Result struct {
	Original Score
	Final    Score
}

// Improvement is the number of questions recovered during redemption.
func (r Result) Improvement() int {
	d := r.Final.Correct - r.Original.Correct
	if d < 0 {
		return 0
	}
	return d
}

// Calculate scores a drill.
//
// keys maps every question id to its correct option. Unanswered questions
// count as incorrect. The final score adds one point for each mistake whose
// redemption answer is correct; a mistake that was answered correctly in the
// exam never counts twice.
func Calculate(keys, exam, redemption map[int]string, mistakes []int) Result {
	original := Score{Total: len(keys)}
	for id, correct := range keys {
		if a, ok := exam[id]; ok && a == correct {
			original.Correct++
		}
	}

	final := original
	seen := make(map[int]bool, len(mistakes))
	for _, id := range mistakes {
		if seen[id] {
			continue
		}
		seen[id] = true

		correct, ok := keys[id]
		if !ok {
			continue
		}
		if exam[id] == correct {
			continue
		}
		if a, ok := redemption[id]; ok && a == correct {
			final.Correct++
		}
	}

	return Result{Original: original, Final: final}
}
