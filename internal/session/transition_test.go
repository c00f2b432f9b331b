package session

import (
	"errors"
	"testing"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/redemption"
	"github.com/abhisek/drillsergeant/internal/streak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(t *testing.T, s State, ev Event) State {
	t.Helper()
	next, err := Transition(s, ev)
	require.NoError(t, err, "event %T in %s", ev, s.Phase)
	return next
}

// examState returns a state in EXAM with the given answers.
func examState(t *testing.T, answers map[int]string) State {
	t.Helper()
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})
	s = step(t, s, StartDrill{Difficulty: backend.Intermediate, ExamDate: "2025-06-01"})
	s = step(t, s, DrillGenerated{Session: fiveQuestionSession()})
	for id, opt := range answers {
		s = step(t, s, SelectAnswer{QuestionID: id, Option: opt})
	}
	return s
}

func redeem(t *testing.T, s State, pick string) State {
	t.Helper()
	s = step(t, s, BeginRetry{})
	s = step(t, s, SelectRetry{Option: pick})
	if !s.Drill.Retry.Fixed() {
		s = step(t, s, RevealExplanation{})
	}
	return step(t, s, NextMistake{})
}

func TestInitialPhase(t *testing.T) {
	assert.Equal(t, PhaseSetup, Initial(prefs.Preferences{}, prefs.Account{}, streak.State{}).Phase)
	assert.Equal(t, PhaseHome, Initial(prefs.Preferences{Configured: true}, prefs.Account{}, streak.State{}).Phase)
}

func TestFullRedemption(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "A", 5: "A"})
	s = step(t, s, Submit{})
	assert.Equal(t, PhaseAnalyzing, s.Phase)

	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(4, "Distortion"), mistake(5, "Opposite")}})
	require.Equal(t, PhaseRedemption, s.Phase)
	assert.Equal(t, "3/5", s.Drill.Result.Original.String())
	assert.Equal(t, "A", s.Drill.Retry.Disabled())

	s = redeem(t, s, "D")
	assert.Equal(t, PhaseRedemption, s.Phase)
	assert.Equal(t, 1, s.Drill.Cursor)

	s = redeem(t, s, "E")
	assert.Equal(t, PhaseSummary, s.Phase)
	assert.Equal(t, "3/5", s.Drill.Result.Original.String())
	assert.Equal(t, "5/5", s.Drill.Result.Final.String())
	assert.Equal(t, 2, s.Drill.Result.Improvement())
	assert.Equal(t, []string{"Distortion", "Opposite"}, s.Drill.Traps())
}

func TestPartialRedemption(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "A", 5: "A"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(4, "Distortion"), mistake(5, "Distortion")}})

	s = redeem(t, s, "D")
	s = step(t, s, BeginRetry{})
	s = step(t, s, SelectRetry{Option: "B"})
	assert.Equal(t, redemption.StageFeedbackWrong, s.Drill.Retry.Stage())

	_, err := Transition(s, NextMistake{})
	assert.ErrorIs(t, err, ErrInvalidTransition, "wrong retry must be revealed first")

	s = step(t, s, RevealExplanation{})
	s = step(t, s, NextMistake{})

	assert.Equal(t, PhaseSummary, s.Phase)
	assert.Equal(t, "4/5", s.Drill.Result.Final.String())
	assert.Equal(t, []string{"Distortion"}, s.Drill.Traps())
}

func TestZeroMistakesSkipsRedemption(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{})

	assert.Equal(t, PhaseSummary, s.Phase)
	assert.Equal(t, "5/5", s.Drill.Result.Original.String())
	assert.Equal(t, s.Drill.Result.Original, s.Drill.Result.Final)
}

func TestMistakeFiltering(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "A"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{
		mistake(99, "Out of Scope"), // unknown question
		mistake(1, "Distortion"),    // answered correctly
		mistake(5, "Opposite"),
		mistake(5, "Opposite"), // duplicate
	}})

	require.Equal(t, PhaseRedemption, s.Phase)
	require.Len(t, s.Drill.Mistakes, 1)
	assert.Equal(t, 5, s.Drill.Mistakes[0].QuestionID)
}

func TestOnlyIrrelevantMistakesGoToSummary(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(1, "Distortion")}})
	assert.Equal(t, PhaseSummary, s.Phase)
}

func TestUnansweredRequiresConfirmation(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B"})

	next, err := Transition(s, Submit{})
	var ue *UnansweredError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 3, ue.Count)
	assert.ErrorIs(t, err, ErrUnansweredQuestions)
	assert.Equal(t, PhaseExam, next.Phase)

	s = step(t, s, Submit{Confirmed: true})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(3, "Extreme Language")}})
	require.Equal(t, PhaseRedemption, s.Phase)
	assert.Empty(t, s.Drill.Retry.Disabled(), "unanswered question has no disabled option")
	assert.Equal(t, "2/5", s.Drill.Result.Original.String())
}

func TestRedemptionAnswerNeverEqualsExamAnswer(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "A", 5: "E"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(4, "Distortion")}})
	s = step(t, s, BeginRetry{})

	next, err := Transition(s, SelectRetry{Option: "A"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "option", ve.Field)
	assert.Equal(t, PhaseRedemption, next.Phase)
	require.NotNil(t, next.Notice)
	assert.Equal(t, NoticeValidation, next.Notice.Kind)
	assert.Empty(t, next.Drill.RedemptionAnswers)

	s = step(t, next, SelectRetry{Option: "B"})
	assert.Equal(t, "B", s.Drill.RedemptionAnswers[4])
	assert.Nil(t, s.Notice)
}

func TestCursorOnlyAdvancesWhenResolved(t *testing.T) {
	s := examState(t, map[int]string{1: "B", 2: "A", 3: "C", 4: "D", 5: "E"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{Mistakes: []backend.Mistake{mistake(1, "Distortion"), mistake(2, "Opposite")}})

	for _, ev := range []Event{NextMistake{}, RevealExplanation{}, SelectRetry{Option: "A"}} {
		next, err := Transition(s, ev)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%T", ev)
		assert.Equal(t, 0, next.Drill.Cursor)
	}

	summaries := 0
	prev := s.Drill.Cursor
	for s.Phase == PhaseRedemption {
		s = redeem(t, s, "C")
		if s.Phase == PhaseRedemption {
			assert.Greater(t, s.Drill.Cursor, prev)
			prev = s.Drill.Cursor
		}
		if s.Phase == PhaseSummary {
			summaries++
		}
	}
	assert.Equal(t, 1, summaries)

	_, err := Transition(s, NextMistake{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	s := examState(t, map[int]string{1: "A"})
	before := s.Drill.ExamAnswers[2]

	next := step(t, s, SelectAnswer{QuestionID: 2, Option: "C"})
	assert.Equal(t, before, s.Drill.ExamAnswers[2])
	assert.Equal(t, "C", next.Drill.ExamAnswers[2])
	assert.NotSame(t, s.Drill, next.Drill)
}

func TestSelectAnswerValidation(t *testing.T) {
	s := examState(t, nil)

	_, err := Transition(s, SelectAnswer{QuestionID: 42, Option: "A"})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "question", ve.Field)

	_, err = Transition(s, SelectAnswer{QuestionID: 1, Option: "Z"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "option", ve.Field)

	s = step(t, s, SelectAnswer{QuestionID: 1, Option: "B"})
	s = step(t, s, SelectAnswer{QuestionID: 1, Option: "A"})
	assert.Equal(t, "A", s.Drill.ExamAnswers[1])
}

func TestStartDrillValidation(t *testing.T) {
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})

	tests := []struct {
		name  string
		ev    StartDrill
		field string
	}{
		{"missing exam date", StartDrill{Difficulty: backend.Beginner}, "exam_date"},
		{"bad exam date", StartDrill{Difficulty: backend.Beginner, ExamDate: "next june"}, "exam_date"},
		{"bad difficulty", StartDrill{Difficulty: "Expert", ExamDate: "2025-06-01"}, "difficulty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(s, tt.ev)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, PhaseSetup, next.Phase)
			assert.Equal(t, s.Epoch, next.Epoch)
			require.NotNil(t, next.Notice)
			assert.Equal(t, NoticeValidation, next.Notice.Kind)
		})
	}
}

func TestStartDrillNormalizesDate(t *testing.T) {
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})
	s = step(t, s, StartDrill{Difficulty: backend.Advanced, ExamDate: "2025-06-01T00:00:00"})
	assert.Equal(t, PhaseGenerating, s.Phase)
	assert.Equal(t, "2025-06-01", s.Drill.ExamDate)
	assert.Equal(t, PhaseSetup, s.Origin)
}

func TestGenerationFailureReturnsToOrigin(t *testing.T) {
	s := Initial(prefs.Preferences{Configured: true, Difficulty: backend.Beginner, ExamDate: "2025-06-01"}, prefs.Account{}, streak.State{})
	s = step(t, s, StartDrill{Difficulty: backend.Beginner, ExamDate: "2025-06-01"})
	s = step(t, s, DrillFailed{Err: netErr("generate-session")})

	assert.Equal(t, PhaseHome, s.Phase)
	assert.Nil(t, s.Drill)
	require.NotNil(t, s.Notice)
	assert.Equal(t, NoticeNetwork, s.Notice.Kind)
	assert.Equal(t, "upstream unavailable", s.Notice.Message)
}

func TestEmptyDrillIsAFailure(t *testing.T) {
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})
	s = step(t, s, StartDrill{Difficulty: backend.Beginner, ExamDate: "2025-06-01"})
	s = step(t, s, DrillGenerated{Session: backend.Session{ID: "x"}})
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.False(t, s.Prefs.Configured)
	assert.NotNil(t, s.Notice)
}

func TestAnalysisFailureKeepsAnswers(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "C"})
	s = step(t, s, Submit{Confirmed: true})
	s = step(t, s, AnalysisFailed{Err: netErr("analyze-mistakes")})

	assert.Equal(t, PhaseExam, s.Phase)
	assert.Equal(t, map[int]string{1: "A", 2: "C"}, s.Drill.ExamAnswers)
	assert.NotNil(t, s.Notice)
}

func TestFinishDrillKeepsPreferences(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"})
	assert.True(t, s.Prefs.Configured)
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{})
	s = step(t, s, FinishDrill{})

	assert.Equal(t, PhaseHome, s.Phase)
	assert.Nil(t, s.Drill)
	assert.Equal(t, prefs.Preferences{Configured: true, Difficulty: backend.Intermediate, ExamDate: "2025-06-01"}, s.Prefs)
}

func TestCoachOnce(t *testing.T) {
	s := examState(t, map[int]string{1: "A", 2: "B", 3: "C", 4: "D", 5: "E"})
	s = step(t, s, Submit{})
	s = step(t, s, MistakesAnalyzed{})

	s = step(t, s, CoachRequested{})
	_, err := Transition(s, CoachRequested{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	s = step(t, s, CoachFailed{})
	assert.Equal(t, FallbackCoach, *s.Drill.Coach)

	_, err = Transition(s, CoachReceived{Message: backend.CoachMessage{Headline: "late"}})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestInvalidEventsLeaveStateUntouched(t *testing.T) {
	s := Initial(prefs.Preferences{Configured: true}, prefs.Account{}, streak.State{})

	for _, ev := range []Event{
		Submit{}, DrillGenerated{Session: fiveQuestionSession()}, MistakesAnalyzed{},
		BeginRetry{}, NextMistake{}, FinishDrill{}, StreakRecorded{}, ContinueAsGuest{},
		Authenticated{Token: "t"},
	} {
		next, err := Transition(s, ev)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%T", ev)
		assert.Equal(t, s, next, "%T", ev)
	}
}

func TestAccountNavigation(t *testing.T) {
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})
	s = step(t, s, ShowLogin{})
	assert.Equal(t, PhaseLogin, s.Phase)
	s = step(t, s, ShowRegister{})
	assert.Equal(t, PhaseRegister, s.Phase)
	s = step(t, s, ContinueAsGuest{})
	assert.Equal(t, PhaseSetup, s.Phase)

	s = step(t, s, ShowLogin{})
	s = step(t, s, Authenticated{Token: "tok", User: backend.User{Username: "ana", ExamDate: "2025-09-01"}})
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.True(t, s.Account.SignedIn())
	assert.Equal(t, "2025-09-01", s.Prefs.ExamDate, "exam date prefilled from profile")

	s = step(t, s, LoggedOut{})
	assert.Equal(t, PhaseSetup, s.Phase)
	assert.False(t, s.Account.SignedIn())
}

func TestEpochAdvancesOnPhaseChange(t *testing.T) {
	s := Initial(prefs.Preferences{}, prefs.Account{}, streak.State{})
	e0 := s.Epoch
	s = step(t, s, StartDrill{Difficulty: backend.Beginner, ExamDate: "2025-06-01"})
	assert.Equal(t, e0+1, s.Epoch)
	s = step(t, s, DrillGenerated{Session: fiveQuestionSession()})
	e2 := s.Epoch
	s = step(t, s, SelectAnswer{QuestionID: 1, Option: "A"})
	assert.Equal(t, e2, s.Epoch, "same phase keeps epoch")
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "REDEMPTION", PhaseRedemption.String())
	assert.Equal(t, "UNKNOWN", Phase(42).String())
}
