package session

import (
	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/streak"
)

// Event is an input to Transition.
type Event interface {
	isEvent()
}

// Navigation between the account screens and the resting phase.
type (
	ShowLogin       struct{}
	ShowRegister    struct{}
	ContinueAsGuest struct{}
	DismissNotice   struct{}
)

// Authenticated is a successful sign-in or registration.
type Authenticated struct {
	Token string
	User  backend.User
}

// AuthFailed keeps the learner on the account screen with a notice.
type AuthFailed struct {
	Err error
}

// AccountRestored is the startup check of a persisted token. A nil User
// means the token was rejected and has been forgotten.
type AccountRestored struct {
	User *backend.User
}

// LoggedOut forgets the account. The phase does not change.
type LoggedOut struct{}

// ProfileUpdated carries the profile after an exam date change.
type ProfileUpdated struct {
	User backend.User
}

// ProfileUpdateFailed leaves the profile unchanged with a notice.
type ProfileUpdateFailed struct {
	Err error
}

// StartDrill asks for a new drill from HOME or SETUP.
type StartDrill struct {
	Difficulty backend.Difficulty
	ExamDate   string
}

type DrillGenerated struct {
	Session backend.Session
}

type DrillFailed struct {
	Err error
}

// SelectAnswer records or replaces an exam answer.
type SelectAnswer struct {
	QuestionID int
	Option     string
}

// Submit ends the exam. Confirmed must be set when questions are unanswered.
type Submit struct {
	Confirmed bool
}

type MistakesAnalyzed struct {
	Mistakes []backend.Mistake
}

type AnalysisFailed struct {
	Err error
}

// Redemption actions on the mistake under the cursor.
type (
	BeginRetry        struct{}
	RevealExplanation struct{}
	NextMistake       struct{}
)

type SelectRetry struct {
	Option string
}

// StreakRecorded applies the drill to the streak, once per drill.
type StreakRecorded struct {
	Streak streak.State
}

// CoachRequested marks the coach summary as in flight.
type CoachRequested struct{}

type CoachReceived struct {
	Message backend.CoachMessage
}

// CoachFailed falls back to FallbackCoach.
type CoachFailed struct {
	Err error
}

// FinishDrill resets to HOME or SETUP, keeping preferences.
type FinishDrill struct{}

// PreferencesChanged reflects persisted preferences into the state.
type PreferencesChanged struct {
	Prefs prefs.Preferences
}

func (ShowLogin) isEvent()           {}
func (ShowRegister) isEvent()        {}
func (ContinueAsGuest) isEvent()     {}
func (DismissNotice) isEvent()       {}
func (Authenticated) isEvent()       {}
func (AuthFailed) isEvent()          {}
func (AccountRestored) isEvent()     {}
func (LoggedOut) isEvent()           {}
func (ProfileUpdated) isEvent()      {}
func (ProfileUpdateFailed) isEvent() {}
func (StartDrill) isEvent()          {}
func (DrillGenerated) isEvent()      {}
func (DrillFailed) isEvent()         {}
func (SelectAnswer) isEvent()        {}
func (Submit) isEvent()              {}
func (MistakesAnalyzed) isEvent()    {}
func (AnalysisFailed) isEvent()      {}
func (BeginRetry) isEvent()          {}
func (SelectRetry) isEvent()         {}
func (RevealExplanation) isEvent()   {}
func (NextMistake) isEvent()         {}
func (StreakRecorded) isEvent()      {}
func (CoachRequested) isEvent()      {}
func (CoachReceived) isEvent()       {}
func (CoachFailed) isEvent()         {}
func (FinishDrill) isEvent()         {}
func (PreferencesChanged) isEvent()  {}
