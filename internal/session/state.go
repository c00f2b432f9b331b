// Package session drives one learner through the drill flow: sign-in,
// setup, generation, exam, mistake analysis, redemption, and summary.
//
// Transition is a pure function over immutable State values. Controller
// owns the current State, issues backend calls as Pending requests and
// persists the durable side effects of each transition.
package session

import (
	"maps"
	"slices"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/mastery"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/redemption"
	"github.com/abhisek/drillsergeant/internal/streak"
)

// Phase is the top-level position in the flow.
type Phase int

const (
	PhaseRegister   Phase = iota // Creating an account
	PhaseLogin                   // Signing in
	PhaseHome                    // Configured learner, ready to start
	PhaseSetup                   // First run: choose difficulty and exam date
	PhaseGenerating              // Waiting for a drill
	PhaseExam                    // Answering silently
	PhaseAnalyzing               // Waiting for mistake diagnoses
	PhaseRedemption              // Walking through mistakes
	PhaseSummary                 // Scores and coach message
)

func (p Phase) String() string {
	switch p {
	case PhaseRegister:
		return "REGISTER"
	case PhaseLogin:
		return "LOGIN"
	case PhaseHome:
		return "HOME"
	case PhaseSetup:
		return "SETUP"
	case PhaseGenerating:
		return "GENERATING"
	case PhaseExam:
		return "EXAM"
	case PhaseAnalyzing:
		return "ANALYZING"
	case PhaseRedemption:
		return "REDEMPTION"
	case PhaseSummary:
		return "SUMMARY"
	default:
		return "UNKNOWN"
	}
}

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	NoticeNetwork    NoticeKind = iota // Blocking; the phase was rolled back
	NoticeValidation                   // Inline; the phase did not change
)

// Notice is a message to show the learner until dismissed.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// FallbackCoach is shown when the coach summary cannot be fetched.
var FallbackCoach = backend.CoachMessage{
	Headline: "Session Complete",
	Body:     "Good work. Come back tomorrow.",
}

// State is an immutable snapshot of the flow. Values returned by
// Transition never share mutable data with their input.
type State struct {
	Phase Phase

	// Epoch increments on every phase change. Pending calls carry the epoch
	// that issued them.
	Epoch uint64

	Prefs   prefs.Preferences
	Account prefs.Account
	Streak  streak.State

	// Origin is HOME or SETUP, whichever started the current drill.
	Origin Phase

	// Drill is nil outside GENERATING..SUMMARY.
	Drill *Drill

	Notice *Notice
}

// Drill is the data of one drill, discarded on reset.
type Drill struct {
	Difficulty backend.Difficulty
	ExamDate   string

	// Session is zero while GENERATING.
	Session backend.Session

	ExamAnswers       map[int]string
	RedemptionAnswers map[int]string

	// Mistakes are the diagnosed wrong answers in traversal order.
	Mistakes []backend.Mistake

	// Cursor indexes Mistakes during REDEMPTION. It only moves forward.
	Cursor int

	// Retry is the redemption engine for Mistakes[Cursor].
	Retry redemption.Engine

	Result mastery.Result

	StreakApplied  bool
	CoachRequested bool
	Coach          *backend.CoachMessage
}

func (d *Drill) clone() *Drill {
	if d == nil {
		return nil
	}
	c := *d
	c.Session.Questions = slices.Clone(d.Session.Questions)
	c.ExamAnswers = maps.Clone(d.ExamAnswers)
	c.RedemptionAnswers = maps.Clone(d.RedemptionAnswers)
	c.Mistakes = slices.Clone(d.Mistakes)
	if d.Coach != nil {
		coach := *d.Coach
		c.Coach = &coach
	}
	return &c
}

// Unanswered counts questions with no exam answer.
func (d *Drill) Unanswered() int {
	n := 0
	for _, q := range d.Session.Questions {
		if _, ok := d.ExamAnswers[q.ID]; !ok {
			n++
		}
	}
	return n
}

// CurrentMistake returns the mistake under the cursor and its question.
func (d *Drill) CurrentMistake() (backend.Mistake, backend.Question, bool) {
	if d.Cursor < 0 || d.Cursor >= len(d.Mistakes) {
		return backend.Mistake{}, backend.Question{}, false
	}
	m := d.Mistakes[d.Cursor]
	q, ok := d.Session.Question(m.QuestionID)
	return m, q, ok
}

// Traps lists the distinct trap types in mistake order.
func (d *Drill) Traps() []string {
	out := make([]string, 0, len(d.Mistakes))
	seen := make(map[string]bool, len(d.Mistakes))
	for _, m := range d.Mistakes {
		t := m.Diagnosis.TrapType
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (d *Drill) mistakeIDs() []int {
	ids := make([]int, len(d.Mistakes))
	for i, m := range d.Mistakes {
		ids[i] = m.QuestionID
	}
	return ids
}

func (d *Drill) score() mastery.Result {
	return mastery.Calculate(d.Session.Keys(), d.ExamAnswers, d.RedemptionAnswers, d.mistakeIDs())
}

// Initial returns the starting state for the persisted preferences.
func Initial(p prefs.Preferences, acct prefs.Account, st streak.State) State {
	s := State{Prefs: p, Account: acct, Streak: st}
	s.Phase = s.restingPhase()
	s.Origin = s.Phase
	return s
}

// restingPhase is where the learner lands outside a drill.
func (s State) restingPhase() Phase {
	if s.Prefs.Configured {
		return PhaseHome
	}
	return PhaseSetup
}
