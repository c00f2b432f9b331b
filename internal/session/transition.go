package session

import (
	"errors"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/redemption"
)

// Transition computes the state after ev. It returns ErrInvalidTransition
// (with s unchanged) for events the phase does not accept, and a
// *ValidationError (with a validation notice set) for rejected input.
func Transition(s State, ev Event) (State, error) {
	switch ev := ev.(type) {
	case DismissNotice:
		s.Notice = nil
		return s, nil

	case ShowLogin:
		switch s.Phase {
		case PhaseHome, PhaseSetup, PhaseRegister:
			s.Notice = nil
			return s.enter(PhaseLogin), nil
		}

	case ShowRegister:
		switch s.Phase {
		case PhaseHome, PhaseSetup, PhaseLogin:
			s.Notice = nil
			return s.enter(PhaseRegister), nil
		}

	case ContinueAsGuest:
		if s.onAccountScreen() {
			s.Notice = nil
			return s.enter(s.restingPhase()), nil
		}

	case Authenticated:
		if s.onAccountScreen() {
			u := ev.User
			s.Account = prefs.Account{Token: ev.Token, User: &u}
			if !s.Prefs.Configured && s.Prefs.ExamDate == "" && u.ExamDate != "" {
				s.Prefs.ExamDate = u.ExamDate
			}
			s.Notice = nil
			return s.enter(s.restingPhase()), nil
		}

	case AuthFailed:
		if s.onAccountScreen() {
			s.Notice = networkNotice(ev.Err)
			return s, nil
		}

	case AccountRestored:
		if ev.User == nil {
			s.Account = prefs.Account{}
			return s, nil
		}
		if s.Account.SignedIn() {
			u := *ev.User
			s.Account.User = &u
			return s, nil
		}

	case LoggedOut:
		s.Account = prefs.Account{}
		return s, nil

	case ProfileUpdated:
		if s.Account.SignedIn() {
			u := ev.User
			s.Account.User = &u
			if u.ExamDate != "" {
				s.Prefs.ExamDate = u.ExamDate
			}
			s.Notice = nil
			return s, nil
		}

	case ProfileUpdateFailed:
		s.Notice = networkNotice(ev.Err)
		return s, nil

	case PreferencesChanged:
		s.Prefs = ev.Prefs
		return s, nil

	case StartDrill:
		if s.Phase == PhaseHome || s.Phase == PhaseSetup {
			return startDrill(s, ev)
		}

	case DrillGenerated:
		if s.Phase == PhaseGenerating {
			if len(ev.Session.Questions) == 0 {
				return rollBack(s, errors.New("the generated drill has no questions"))
			}
			d := s.Drill.clone()
			d.Session = ev.Session
			d.Session.Questions = append([]backend.Question(nil), ev.Session.Questions...)
			d.ExamAnswers = make(map[int]string)
			d.RedemptionAnswers = make(map[int]string)
			if !s.Prefs.Configured {
				s.Prefs = prefs.Preferences{Configured: true, Difficulty: d.Difficulty, ExamDate: d.ExamDate}
			}
			s.Drill = d
			return s.enter(PhaseExam), nil
		}

	case DrillFailed:
		if s.Phase == PhaseGenerating {
			return rollBack(s, ev.Err)
		}

	case SelectAnswer:
		if s.Phase == PhaseExam {
			q, ok := s.Drill.Session.Question(ev.QuestionID)
			if !ok {
				return rejected(s, "question", "unknown question")
			}
			if _, ok := q.Options[ev.Option]; !ok {
				return rejected(s, "option", "unknown option "+ev.Option)
			}
			d := s.Drill.clone()
			d.ExamAnswers[ev.QuestionID] = ev.Option
			s.Drill = d
			s.Notice = nil
			return s, nil
		}

	case Submit:
		if s.Phase == PhaseExam {
			if n := s.Drill.Unanswered(); n > 0 && !ev.Confirmed {
				return s, &UnansweredError{Count: n}
			}
			s.Notice = nil
			return s.enter(PhaseAnalyzing), nil
		}

	case MistakesAnalyzed:
		if s.Phase == PhaseAnalyzing {
			d := s.Drill.clone()
			d.Mistakes = FilterMistakes(d, ev.Mistakes)
			d.Cursor = 0
			d.Result = d.score()
			s.Drill = d
			if len(d.Mistakes) == 0 {
				return s.enter(PhaseSummary), nil
			}
			d.Retry = newEngine(d, 0)
			return s.enter(PhaseRedemption), nil
		}

	case AnalysisFailed:
		if s.Phase == PhaseAnalyzing {
			s.Notice = networkNotice(ev.Err)
			return s.enter(PhaseExam), nil
		}

	case BeginRetry:
		if s.Phase == PhaseRedemption {
			return s.retry(ev, func(e redemption.Engine) (redemption.Engine, error) { return e.BeginRetry() })
		}

	case SelectRetry:
		if s.Phase == PhaseRedemption {
			return s.retry(ev, func(e redemption.Engine) (redemption.Engine, error) { return e.Select(ev.Option) })
		}

	case RevealExplanation:
		if s.Phase == PhaseRedemption {
			return s.retry(ev, func(e redemption.Engine) (redemption.Engine, error) { return e.Reveal() })
		}

	case NextMistake:
		if s.Phase == PhaseRedemption && s.Drill.Retry.Resolved() {
			d := s.Drill.clone()
			d.Cursor++
			s.Drill = d
			s.Notice = nil
			if d.Cursor >= len(d.Mistakes) {
				d.Result = d.score()
				return s.enter(PhaseSummary), nil
			}
			d.Retry = newEngine(d, d.Cursor)
			return s, nil
		}

	case StreakRecorded:
		if s.Phase == PhaseSummary && !s.Drill.StreakApplied {
			d := s.Drill.clone()
			d.StreakApplied = true
			s.Drill = d
			s.Streak = ev.Streak
			return s, nil
		}

	case CoachRequested:
		if s.Phase == PhaseSummary && !s.Drill.CoachRequested && s.Drill.Coach == nil {
			d := s.Drill.clone()
			d.CoachRequested = true
			s.Drill = d
			return s, nil
		}

	case CoachReceived:
		if s.Phase == PhaseSummary && s.Drill.Coach == nil {
			msg := ev.Message
			if msg.Headline == "" && msg.Body == "" {
				msg = FallbackCoach
			}
			d := s.Drill.clone()
			d.Coach = &msg
			s.Drill = d
			return s, nil
		}

	case CoachFailed:
		if s.Phase == PhaseSummary && s.Drill.Coach == nil {
			msg := FallbackCoach
			d := s.Drill.clone()
			d.Coach = &msg
			s.Drill = d
			return s, nil
		}

	case FinishDrill:
		if s.Phase == PhaseSummary {
			s.Drill = nil
			s.Notice = nil
			return s.enter(s.restingPhase()), nil
		}
	}

	return s, invalid(s.Phase, ev)
}

func (s State) enter(p Phase) State {
	s.Phase = p
	s.Epoch++
	return s
}

func (s State) onAccountScreen() bool {
	return s.Phase == PhaseLogin || s.Phase == PhaseRegister
}

func startDrill(s State, ev StartDrill) (State, error) {
	if !ev.Difficulty.Valid() {
		return rejected(s, "difficulty", "choose Beginner, Intermediate or Advanced")
	}
	if ev.ExamDate == "" {
		return rejected(s, "exam_date", "an exam date is required")
	}
	date, err := backend.NormalizeDate(ev.ExamDate)
	if err != nil {
		return rejected(s, "exam_date", "use the YYYY-MM-DD format")
	}

	origin := s.Phase
	s.Notice = nil
	s.Drill = &Drill{Difficulty: ev.Difficulty, ExamDate: date}
	s = s.enter(PhaseGenerating)
	s.Origin = origin
	return s, nil
}

// rollBack abandons generation and returns to the phase that started it.
func rollBack(s State, err error) (State, error) {
	s.Drill = nil
	s.Notice = networkNotice(err)
	return s.enter(s.Origin), nil
}

func rejected(s State, field, msg string) (State, error) {
	s.Notice = &Notice{Kind: NoticeValidation, Message: msg}
	return s, &ValidationError{Field: field, Message: msg}
}

func networkNotice(err error) *Notice {
	msg := "Something went wrong. Please try again."
	if err != nil {
		msg = backend.UserMessage(err)
	}
	return &Notice{Kind: NoticeNetwork, Message: msg}
}

func (s State) retry(ev Event, step func(redemption.Engine) (redemption.Engine, error)) (State, error) {
	e, err := step(s.Drill.Retry)
	switch {
	case errors.Is(err, redemption.ErrOptionDisabled):
		return rejected(s, "option", "that was your original answer, pick another option")
	case errors.Is(err, redemption.ErrUnknownOption):
		return rejected(s, "option", "unknown option")
	case err != nil:
		return s, invalid(s.Phase, ev)
	}

	d := s.Drill.clone()
	d.Retry = e
	if a := e.Answer(); a != "" {
		d.RedemptionAnswers[e.QuestionID()] = a
	}
	s.Drill = d
	s.Notice = nil
	return s, nil
}

func newEngine(d *Drill, i int) redemption.Engine {
	m := d.Mistakes[i]
	q, _ := d.Session.Question(m.QuestionID)
	return redemption.New(q.ID, q.OptionKeys(), q.CorrectOption, d.ExamAnswers[q.ID])
}

// FilterMistakes keeps the diagnoses that can be redeemed: known questions
// answered incorrectly in the exam, first occurrence only, in input order.
func FilterMistakes(d *Drill, in []backend.Mistake) []backend.Mistake {
	keys := d.Session.Keys()
	seen := make(map[int]bool, len(in))
	out := make([]backend.Mistake, 0, len(in))
	for _, m := range in {
		correct, ok := keys[m.QuestionID]
		if !ok || seen[m.QuestionID] {
			continue
		}
		if d.ExamAnswers[m.QuestionID] == correct {
			continue
		}
		seen[m.QuestionID] = true
		out = append(out, m)
	}
	return out
}
