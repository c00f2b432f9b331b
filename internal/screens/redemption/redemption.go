// Package redemption walks the learner through each mistake: hint, one
// retry, then the full explanation if the retry missed.
package redemption

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/redemption"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/ui/components"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// Screen shows the mistake under the cursor.
type Screen struct {
	drill    screen.Drill
	question int // id the option list was built for
	options  components.OptionList
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
)

func New(d screen.Drill) *Screen {
	s := &Screen{drill: d}
	s.sync()
	return s
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Redemption" }

func (s *Screen) HandlesEscape() bool { return true }

func (s *Screen) stage() redemption.Stage {
	if d := s.drill.State().Drill; d != nil {
		return d.Retry.Stage()
	}
	return redemption.StageViewHint
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.stage() {
	case redemption.StageViewHint:
		return []layout.KeyHint{{Key: "Enter", Description: "Retry"}}
	case redemption.StageRetrying:
		return []layout.KeyHint{{Key: "A-E", Description: "Answer"}, {Key: "↑↓", Description: "Move"}}
	case redemption.StageFeedbackWrong:
		return []layout.KeyHint{{Key: "Enter", Description: "Show explanation"}}
	default:
		return []layout.KeyHint{{Key: "Enter", Description: "Next mistake"}}
	}
}

// sync rebuilds the option list when the cursor reaches a new mistake and
// mirrors the engine otherwise.
func (s *Screen) sync() {
	d := s.drill.State().Drill
	if d == nil {
		return
	}
	_, q, ok := d.CurrentMistake()
	if !ok {
		return
	}
	if q.ID != s.question {
		s.question = q.ID
		s.options = components.NewOptionList(q.Options).WithBlocked(d.Retry.Disabled())
	}
	s.options.Locked = d.Retry.Stage() != redemption.StageRetrying
	s.options.Chosen = d.Retry.Answer()
	if d.Retry.Stage() == redemption.StageRevealed || d.Retry.Stage() == redemption.StageFeedbackCorrect {
		s.options.Reveal = d.Retry.Correct()
	} else {
		s.options.Reveal = ""
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.StateMsg:
		s.sync()
		return s, nil

	case components.OptionPickedMsg:
		return s, s.drill.Dispatch(session.SelectRetry{Option: msg.Key})

	case tea.KeyMsg:
		if msg.String() == "enter" {
			switch s.stage() {
			case redemption.StageViewHint:
				return s, s.drill.Dispatch(session.BeginRetry{})
			case redemption.StageFeedbackWrong:
				return s, s.drill.Dispatch(session.RevealExplanation{})
			case redemption.StageFeedbackCorrect, redemption.StageRevealed:
				return s, s.drill.Dispatch(session.NextMistake{})
			}
		}
	}

	var cmd tea.Cmd
	s.options, cmd = s.options.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	d := s.drill.State().Drill
	if d == nil {
		return ""
	}
	m, q, ok := d.CurrentMistake()
	if !ok {
		return ""
	}
	rw := layout.ReadingColumn(width)

	sections := []string{
		theme.Hint.Render(fmt.Sprintf("Mistake %d of %d", d.Cursor+1, len(d.Mistakes))),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Width(rw).Render(q.Text),
		"",
		s.options.View(rw),
		s.feedback(d.Retry, m, q, rw),
	}

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, lipgloss.NewStyle().Padding(1, 2).Render(content))
}

func (s *Screen) feedback(e redemption.Engine, m backend.Mistake, q backend.Question, rw int) string {
	wrap := lipgloss.NewStyle().Width(rw)
	trap := theme.Label.Render("Trap: ") + theme.Body.Render(m.Diagnosis.TrapType)
	hint := theme.Label.Render("Hint: ") + theme.Body.Render(m.Diagnosis.HintForRetry)
	original := "You left this one blank."
	if e.Disabled() != "" {
		original = fmt.Sprintf("You answered %s. That option is off the table.", e.Disabled())
	}

	switch e.Stage() {
	case redemption.StageViewHint, redemption.StageRetrying:
		return wrap.Render(strings.Join([]string{trap, hint, theme.Hint.Render(original)}, "\n"))
	case redemption.StageFeedbackCorrect:
		return theme.Correct.Render("Redeemed. That is the discipline we want.")
	case redemption.StageFeedbackWrong:
		return theme.Incorrect.Render("Negative. Press enter for the full explanation.")
	default:
		return wrap.Render(strings.Join([]string{
			theme.Label.Render(fmt.Sprintf("Correct answer: %s) %s", e.Correct(), q.Options[e.Correct()])),
			theme.Body.Render(m.Diagnosis.FullExplanation),
		}, "\n"))
	}
}
