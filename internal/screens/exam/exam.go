// Package exam is the silent answering phase: the passage, one question at
// a time, and submission.
package exam

import (
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/ui/components"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// Screen shows the passage and the question under the cursor.
type Screen struct {
	drill   screen.Drill
	index   int
	options components.OptionList

	hidePassage bool

	// picked is set while an answer is being recorded; the cursor moves on
	// once it lands.
	picked bool

	// confirm is the number of unanswered questions awaiting a y/n.
	confirm int
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
)

func New(d screen.Drill) *Screen {
	s := &Screen{drill: d}
	s.load()
	return s
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Exam" }

// HandlesEscape keeps esc from leaving the exam; it cancels a confirmation.
func (s *Screen) HandlesEscape() bool { return true }

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.confirm > 0 {
		return []layout.KeyHint{
			{Key: "Y", Description: "Submit anyway"},
			{Key: "N", Description: "Keep answering"},
		}
	}
	return []layout.KeyHint{
		{Key: "A-E", Description: "Answer"},
		{Key: "←→", Description: "Question"},
		{Key: "Tab", Description: "Passage"},
		{Key: "Ctrl+S", Description: "Submit"},
	}
}

func (s *Screen) questions() []backend.Question {
	if d := s.drill.State().Drill; d != nil {
		return d.Session.Questions
	}
	return nil
}

// load rebuilds the option list for the question under the cursor.
func (s *Screen) load() {
	d := s.drill.State().Drill
	if d == nil || len(d.Session.Questions) == 0 {
		return
	}
	s.index = min(max(s.index, 0), len(d.Session.Questions)-1)
	q := d.Session.Questions[s.index]
	s.options = components.NewOptionList(q.Options).WithChosen(d.ExamAnswers[q.ID])
}

func (s *Screen) move(delta int) {
	s.index += delta
	s.load()
}

func (s *Screen) submit(confirmed bool) tea.Cmd {
	s.confirm = 0
	return s.drill.Start(func() (*session.Pending, error) {
		return s.drill.Ctrl.Submit(s.drill.Ctx, confirmed)
	})
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case components.OptionPickedMsg:
		qs := s.questions()
		if s.index >= len(qs) {
			return s, nil
		}
		s.picked = true
		return s, s.drill.Dispatch(session.SelectAnswer{QuestionID: qs[s.index].ID, Option: msg.Key})

	case screen.StateMsg:
		var unanswered *session.UnansweredError
		if errors.As(msg.Err, &unanswered) {
			s.confirm = unanswered.Count
			return s, nil
		}
		advance := s.picked && msg.Err == nil && s.index < len(s.questions())-1
		s.picked = false
		if advance {
			s.move(1)
			return s, nil
		}
		s.load()
		return s, nil

	case tea.KeyMsg:
		if s.confirm > 0 {
			switch msg.String() {
			case "y", "Y":
				return s, s.submit(true)
			case "n", "N", "esc":
				s.confirm = 0
			}
			return s, nil
		}
		switch msg.String() {
		case "left", "p":
			s.move(-1)
			return s, nil
		case "right", "n":
			s.move(1)
			return s, nil
		case "tab":
			s.hidePassage = !s.hidePassage
			return s, nil
		case "ctrl+s":
			return s, s.submit(false)
		}
	}

	var cmd tea.Cmd
	s.options, cmd = s.options.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	d := s.drill.State().Drill
	if d == nil || len(d.Session.Questions) == 0 {
		return ""
	}
	rw := layout.ReadingColumn(width)
	q := d.Session.Questions[s.index]
	total := len(d.Session.Questions)
	answered := total - d.Unanswered()

	var sections []string
	if !s.hidePassage {
		sections = append(sections,
			theme.Label.Render(d.Session.Passage.Title),
			theme.Passage.Width(rw).Render(d.Session.Passage.Text),
			"",
		)
	}

	progress := components.NewProgressBar(
		fmt.Sprintf("Question %d of %d", s.index+1, total),
		float64(answered)/float64(total), false, rw,
	)
	sections = append(sections,
		progress.View()+theme.Hint.Render(fmt.Sprintf("  %d answered", answered)),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Width(rw).Render(q.Text),
		"",
		s.options.View(rw),
	)

	if s.confirm > 0 {
		sections = append(sections, theme.NoticeInline.Render(
			fmt.Sprintf("%d question(s) unanswered. They will count as wrong. Submit anyway? (y/n)", s.confirm)))
	}

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, lipgloss.NewStyle().Padding(1, 2).Render(content))
}
