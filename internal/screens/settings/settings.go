// Package settings is the overlay for changing the exam date and signing
// out.
package settings

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/router"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/ui/components"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// Screen edits the exam date.
type Screen struct {
	drill  screen.Drill
	date   components.TextInput
	saving bool
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

func New(d screen.Drill) *Screen {
	s := &Screen{
		drill: d,
		date:  components.NewTextInput("Exam date", "YYYY-MM-DD", 32),
	}
	s.date.SetValue(d.State().Prefs.ExamDate)
	return s
}

func (s *Screen) Init() tea.Cmd { return s.date.Focus() }

func (s *Screen) Title() string { return "Settings" }

func (s *Screen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "Enter", Description: "Save"}}
	if s.drill.State().Account.SignedIn() {
		hints = append(hints, layout.KeyHint{Key: "Ctrl+O", Description: "Sign out"})
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func pop() tea.Msg { return router.PopScreenMsg{} }

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.StateMsg:
		if !s.saving {
			return s, nil
		}
		s.saving = false
		if msg.Err != nil || msg.State.Notice != nil {
			return s, nil
		}
		return s, pop

	case tea.KeyMsg:
		if s.saving {
			return s, nil
		}
		switch msg.String() {
		case "enter":
			return s, s.save()
		case "ctrl+o":
			if !s.drill.State().Account.SignedIn() {
				return s, nil
			}
			return s, s.signOut
		}
	}

	var cmd tea.Cmd
	s.date, cmd = s.date.Update(msg)
	return s, cmd
}

func (s *Screen) signOut() tea.Msg {
	if _, err := s.drill.Ctrl.Dispatch(s.drill.Ctx, session.LoggedOut{}); err != nil {
		return screen.StateMsg{State: s.drill.State(), Err: err}
	}
	return router.PopScreenMsg{}
}

// save updates the exam date locally for guests, and on the account for
// signed-in learners.
func (s *Screen) save() tea.Cmd {
	p, err := s.drill.Ctrl.UpdateExamDate(s.drill.Ctx, strings.TrimSpace(s.date.Value()))
	if err != nil {
		return func() tea.Msg { return screen.StateMsg{State: s.drill.State(), Err: err} }
	}
	if p == nil {
		return pop
	}
	s.saving = true
	return s.drill.Await(p)
}

func (s *Screen) View(width, height int) string {
	cw := components.ContentWidth(width)
	st := s.drill.State()

	who := "Training as a guest. Your exam date is kept on this machine."
	if u := st.Account.User; u != nil {
		who = "Signed in as " + u.Username + " <" + u.Email + ">"
	}

	sections := []string{
		theme.Title.Width(cw).Render("SETTINGS"),
		theme.Subtitle.Width(cw).Render(who),
		"",
		s.date.View(),
	}
	if s.saving {
		sections = append(sections, "", theme.Hint.Render("Saving..."))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, components.Card(strings.Join(sections, "\n"), cw+4))
}
