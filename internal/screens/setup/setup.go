// Package setup is the first-run screen: choose a difficulty and an exam
// date, then start the first drill.
package setup

import (
	"fmt"
	"slices"
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

// Screen picks the drill settings.
type Screen struct {
	drill      screen.Drill
	difficulty int // index into backend.Difficulties
	onDate     bool
	date       components.TextInput
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
)

// New prefills the form from the saved preferences.
func New(d screen.Drill) *Screen {
	p := d.State().Prefs
	s := &Screen{
		drill:      d,
		difficulty: max(slices.Index(backend.Difficulties, p.Difficulty), 0),
		date:       components.NewTextInput("Exam date", "YYYY-MM-DD", 32),
	}
	if p.Difficulty == "" {
		s.difficulty = slices.Index(backend.Difficulties, backend.Intermediate)
	}
	s.date.SetValue(p.ExamDate)
	return s
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Setup" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Tab", Description: "Switch field"},
		{Key: "←→", Description: "Difficulty"},
		{Key: "Enter", Description: "Start drill"},
		{Key: "Ctrl+L", Description: "Sign in"},
		{Key: "Ctrl+N", Description: "Enlist"},
	}
}

// Difficulty returns the selected difficulty.
func (s *Screen) Difficulty() backend.Difficulty {
	return backend.Difficulties[s.difficulty]
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if s.onDate {
			var cmd tea.Cmd
			s.date, cmd = s.date.Update(msg)
			return s, cmd
		}
		return s, nil
	}

	switch kmsg.String() {
	case "enter":
		diff, date := s.Difficulty(), strings.TrimSpace(s.date.Value())
		return s, s.drill.Start(func() (*session.Pending, error) {
			return s.drill.Ctrl.StartDrill(s.drill.Ctx, diff, date)
		})
	case "ctrl+l":
		return s, s.drill.Dispatch(session.ShowLogin{})
	case "ctrl+n":
		return s, s.drill.Dispatch(session.ShowRegister{})
	case "tab", "shift+tab", "up", "down":
		s.onDate = !s.onDate
		if s.onDate {
			return s, s.date.Focus()
		}
		s.date.Blur()
		return s, nil
	}

	if !s.onDate {
		switch kmsg.String() {
		case "left", "h":
			s.difficulty = (s.difficulty + len(backend.Difficulties) - 1) % len(backend.Difficulties)
		case "right", "l":
			s.difficulty = (s.difficulty + 1) % len(backend.Difficulties)
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.date, cmd = s.date.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	cw := components.ContentWidth(width)

	label := lipgloss.NewStyle().Foreground(theme.TextDim)
	if !s.onDate {
		label = theme.Label
	}
	picker := label.Render("Difficulty") + "\n" +
		theme.Selected.Render(fmt.Sprintf("◂ %s ▸", s.Difficulty()))

	body := strings.Join([]string{
		theme.Title.Width(cw).Render("NEW RECRUIT"),
		theme.Subtitle.Width(cw).Render("Pick your difficulty and the day of your exam."),
		"",
		picker,
		"",
		s.date.View(),
	}, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, components.Card(body, cw+4))
}
