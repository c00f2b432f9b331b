// Package account is the sign-in and registration screen.
package account

import (
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

// Mode selects the form.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// Register form fields, in order.
const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldExamDate
)

// Screen collects credentials and signs in or registers.
type Screen struct {
	drill screen.Drill
	mode  Mode
	form  components.Form
	init  tea.Cmd
	busy  bool
	err   string
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
)

// New builds the form for mode.
func New(d screen.Drill, mode Mode) *Screen {
	s := &Screen{drill: d, mode: mode}
	if mode == ModeRegister {
		s.form, s.init = components.NewForm(
			components.NewTextInput("Username", "cadet", 64),
			components.NewTextInput("Email", "cadet@example.com", 254),
			components.NewPasswordInput("Password"),
			components.NewTextInput("Exam date (optional)", "YYYY-MM-DD", 32),
		)
	} else {
		s.form, s.init = components.NewForm(
			components.NewTextInput("Username", "cadet", 64),
			components.NewPasswordInput("Password"),
		)
	}
	return s
}

func (s *Screen) Init() tea.Cmd { return s.init }

func (s *Screen) Title() string {
	if s.mode == ModeRegister {
		return "Enlist"
	}
	return "Report for Duty"
}

func (s *Screen) HandlesEscape() bool { return true }

func (s *Screen) KeyHints() []layout.KeyHint {
	other := "Enlist"
	if s.mode == ModeRegister {
		other = "Sign in"
	}
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		{Key: "Ctrl+N", Description: other},
		{Key: "Esc", Description: "Continue as guest"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case screen.StateMsg:
		s.busy = false
		return s, nil

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		switch msg.String() {
		case "esc":
			return s, s.drill.Dispatch(session.ContinueAsGuest{})
		case "ctrl+n":
			if s.mode == ModeRegister {
				return s, s.drill.Dispatch(session.ShowLogin{})
			}
			return s, s.drill.Dispatch(session.ShowRegister{})
		case "enter":
			if !s.form.Last() {
				return s, s.form.Next()
			}
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.form, cmd = s.form.Update(msg)
	return s, cmd
}

func (s *Screen) submit() tea.Cmd {
	s.err = ""
	if s.mode == ModeLogin {
		user, pass := s.form.Value(0), s.form.Inputs[1].Value()
		if user == "" || pass == "" {
			s.err = "Username and password are required."
			return nil
		}
		s.busy = true
		return s.drill.Start(func() (*session.Pending, error) {
			return s.drill.Ctrl.Login(user, pass)
		})
	}

	req := backend.RegisterRequest{
		Username: s.form.Value(fieldUsername),
		Email:    s.form.Value(fieldEmail),
		Password: s.form.Inputs[fieldPassword].Value(),
		ExamDate: s.form.Value(fieldExamDate),
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		s.err = "Username, email and password are required."
		return nil
	}
	s.busy = true
	return s.drill.Start(func() (*session.Pending, error) {
		return s.drill.Ctrl.Register(req)
	})
}

func (s *Screen) View(width, height int) string {
	cw := components.ContentWidth(width)
	sections := []string{
		theme.Title.Width(cw).Render(strings.ToUpper(s.Title())),
		"",
		lipgloss.NewStyle().Width(cw).Render(s.form.View()),
	}
	switch {
	case s.busy:
		sections = append(sections, "", theme.Hint.Render("Checking your papers..."))
	case s.err != "":
		sections = append(sections, "", theme.NoticeInline.Render(s.err))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, components.Card(strings.Join(sections, "\n"), cw+4))
}
