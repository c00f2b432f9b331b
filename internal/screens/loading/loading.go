// Package loading is shown while a drill is generated or analyzed.
package loading

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// Screen animates a spinner under a message.
type Screen struct {
	title   string
	message string
	spinner spinner.Model
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.EscapeHandler   = (*Screen)(nil)
)

func New(title, message string) *Screen {
	return &Screen{
		title:   title,
		message: message,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)),
		),
	}
}

// Generating is shown while the drill is written.
func Generating() *Screen {
	return New("Generating", "The sergeant is writing today's passage...")
}

// Analyzing is shown while mistakes are diagnosed.
func Analyzing() *Screen {
	return New("Analyzing", "Reviewing your answers. Stand by...")
}

func (s *Screen) Init() tea.Cmd { return s.spinner.Tick }

func (s *Screen) Title() string { return s.title }

// HandlesEscape swallows esc: a call in flight cannot be abandoned.
func (s *Screen) HandlesEscape() bool { return true }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		s.spinner.View()+"  "+theme.Body.Render(s.message))
}
