package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	bannerAt     = 500 * time.Millisecond
	totalDur     = 1500 * time.Millisecond
)

var bugleFrames = []string{"♪", "♫"}

type tickMsg time.Time

// DoneMsg is sent once when the splash is dismissed.
type DoneMsg struct{}

// WelcomeScreen shows a splash until a key is pressed.
type WelcomeScreen struct {
	elapsed   time.Duration
	tickCount int
	done      bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

func New() *WelcomeScreen {
	return &WelcomeScreen{}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.done {
			return w, nil
		}
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		return w, w.dismiss()
	}
	return w, nil
}

// dismiss skips whatever is left of the animation.
func (w *WelcomeScreen) dismiss() tea.Cmd {
	if w.done {
		return nil
	}
	w.done = true
	return func() tea.Msg { return DoneMsg{} }
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	if w.elapsed >= bannerAt {
		bugle := lipgloss.NewStyle().Foreground(theme.Accent).
			Render(bugleFrames[w.tickCount%len(bugleFrames)])
		sections = append(sections, bugle+"  reveille  "+bugle, "")
	}

	sections = append(sections, RenderBanner(width))

	if w.elapsed >= totalDur {
		sections = append(sections, "",
			lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
				Render("Fall in, cadet. The passage will not read itself."),
			"",
			theme.Hint.Render("press any key to continue"),
		)
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
