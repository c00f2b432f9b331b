// Package home is the resting screen of a configured learner.
package home

import (
	"fmt"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/router"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/screens/settings"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/streak"
	"github.com/abhisek/drillsergeant/internal/ui/components"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// HomeScreen shows the streak and exam countdown and starts drills.
type HomeScreen struct {
	drill      screen.Drill
	menu       components.Menu
	difficulty backend.Difficulty
}

var _ screen.Screen = (*HomeScreen)(nil)

// New starts with the saved difficulty selected.
func New(d screen.Drill) *HomeScreen {
	h := &HomeScreen{drill: d, difficulty: d.State().Prefs.Difficulty}
	if !h.difficulty.Valid() {
		h.difficulty = backend.Intermediate
	}
	h.refresh()
	return h
}

// refresh rebuilds the menu for the current account, keeping the cursor.
func (h *HomeScreen) refresh() {
	selected := h.menu.Selected
	items := []components.MenuItem{
		{Label: "START DRILL", Action: h.start},
		{Label: "DIFFICULTY: " + strings.ToUpper(string(h.difficulty)), Action: h.cycleDifficulty},
		{Label: "SETTINGS", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: settings.New(h.drill)}
			}
		}},
	}
	if !h.drill.State().Account.SignedIn() {
		items = append(items,
			components.MenuItem{Label: "SIGN IN", Action: func() tea.Cmd { return h.drill.Dispatch(session.ShowLogin{}) }},
			components.MenuItem{Label: "ENLIST", Action: func() tea.Cmd { return h.drill.Dispatch(session.ShowRegister{}) }},
		)
	}
	items = append(items, components.MenuItem{Label: "QUIT", Action: func() tea.Cmd { return tea.Quit }})

	h.menu = components.NewMenu(items)
	if selected < len(items) {
		h.menu.Selected = selected
	}
}

func (h *HomeScreen) start() tea.Cmd {
	diff, date := h.difficulty, h.drill.State().Prefs.ExamDate
	return h.drill.Start(func() (*session.Pending, error) {
		return h.drill.Ctrl.StartDrill(h.drill.Ctx, diff, date)
	})
}

// cycleDifficulty changes the difficulty of the next drill only; saved
// preferences are left alone.
func (h *HomeScreen) cycleDifficulty() tea.Cmd {
	i := slices.Index(backend.Difficulties, h.difficulty)
	h.difficulty = backend.Difficulties[(i+1)%len(backend.Difficulties)]
	h.refresh()
	return nil
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(screen.StateMsg); ok {
		h.refresh()
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	s := h.drill.State()

	sections := []string{
		theme.Title.Width(cw).Render("BASE CAMP"),
		components.Card(h.stats(s), cw),
		h.menu.View(cw),
	}
	return components.Frame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) stats(s session.State) string {
	now := h.drill.Now()

	count := s.Streak.Count
	if !streak.Active(s.Streak, now) {
		count = 0
	}
	streakLine := theme.Label.Render(fmt.Sprintf("★ %d-day streak", count))
	switch {
	case count == 0:
		streakLine += theme.Hint.Render("  complete a drill to start one")
	case !s.Streak.LastDate.IsZero() && streak.Day(s.Streak.LastDate).Equal(streak.Day(now)):
		streakLine += theme.Hint.Render("  done for today")
	default:
		streakLine += theme.Hint.Render(fmt.Sprintf("  next milestone: %d", streak.NextMilestone(count)))
	}

	exam := "No exam date set"
	if days, ok := prefs.DaysUntil(s.Prefs.ExamDate, now); ok {
		switch {
		case days < 0:
			exam = fmt.Sprintf("Exam was on %s", s.Prefs.ExamDate)
		case days == 0:
			exam = "Exam day. Good luck, cadet."
		default:
			exam = fmt.Sprintf("%d days until the exam (%s)", days, s.Prefs.ExamDate)
		}
	}

	return strings.Join([]string{
		streakLine,
		lipgloss.NewStyle().Foreground(theme.Text).Render(exam),
	}, "\n")
}

func (h *HomeScreen) Title() string {
	return "Home"
}
