package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/streak"
	"github.com/abhisek/drillsergeant/internal/ui/components"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
	"github.com/abhisek/drillsergeant/internal/ui/theme"
)

// SummaryScreen displays the scores of the finished drill and the coach's
// verdict.
type SummaryScreen struct {
	drill  screen.Drill
	finish components.Button
}

var (
	_ screen.Screen          = (*SummaryScreen)(nil)
	_ screen.KeyHintProvider = (*SummaryScreen)(nil)
	_ screen.EscapeHandler   = (*SummaryScreen)(nil)
)

func New(d screen.Drill) *SummaryScreen {
	s := &SummaryScreen{drill: d}
	s.finish = components.NewButton("Back to base", true, func() tea.Cmd {
		return d.Dispatch(session.FinishDrill{})
	})
	return s
}

// Init requests the coach message unless this drill already has one.
func (s *SummaryScreen) Init() tea.Cmd {
	d := s.drill.State().Drill
	if d == nil || d.CoachRequested || d.Coach != nil {
		return nil
	}
	return s.drill.Start(func() (*session.Pending, error) {
		return s.drill.Ctrl.FetchCoach(s.drill.Ctx)
	})
}

func (s *SummaryScreen) Title() string {
	return "Debrief"
}

func (s *SummaryScreen) HandlesEscape() bool { return true }

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Back to base"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	s.finish, cmd = s.finish.Update(msg)
	return s, cmd
}

func (s *SummaryScreen) View(width, height int) string {
	st := s.drill.State()
	d := st.Drill
	if d == nil {
		return ""
	}
	rw := min(layout.ReadingColumn(width), 64)
	r := d.Result

	var b strings.Builder
	b.WriteString(theme.Title.Width(rw).Render("DRILL COMPLETE"))
	b.WriteString("\n\n")

	b.WriteString(components.NewProgressBar(fmt.Sprintf("Original %-5s", r.Original), percent(r.Original.Percent()), true, rw).View())
	b.WriteString("\n")
	final := components.NewProgressBar(fmt.Sprintf("Mastery  %-5s", r.Final), percent(r.Final.Percent()), true, rw)
	final.Color = lipgloss.NewStyle().Background(theme.Success)
	b.WriteString(final.View())
	b.WriteString("\n\n")

	if n := r.Improvement(); n > 0 {
		b.WriteString(theme.Correct.Render(fmt.Sprintf("+%d recovered in redemption", n)))
	} else {
		b.WriteString(theme.Hint.Render("No questions recovered in redemption"))
	}
	b.WriteString("\n")

	b.WriteString(theme.Label.Render(fmt.Sprintf("★ %d-day streak", st.Streak.Count)))
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  next milestone: %d", streak.NextMilestone(st.Streak.Count))))
	b.WriteString("\n\n")

	traps := d.Traps()
	b.WriteString(theme.Label.Render("Traps identified"))
	b.WriteString("\n")
	if len(traps) == 0 {
		b.WriteString(theme.Hint.Render("none"))
	} else {
		for _, t := range traps {
			b.WriteString(theme.Body.Render("• " + t))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	if d.Coach == nil {
		b.WriteString(theme.Hint.Render("The sergeant is writing your debrief..."))
	} else {
		b.WriteString(components.Card(
			theme.Label.Render(d.Coach.Headline)+"\n\n"+
				lipgloss.NewStyle().Foreground(theme.Text).Width(rw-8).Render(d.Coach.Body),
			rw,
		))
	}
	b.WriteString("\n\n")
	b.WriteString(s.finish.View())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func percent(p int) float64 {
	return float64(p) / 100
}
