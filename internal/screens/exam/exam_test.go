package exam

import (
	"context"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/session/sessiontest"
	"github.com/abhisek/drillsergeant/internal/ui/components"
)

func newExam(t *testing.T) (*Screen, *sessiontest.Fixture) {
	t.Helper()
	f, err := sessiontest.New(sessiontest.Configured())
	require.NoError(t, err)
	require.NoError(t, f.StartExam())
	d := screen.Drill{Ctx: context.Background(), Ctrl: f.Ctrl, Now: func() time.Time { return f.Now }}
	return New(d), f
}

// deliver runs cmd and feeds its message back to the screen.
func deliver(s *Screen, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	_, next := s.Update(cmd())
	return next
}

func TestNavigationIsBounded(t *testing.T) {
	s, _ := newExam(t)
	s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	assert.Equal(t, 0, s.index)

	for range 5 {
		s.Update(tea.KeyPressMsg{Code: tea.KeyRight})
	}
	assert.Equal(t, 2, s.index)
	assert.Contains(t, s.View(120, 34), "Question 3 of 3")
}

func TestAnswerAdvances(t *testing.T) {
	s, f := newExam(t)

	_, cmd := s.Update(tea.KeyPressMsg{Code: 'd', Text: "d"})
	require.IsType(t, components.OptionPickedMsg{}, cmd())
	deliver(s, deliver(s, cmd))

	assert.Equal(t, "D", f.Ctrl.State().Drill.ExamAnswers[1])
	assert.Equal(t, 1, s.index)

	// Going back shows the recorded answer.
	s.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	assert.Equal(t, "D", s.options.Chosen)
}

func TestPassageToggle(t *testing.T) {
	s, _ := newExam(t)
	assert.Contains(t, s.View(120, 34), "The moon pulls the sea.")

	s.Update(tea.KeyPressMsg{Code: tea.KeyTab})
	assert.NotContains(t, s.View(120, 34), "The moon pulls the sea.")
}

func TestSubmitAsksForConfirmation(t *testing.T) {
	s, f := newExam(t)

	_, cmd := s.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	deliver(s, cmd)
	assert.Equal(t, 3, s.confirm)
	assert.Equal(t, session.PhaseExam, f.Ctrl.State().Phase)

	s.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Equal(t, 0, s.confirm)
}
