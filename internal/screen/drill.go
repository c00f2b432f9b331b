package screen

import (
	"context"
	"errors"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/drillsergeant/internal/session"
)

// StateMsg reports the controller state after an action. Err is the
// action's error, if any; stale results never produce a StateMsg.
type StateMsg struct {
	State session.State
	Err   error
}

// Drill gives screens access to the phase controller.
type Drill struct {
	Ctx  context.Context
	Ctrl *session.Controller
	Now  func() time.Time
}

// State returns the current controller snapshot.
func (d Drill) State() session.State {
	return d.Ctrl.State()
}

// Dispatch applies ev and reports the resulting state.
func (d Drill) Dispatch(ev session.Event) tea.Cmd {
	return func() tea.Msg {
		s, err := d.Ctrl.Dispatch(d.Ctx, ev)
		return StateMsg{State: s, Err: err}
	}
}

// Start runs a controller action that may issue a backend call. Both the
// immediate state and the awaited result are reported; they may arrive in
// either order.
func (d Drill) Start(issue func() (*session.Pending, error)) tea.Cmd {
	p, err := issue()
	msg := StateMsg{State: d.Ctrl.State(), Err: err}
	now := func() tea.Msg { return msg }
	if err != nil || p == nil {
		return now
	}
	return tea.Batch(now, d.Await(p))
}

// Await resolves a pending call.
func (d Drill) Await(p *session.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := d.Ctrl.Await(d.Ctx, p)
		if errors.Is(err, session.ErrStale) {
			return nil
		}
		return StateMsg{State: s, Err: err}
	}
}
