package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/router"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/screens/account"
	"github.com/abhisek/drillsergeant/internal/screens/exam"
	"github.com/abhisek/drillsergeant/internal/screens/home"
	"github.com/abhisek/drillsergeant/internal/screens/loading"
	"github.com/abhisek/drillsergeant/internal/screens/redemption"
	"github.com/abhisek/drillsergeant/internal/screens/setup"
	"github.com/abhisek/drillsergeant/internal/screens/summary"
	"github.com/abhisek/drillsergeant/internal/screens/welcome"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/streak"
	"github.com/abhisek/drillsergeant/internal/ui/layout"
)

// AppModel is the root Bubble Tea model. The bottom screen always matches
// the controller's phase; overlays such as settings are pushed above it.
type AppModel struct {
	drill  screen.Drill
	logger *slog.Logger
	router *router.Router

	// phase is the phase the bottom screen was built for.
	phase  session.Phase
	splash bool

	width  int
	height int
}

// Options configures the app.
type Options struct {
	Splash bool
	Logger *slog.Logger
	Now    func() time.Time
}

// New creates an AppModel driving ctrl.
func New(ctx context.Context, ctrl *session.Controller, opts Options) *AppModel {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &AppModel{
		drill:  screen.Drill{Ctx: ctx, Ctrl: ctrl, Now: opts.Now},
		logger: opts.Logger,
		phase:  ctrl.State().Phase,
		splash: opts.Splash,
	}
	if opts.Splash {
		m.router = router.New(welcome.New())
	} else {
		m.router = router.New(m.screenFor(m.phase))
	}
	return m
}

// screenFor builds the screen shown in phase p.
func (m *AppModel) screenFor(p session.Phase) screen.Screen {
	switch p {
	case session.PhaseLogin:
		return account.New(m.drill, account.ModeLogin)
	case session.PhaseRegister:
		return account.New(m.drill, account.ModeRegister)
	case session.PhaseSetup:
		return setup.New(m.drill)
	case session.PhaseGenerating:
		return loading.Generating()
	case session.PhaseExam:
		return exam.New(m.drill)
	case session.PhaseAnalyzing:
		return loading.Analyzing()
	case session.PhaseRedemption:
		return redemption.New(m.drill)
	case session.PhaseSummary:
		return summary.New(m.drill)
	default:
		return home.New(m.drill)
	}
}

// Init validates a persisted sign-in in the background.
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.drill.Await(m.drill.Ctrl.Restore()))
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if n := m.drill.State().Notice; n != nil && n.Kind == session.NoticeNetwork {
			switch msg.String() {
			case "enter", "esc", "space":
				return m, m.drill.Dispatch(session.DismissNotice{})
			}
			return m, nil
		}
		if msg.String() == "esc" && m.router.Depth() > 1 {
			if h, ok := m.router.Active().(screen.EscapeHandler); !ok || !h.HandlesEscape() {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}

	case welcome.DoneMsg:
		m.splash = false
		m.phase = m.drill.State().Phase
		return m, m.router.Reset(m.screenFor(m.phase))

	case router.PopScreenMsg:
		// The screen underneath may have missed state changes while covered.
		cmd := m.router.Update(msg)
		return m, tea.Batch(cmd, m.resume)

	case screen.StateMsg:
		m.logResult(msg)
		if cmd, changed := m.follow(); changed {
			return m, cmd
		}
	}

	return m, m.router.Update(msg)
}

func (m *AppModel) resume() tea.Msg {
	return screen.StateMsg{State: m.drill.State()}
}

// follow rebuilds the screen stack when the controller has moved to
// another phase.
func (m *AppModel) follow() (tea.Cmd, bool) {
	p := m.drill.State().Phase
	if m.splash || p == m.phase {
		return nil, false
	}
	m.logger.Debug("screen follows phase", "from", m.phase, "to", p)
	m.phase = p
	return m.router.Reset(m.screenFor(p)), true
}

func (m *AppModel) logResult(msg screen.StateMsg) {
	var verr *session.ValidationError
	switch {
	case msg.Err == nil,
		errors.As(msg.Err, &verr),
		errors.Is(msg.Err, session.ErrUnansweredQuestions):
	default:
		m.logger.Warn("drill action rejected", "phase", msg.State.Phase, "error", msg.Err)
	}
}

func (m *AppModel) status() layout.Status {
	s := m.drill.State()
	now := m.drill.Now()
	st := layout.Status{}
	if streak.Active(s.Streak, now) {
		st.Streak = s.Streak.Count
	}
	if u := s.Account.User; u != nil {
		st.Username = u.Username
	}
	st.DaysLeft, st.HasExam = prefs.DaysUntil(s.Prefs.ExamDate, now)
	return st
}

func (m *AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	if m.width == 0 || m.height == 0 {
		return v
	}
	v.SetContent(m.render())
	return v
}

// render draws the whole terminal.
func (m *AppModel) render() string {
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	if m.splash {
		return active.View(m.width, m.height)
	}

	header := layout.RenderHeader(active.Title(), m.status(), m.width)

	footerHints := []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)

	var notice string
	if n := m.drill.State().Notice; n != nil {
		if n.Kind == session.NoticeNetwork {
			notice = layout.RenderNotice(n.Message, m.width)
		} else {
			notice = lipgloss.PlaceHorizontal(m.width, lipgloss.Center, layout.RenderInlineNotice(n.Message))
		}
		contentHeight = max(contentHeight-lipgloss.Height(notice)-1, 0)
	}

	content := m.router.View(m.width, contentHeight)
	if notice != "" {
		content = notice + "\n" + content
	}

	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(ctx context.Context, ctrl *session.Controller, opts Options) error {
	p := tea.NewProgram(New(ctx, ctrl, opts))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	return nil
}
