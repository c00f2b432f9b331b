package app

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/router"
	"github.com/abhisek/drillsergeant/internal/screen"
	"github.com/abhisek/drillsergeant/internal/screens/account"
	"github.com/abhisek/drillsergeant/internal/screens/exam"
	"github.com/abhisek/drillsergeant/internal/screens/home"
	"github.com/abhisek/drillsergeant/internal/screens/redemption"
	"github.com/abhisek/drillsergeant/internal/screens/settings"
	"github.com/abhisek/drillsergeant/internal/screens/setup"
	"github.com/abhisek/drillsergeant/internal/screens/summary"
	"github.com/abhisek/drillsergeant/internal/screens/welcome"
	"github.com/abhisek/drillsergeant/internal/session"
	"github.com/abhisek/drillsergeant/internal/session/sessiontest"
	"github.com/abhisek/drillsergeant/internal/ui/components"
)

// driver feeds messages through the model the way the Bubble Tea runtime
// would, executing commands inline. Commands that block, such as ticks and
// cursor blinks, are abandoned.
type driver struct {
	t *testing.T
	m *AppModel
	f *sessiontest.Fixture
}

func newDriver(t *testing.T, seed map[string]string, splash bool) *driver {
	t.Helper()
	f, err := sessiontest.New(seed)
	require.NoError(t, err)
	m := New(context.Background(), f.Ctrl, Options{Splash: splash, Now: func() time.Time { return f.Now }})
	d := &driver{t: t, m: m, f: f}
	d.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	d.run(m.Init())
	return d
}

func exec(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func (d *driver) send(msg tea.Msg) {
	_, cmd := d.m.Update(msg)
	d.run(cmd)
}

func (d *driver) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := exec(cmd).(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			d.run(c)
		}
	case screen.StateMsg, router.PushScreenMsg, router.PopScreenMsg,
		components.OptionPickedMsg, welcome.DoneMsg:
		d.send(msg)
	}
}

func (d *driver) press(keys ...string) {
	for _, k := range keys {
		d.send(keyPress(k))
	}
}

func (d *driver) typeText(s string) {
	for _, r := range s {
		d.send(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
}

func keyPress(k string) tea.KeyPressMsg {
	switch k {
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}
	}
	r := []rune(k)[0]
	return tea.KeyPressMsg{Code: r, Text: k}
}

func (d *driver) phase() session.Phase {
	return d.f.Ctrl.State().Phase
}

func (d *driver) view() string {
	return d.m.render()
}

func TestStartsOnPhaseScreen(t *testing.T) {
	d := newDriver(t, nil, false)
	assert.IsType(t, &setup.Screen{}, d.m.router.Active())

	d = newDriver(t, sessiontest.Configured(), false)
	assert.IsType(t, &home.HomeScreen{}, d.m.router.Active())
}

func TestSplashGivesWayToPhaseScreen(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), true)
	assert.IsType(t, &welcome.WelcomeScreen{}, d.m.router.Active())

	d.press("x")
	assert.IsType(t, &home.HomeScreen{}, d.m.router.Active())
}

func TestFullDrill(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)

	d.press("enter")
	require.Equal(t, session.PhaseExam, d.phase())
	require.IsType(t, &exam.Screen{}, d.m.router.Active())
	assert.Contains(t, d.view(), "The moon pulls the sea.")

	// Answers advance the cursor: A is right, A is wrong, C is right.
	d.press("a", "a", "c")
	s := d.f.Ctrl.State()
	assert.Equal(t, map[int]string{1: "A", 2: "A", 3: "C"}, s.Drill.ExamAnswers)

	d.press("ctrl+s")
	require.Equal(t, session.PhaseRedemption, d.phase())
	require.IsType(t, &redemption.Screen{}, d.m.router.Active())
	assert.Contains(t, d.view(), "Scope Shift")

	// The original answer is blocked.
	d.press("enter", "a")
	assert.Equal(t, "", d.f.Ctrl.State().Drill.Retry.Answer())

	d.press("b", "enter")
	require.Equal(t, session.PhaseSummary, d.phase())
	require.IsType(t, &summary.SummaryScreen{}, d.m.router.Active())

	s = d.f.Ctrl.State()
	assert.Equal(t, "2/3", s.Drill.Result.Original.String())
	assert.Equal(t, "3/3", s.Drill.Result.Final.String())
	require.NotNil(t, s.Drill.Coach)
	assert.Equal(t, "Solid work", s.Drill.Coach.Headline)
	assert.Equal(t, 1, s.Streak.Count)
	assert.Contains(t, d.view(), "Solid work")

	d.press("enter")
	assert.Equal(t, session.PhaseHome, d.phase())
	assert.IsType(t, &home.HomeScreen{}, d.m.router.Active())
	assert.Nil(t, d.f.Ctrl.State().Drill)
}

func TestSubmitWithUnansweredNeedsConfirmation(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)
	d.press("enter")
	require.Equal(t, session.PhaseExam, d.phase())

	d.press("ctrl+s")
	assert.Equal(t, session.PhaseExam, d.phase())
	assert.Contains(t, d.view(), "3 question(s) unanswered")

	d.press("n")
	assert.NotContains(t, d.view(), "unanswered. They will count")

	d.press("ctrl+s", "y")
	require.Equal(t, session.PhaseSummary, d.phase())
	assert.Equal(t, "0/3", d.f.Ctrl.State().Drill.Result.Final.String())
}

func TestNetworkNoticeBlocksUntilDismissed(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)
	d.f.Backend.Fail = sessiontest.NetworkError("generate-session")

	d.press("enter")
	assert.Equal(t, session.PhaseHome, d.phase())
	assert.Contains(t, d.view(), "upstream unavailable")

	before := d.view()
	d.press("down")
	assert.Equal(t, before, d.view(), "keys other than dismiss are swallowed")

	d.press("enter")
	assert.Nil(t, d.f.Ctrl.State().Notice)
	assert.NotContains(t, d.view(), "upstream unavailable")
}

func TestSettingsOverlayPopsOnEscape(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)

	d.press("down", "down", "enter")
	require.Equal(t, 2, d.m.router.Depth())
	require.IsType(t, &settings.Screen{}, d.m.router.Active())

	d.press("esc")
	assert.Equal(t, 1, d.m.router.Depth())
	assert.IsType(t, &home.HomeScreen{}, d.m.router.Active())
}

func TestSignInFromHome(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)

	// START, DIFFICULTY, SETTINGS, SIGN IN
	d.press("down", "down", "down", "enter")
	require.Equal(t, session.PhaseLogin, d.phase())
	require.IsType(t, &account.Screen{}, d.m.router.Active())

	d.typeText("cadet")
	d.press("tab")
	d.typeText(sessiontest.Password)
	d.press("enter")

	require.Equal(t, session.PhaseHome, d.phase())
	s := d.f.Ctrl.State()
	require.NotNil(t, s.Account.User)
	assert.Equal(t, "cadet", s.Account.User.Username)
	assert.True(t, strings.Contains(d.view(), "cadet"), "header shows the username")

	tok, ok, err := d.f.Store.Get(context.Background(), prefs.KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", tok)
}

func TestLoginEscapeContinuesAsGuest(t *testing.T) {
	d := newDriver(t, nil, false)
	d.send(tea.KeyPressMsg{Code: 'l', Mod: tea.ModCtrl})
	require.Equal(t, session.PhaseLogin, d.phase())

	d.press("esc")
	assert.Equal(t, session.PhaseSetup, d.phase())
	assert.IsType(t, &setup.Screen{}, d.m.router.Active())
}

func TestTooSmallTerminal(t *testing.T) {
	d := newDriver(t, sessiontest.Configured(), false)
	d.send(tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, d.view(), "Terminal too small")
}
