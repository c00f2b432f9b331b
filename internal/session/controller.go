package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/streak"
)

// Options configures a Controller.
type Options struct {
	Backend backend.Port
	Prefs   *prefs.Prefs

	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Controller owns the current State. It is safe for concurrent use: a UI
// goroutine may resolve a Pending call while another reads State.
type Controller struct {
	backend backend.Port
	prefs   *prefs.Prefs
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// Pending is a backend round trip issued by the controller. Resolve it with
// Await; the result applies only if the state has not moved on.
type Pending struct {
	Op    string
	epoch uint64

	// unbound calls concern the account, not the drill. They apply in any
	// phase but only to the account they were issued for.
	unbound bool
	token   string
	call    func(ctx context.Context) Event
}

// NewController loads persisted preferences, streak and account and starts
// in HOME or SETUP.
func NewController(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Backend == nil || opts.Prefs == nil {
		return nil, errors.New("session: backend and prefs are required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	p, err := opts.Prefs.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	st, err := opts.Prefs.Streak(ctx)
	if err != nil {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	acct, err := opts.Prefs.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	return &Controller{
		backend: opts.Backend,
		prefs:   opts.Prefs,
		now:     opts.Now,
		logger:  opts.Logger,
		state:   Initial(p, acct, st),
	}, nil
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch applies a synchronous event such as an answer selection or a
// redemption step.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ctx, ev)
}

// apply runs Transition and its side effects. Callers hold c.mu.
func (c *Controller) apply(ctx context.Context, ev Event) (State, error) {
	prev := c.state
	next, err := Transition(prev, ev)
	var verr *ValidationError
	if err != nil && !errors.As(err, &verr) {
		return prev, err
	}
	c.state = next
	if err != nil {
		return next, err
	}

	if prev.Phase != next.Phase {
		c.logger.Debug("phase changed", "from", prev.Phase, "to", next.Phase, "event", fmt.Sprintf("%T", ev))
	}
	c.persist(ctx, prev, ev)

	if next.Phase == PhaseSummary && !next.Drill.StreakApplied {
		updated := streak.Update(next.Streak, c.now())
		return c.apply(ctx, StreakRecorded{Streak: updated})
	}
	return c.state, nil
}

// persist writes the durable effects of ev. Failures are logged; the
// in-memory state is already updated.
func (c *Controller) persist(ctx context.Context, prev State, ev Event) {
	var err error
	switch ev := ev.(type) {
	case DrillGenerated:
		if !prev.Prefs.Configured {
			d := c.state.Drill
			err = c.prefs.SavePreferences(ctx, d.Difficulty, d.ExamDate)
		}
	case MistakesAnalyzed:
		if dropped := len(ev.Mistakes) - len(c.state.Drill.Mistakes); dropped > 0 {
			c.logger.Warn("ignored diagnoses that do not match a wrong answer", "dropped", dropped)
		}
	case StreakRecorded:
		err = c.prefs.SaveStreak(ctx, ev.Streak)
	case Authenticated, ProfileUpdated:
		err = c.prefs.SaveAccount(ctx, c.state.Account)
		if err == nil {
			if u, ok := ev.(ProfileUpdated); ok && u.User.ExamDate != "" {
				err = c.prefs.SaveExamDate(ctx, u.User.ExamDate)
			}
		}
	case AccountRestored:
		if ev.User == nil {
			err = c.prefs.ClearAccount(ctx)
		} else {
			err = c.prefs.SaveAccount(ctx, c.state.Account)
		}
	case LoggedOut:
		err = c.prefs.ClearAccount(ctx)
	}
	if err != nil {
		c.logger.Error("persist state", "event", fmt.Sprintf("%T", ev), "error", err)
	}
}

// issue stamps a call with the current epoch. Callers hold c.mu.
func (c *Controller) issue(op string, call func(ctx context.Context) Event) *Pending {
	return &Pending{Op: op, epoch: c.state.Epoch, call: call}
}

// issueForAccount stamps a phase-independent call with the token it acts
// for. Callers hold c.mu.
func (c *Controller) issueForAccount(op string, call func(ctx context.Context) Event) *Pending {
	return &Pending{Op: op, unbound: true, token: c.state.Account.Token, call: call}
}

// Await performs the call without holding the lock, then applies the result
// event. If the phase changed in the meantime, or for account calls the
// signed-in account did, the result is dropped and ErrStale is returned.
func (c *Controller) Await(ctx context.Context, p *Pending) (State, error) {
	ev := p.call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p.unbound && c.state.Account.Token != p.token {
		c.logger.Debug("discarding result for a replaced account", "op", p.Op)
		return c.state, ErrStale
	}
	if !p.unbound && c.state.Epoch != p.epoch {
		c.logger.Debug("discarding stale result", "op", p.Op, "issued", p.epoch, "current", c.state.Epoch)
		return c.state, ErrStale
	}
	if ev == nil {
		return c.state, nil
	}
	return c.apply(ctx, ev)
}

// StartDrill validates the settings and moves to GENERATING.
func (c *Controller) StartDrill(ctx context.Context, difficulty backend.Difficulty, examDate string) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.apply(ctx, StartDrill{Difficulty: difficulty, ExamDate: examDate})
	if err != nil {
		return nil, err
	}
	req := backend.GenerateRequest{Difficulty: s.Drill.Difficulty, ExamDate: s.Drill.ExamDate}
	return c.issue("generate-session", func(ctx context.Context) Event {
		sess, err := c.backend.GenerateSession(ctx, req)
		if err != nil {
			c.logger.Warn("generate session failed", "error", err)
			return DrillFailed{Err: err}
		}
		return DrillGenerated{Session: *sess}
	}), nil
}

// Submit ends the exam and requests mistake analysis. Without confirmation
// it fails with *UnansweredError when questions are unanswered.
func (c *Controller) Submit(ctx context.Context, confirmed bool) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.apply(ctx, Submit{Confirmed: confirmed})
	if err != nil {
		return nil, err
	}
	req := backend.AnalyzeRequest{SessionID: s.Drill.Session.ID, Answers: s.Drill.ExamAnswers}
	return c.issue("analyze-mistakes", func(ctx context.Context) Event {
		ms, err := c.backend.AnalyzeMistakes(ctx, req)
		if err != nil {
			c.logger.Warn("analyze mistakes failed", "error", err)
			return AnalysisFailed{Err: err}
		}
		return MistakesAnalyzed{Mistakes: ms}
	}), nil
}

// FetchCoach requests the coach summary once per drill.
func (c *Controller) FetchCoach(ctx context.Context) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.apply(ctx, CoachRequested{})
	if err != nil {
		return nil, err
	}
	d := s.Drill
	req := backend.SummaryRequest{
		SessionID:       d.Session.ID,
		OriginalScore:   d.Result.Original.String(),
		FinalMastery:    d.Result.Final.String(),
		TrapsIdentified: d.Traps(),
		ExamDate:        d.ExamDate,
	}
	return c.issue("session-summary", func(ctx context.Context) Event {
		resp, err := c.backend.SessionSummary(ctx, req)
		if err != nil {
			c.logger.Warn("coach summary failed, using fallback", "error", err)
			return CoachFailed{Err: err}
		}
		return CoachReceived{Message: resp.CoachMessage}
	}), nil
}

// Login signs in and loads the profile.
func (c *Controller) Login(username, password string) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.onAccountScreen() {
		return nil, invalid(c.state.Phase, Authenticated{})
	}
	return c.issue("login", func(ctx context.Context) Event {
		return c.signIn(ctx, username, password)
	}), nil
}

// Register creates an account, then signs in with it.
func (c *Controller) Register(req backend.RegisterRequest) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseRegister {
		return nil, invalid(c.state.Phase, Authenticated{})
	}
	if req.ExamDate != "" {
		d, err := backend.NormalizeDate(req.ExamDate)
		if err != nil {
			s, verr := rejected(c.state, "exam_date", "use the YYYY-MM-DD format")
			c.state = s
			return nil, verr
		}
		req.ExamDate = d
	}
	return c.issue("register", func(ctx context.Context) Event {
		if _, err := c.backend.Register(ctx, req); err != nil {
			return AuthFailed{Err: err}
		}
		return c.signIn(ctx, req.Username, req.Password)
	}), nil
}

func (c *Controller) signIn(ctx context.Context, username, password string) Event {
	tok, err := c.backend.Login(ctx, backend.LoginRequest{Username: username, Password: password})
	if err != nil {
		return AuthFailed{Err: err}
	}
	u, err := c.backend.Me(ctx, tok.AccessToken)
	if err != nil {
		return AuthFailed{Err: err}
	}
	return Authenticated{Token: tok.AccessToken, User: *u}
}

// Restore validates a persisted token. A rejected token is forgotten; a
// network failure keeps it. Returns nil when no token is held.
func (c *Controller) Restore() *Pending {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.state.Account.Token
	if token == "" {
		return nil
	}
	return c.issueForAccount("restore", func(ctx context.Context) Event {
		u, err := c.backend.Me(ctx, token)
		switch {
		case errors.Is(err, backend.ErrUnauthorized):
			c.logger.Info("persisted token rejected, continuing as guest")
			return AccountRestored{}
		case err != nil:
			c.logger.Warn("could not validate persisted token", "error", err)
			return nil
		}
		return AccountRestored{User: u}
	})
}

// UpdateExamDate changes the exam date on the account, or only locally for
// guests.
func (c *Controller) UpdateExamDate(ctx context.Context, examDate string) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	date, err := backend.NormalizeDate(examDate)
	if err != nil {
		s, verr := rejected(c.state, "exam_date", "use the YYYY-MM-DD format")
		c.state = s
		return nil, verr
	}

	if !c.state.Account.SignedIn() {
		if err := c.prefs.SaveExamDate(ctx, date); err != nil {
			return nil, err
		}
		p := c.state.Prefs
		p.ExamDate = date
		_, err := c.apply(ctx, PreferencesChanged{Prefs: p})
		return nil, err
	}

	token := c.state.Account.Token
	return c.issueForAccount("update-me", func(ctx context.Context) Event {
		u, err := c.backend.UpdateMe(ctx, token, backend.ProfileUpdate{ExamDate: date})
		if err != nil {
			return ProfileUpdateFailed{Err: err}
		}
		return ProfileUpdated{User: *u}
	}), nil
}
