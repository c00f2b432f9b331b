// Package sessiontest provides a scripted backend and a ready controller
// for testing code that drives a drill.
package sessiontest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
	"github.com/abhisek/drillsergeant/internal/session"
)

// Password is the only password Backend accepts.
const Password = "secret"

// Drill returns a three-question drill whose answers are A, B and C.
func Drill() backend.Session {
	opts := map[string]string{"A": "alpha", "B": "bravo", "C": "charlie", "D": "delta", "E": "echo"}
	qs := make([]backend.Question, 3)
	for i := range qs {
		qs[i] = backend.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       opts,
			CorrectOption: string(rune('A' + i)),
		}
	}
	return backend.Session{
		ID:        "drill-1",
		Passage:   backend.Passage{Title: "Tides", Text: "The moon pulls the sea."},
		Questions: qs,
	}
}

// Backend is a backend.Port that diagnoses every wrong exam answer and
// accepts one account.
type Backend struct {
	mu sync.Mutex

	Session backend.Session
	Coach   backend.CoachMessage
	User    backend.User
	Token   string

	// Fail, when set, is returned by every drill call.
	Fail error
}

var _ backend.Port = (*Backend)(nil)

// NewBackend scripts Drill and a default account "cadet".
func NewBackend() *Backend {
	return &Backend{
		Session: Drill(),
		Coach:   backend.CoachMessage{Headline: "Solid work", Body: "Again tomorrow."},
		User:    backend.User{ID: 1, Username: "cadet", Email: "cadet@example.com"},
		Token:   "tok-1",
	}
}

// NetworkError is a failed round trip as the HTTP client reports it.
func NetworkError(op string) error {
	return &backend.Error{Op: op, Status: http.StatusBadGateway, Detail: "upstream unavailable"}
}

func (b *Backend) fail() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Fail
}

func (b *Backend) GenerateSession(_ context.Context, _ backend.GenerateRequest) (*backend.Session, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	s := b.Session
	return &s, nil
}

func (b *Backend) AnalyzeMistakes(_ context.Context, req backend.AnalyzeRequest) ([]backend.Mistake, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	var out []backend.Mistake
	for _, q := range b.Session.Questions {
		a, ok := req.Answers[q.ID]
		if !ok || a == q.CorrectOption {
			continue
		}
		out = append(out, backend.Mistake{
			QuestionID: q.ID,
			Diagnosis: backend.Diagnosis{
				TrapType:        "Scope Shift",
				HintForRetry:    "Reread the last sentence.",
				FullExplanation: "The passage limits the claim to the sea.",
			},
		})
	}
	return out, nil
}

func (b *Backend) SessionSummary(_ context.Context, req backend.SummaryRequest) (*backend.SummaryResponse, error) {
	if err := b.fail(); err != nil {
		return nil, err
	}
	return &backend.SummaryResponse{
		OriginalScore:   req.OriginalScore,
		FinalMastery:    req.FinalMastery,
		TrapsIdentified: req.TrapsIdentified,
		CoachMessage:    b.Coach,
	}, nil
}

func (b *Backend) Register(_ context.Context, req backend.RegisterRequest) (*backend.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.User = backend.User{ID: 1, Username: req.Username, Email: req.Email, ExamDate: req.ExamDate}
	u := b.User
	return &u, nil
}

func (b *Backend) Login(_ context.Context, req backend.LoginRequest) (*backend.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req.Username != b.User.Username || req.Password != Password {
		return nil, &backend.Error{Op: "login", Status: http.StatusUnauthorized, Detail: "Incorrect username or password"}
	}
	return &backend.Token{AccessToken: b.Token, TokenType: "bearer"}, nil
}

func (b *Backend) Me(_ context.Context, token string) (*backend.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token != b.Token {
		return nil, &backend.Error{Op: "me", Status: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	u := b.User
	return &u, nil
}

func (b *Backend) UpdateMe(ctx context.Context, token string, req backend.ProfileUpdate) (*backend.User, error) {
	if _, err := b.Me(ctx, token); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.User.ExamDate = req.ExamDate
	u := b.User
	return &u, nil
}

// Fixture is a controller over Backend and an in-memory preference store.
type Fixture struct {
	Backend *Backend
	Store   *prefs.MemoryStore
	Prefs   *prefs.Prefs
	Ctrl    *session.Controller
	Now     time.Time
}

// New builds a Fixture. seed pre-populates the preference store.
func New(seed map[string]string) (*Fixture, error) {
	ctx := context.Background()
	store := prefs.NewMemoryStore()
	for k, v := range seed {
		if err := store.Set(ctx, k, v); err != nil {
			return nil, err
		}
	}
	f := &Fixture{
		Backend: NewBackend(),
		Store:   store,
		Prefs:   prefs.New(store, nil),
		Now:     time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC),
	}
	ctrl, err := session.NewController(ctx, session.Options{
		Backend: f.Backend,
		Prefs:   f.Prefs,
		Now:     func() time.Time { return f.Now },
	})
	if err != nil {
		return nil, err
	}
	f.Ctrl = ctrl
	return f, nil
}

// Configured is a seed for a learner who has completed setup.
func Configured() map[string]string {
	return map[string]string{
		prefs.KeyConfigured: "true",
		prefs.KeyDifficulty: string(backend.Intermediate),
		prefs.KeyExamDate:   "2025-06-01",
	}
}

// StartExam generates the drill and leaves the controller in EXAM.
func (f *Fixture) StartExam() error {
	ctx := context.Background()
	p, err := f.Ctrl.StartDrill(ctx, backend.Intermediate, "2025-06-01")
	if err != nil {
		return err
	}
	s, err := f.Ctrl.Await(ctx, p)
	if err != nil {
		return err
	}
	if s.Phase != session.PhaseExam {
		return fmt.Errorf("expected EXAM, got %s", s.Phase)
	}
	return nil
}

// Answer records exam answers.
func (f *Fixture) Answer(answers map[int]string) error {
	for id, opt := range answers {
		if _, err := f.Ctrl.Dispatch(context.Background(), session.SelectAnswer{QuestionID: id, Option: opt}); err != nil {
			return err
		}
	}
	return nil
}

// Submit confirms the exam and awaits the analysis.
func (f *Fixture) Submit() (session.State, error) {
	ctx := context.Background()
	p, err := f.Ctrl.Submit(ctx, true)
	if err != nil {
		return session.State{}, err
	}
	return f.Ctrl.Await(ctx, p)
}
