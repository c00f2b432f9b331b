package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/prefs"
)

func fiveQuestionSession() backend.Session {
	opts := map[string]string{"A": "a", "B": "b", "C": "c", "D": "d", "E": "e"}
	correct := []string{"A", "B", "C", "D", "E"}
	qs := make([]backend.Question, 5)
	for i := range qs {
		qs[i] = backend.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       opts,
			CorrectOption: correct[i],
		}
	}
	return backend.Session{
		ID:        "sess-1",
		Passage:   backend.Passage{Title: "Tides", Text: "The moon pulls the sea."},
		Questions: qs,
	}
}

func mistake(id int, trap string) backend.Mistake {
	return backend.Mistake{
		QuestionID: id,
		Diagnosis: backend.Diagnosis{
			TrapType:        trap,
			HintForRetry:    "Look at paragraph two.",
			FullExplanation: "The passage says otherwise.",
		},
	}
}

// fakeBackend is a scripted backend.Port.
type fakeBackend struct {
	mu sync.Mutex

	session    *backend.Session
	mistakes   []backend.Mistake
	coach      *backend.CoachMessage
	user       *backend.User
	token      string
	failWith   error
	meFailWith error

	// gate, when set, blocks AnalyzeMistakes until closed.
	gate chan struct{}

	summaryReqs []backend.SummaryRequest
	analyzeReqs []backend.AnalyzeRequest
}

var _ backend.Port = (*fakeBackend)(nil)

func netErr(op string) error {
	return &backend.Error{Op: op, Status: http.StatusBadGateway, Detail: "upstream unavailable"}
}

func (f *fakeBackend) GenerateSession(_ context.Context, _ backend.GenerateRequest) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	s := *f.session
	return &s, nil
}

func (f *fakeBackend) AnalyzeMistakes(ctx context.Context, req backend.AnalyzeRequest) ([]backend.Mistake, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeReqs = append(f.analyzeReqs, req)
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.mistakes, nil
}

func (f *fakeBackend) SessionSummary(_ context.Context, req backend.SummaryRequest) (*backend.SummaryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryReqs = append(f.summaryReqs, req)
	if f.failWith != nil || f.coach == nil {
		return nil, netErr("session-summary")
	}
	return &backend.SummaryResponse{
		OriginalScore:   req.OriginalScore,
		FinalMastery:    req.FinalMastery,
		TrapsIdentified: req.TrapsIdentified,
		CoachMessage:    *f.coach,
	}, nil
}

func (f *fakeBackend) Register(_ context.Context, req backend.RegisterRequest) (*backend.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &backend.User{ID: 1, Username: req.Username, Email: req.Email, ExamDate: req.ExamDate}, nil
}

func (f *fakeBackend) Login(_ context.Context, req backend.LoginRequest) (*backend.Token, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if req.Password != "secret" {
		return nil, &backend.Error{Op: "login", Status: http.StatusUnauthorized, Detail: "Incorrect username or password"}
	}
	return &backend.Token{AccessToken: f.token, TokenType: "bearer"}, nil
}

func (f *fakeBackend) Me(_ context.Context, token string) (*backend.User, error) {
	if f.meFailWith != nil {
		return nil, f.meFailWith
	}
	if token != f.token || f.user == nil {
		return nil, &backend.Error{Op: "me", Status: http.StatusUnauthorized, Detail: "Could not validate credentials"}
	}
	u := *f.user
	return &u, nil
}

func (f *fakeBackend) UpdateMe(_ context.Context, token string, req backend.ProfileUpdate) (*backend.User, error) {
	if token != f.token || f.user == nil {
		return nil, &backend.Error{Op: "update-me", Status: http.StatusUnauthorized}
	}
	u := *f.user
	u.ExamDate = req.ExamDate
	return &u, nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Add(14 * time.Hour)
}

type harness struct {
	ctrl  *Controller
	be    *fakeBackend
	prefs *prefs.Prefs
	store *prefs.MemoryStore
	clock *clock
}

func newHarness(seed map[string]string) *harness {
	store := prefs.NewMemoryStore()
	for k, v := range seed {
		_ = store.Set(context.Background(), k, v)
	}
	s := fiveQuestionSession()
	be := &fakeBackend{session: &s, token: "tok-1"}
	p := prefs.New(store, nil)
	clk := &clock{t: day("2025-03-10")}
	ctrl, err := NewController(context.Background(), Options{Backend: be, Prefs: p, Now: clk.now})
	if err != nil {
		panic(err)
	}
	return &harness{ctrl: ctrl, be: be, prefs: p, store: store, clock: clk}
}

func (h *harness) get(key string) (string, bool) {
	v, ok, _ := h.store.Get(context.Background(), key)
	return v, ok
}
