package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/drillsergeant/internal/auth"
	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/coach"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/store"
)

const drillContent = `{
	"title": "On Glaciers",
	"text": "Glaciers advance and retreat over centuries.",
	"questions": [
		{"id": 1, "text": "Main idea?", "options": {"A": "a", "B": "b", "C": "c", "D": "d", "E": "e"}, "correct_option": "A"},
		{"id": 2, "text": "Tone?", "options": {"A": "a", "B": "b", "C": "c", "D": "d", "E": "e"}, "correct_option": "B"}
	]
}`

func fakeLLM(req llm.Request) llm.MockResponse {
	switch req.Schema.Name {
	case coach.DrillSchema.Name:
		return llm.MockResponse{Content: json.RawMessage(drillContent)}
	case coach.DiagnosisSchema.Name:
		return llm.MockResponse{Content: json.RawMessage(`{"trap_type":"Distortion","hint_for_retry":"Reread.","full_explanation":"Because."}`)}
	default:
		return llm.MockResponse{Content: json.RawMessage(`{"headline":"Again","body":"Tomorrow, same time."}`)}
	}
}

type harness struct {
	srv    *Server
	http   *httptest.Server
	client *backend.Client
	store  *store.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	coachSvc := coach.New(llm.NewMockResponder(fakeLLM), st.Drills(), coach.DefaultConfig(), nil)
	authSvc := auth.New(st.Users(), auth.NewTokens("test", time.Hour),
		auth.HashParams{Memory: 1024, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16}, nil)
	srv := New(coachSvc, authSvc, st.Drills(), Options{SessionTTL: time.Hour})

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return &harness{srv: srv, http: hs, client: backend.NewClient(hs.URL, hs.Client()), store: st}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	health, err := h.client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alive", health.Status)
	assert.Equal(t, ServiceName, health.Service)
	assert.Equal(t, "1.0.0", health.Version)
}

func TestDrillRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.client.GenerateSession(ctx, backend.GenerateRequest{Difficulty: backend.Intermediate, ExamDate: "2025-06-01"})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.Len(t, session.Questions, 2)

	mistakes, err := h.client.AnalyzeMistakes(ctx, backend.AnalyzeRequest{
		SessionID: session.ID,
		Answers:   map[int]string{1: "A", 2: "D"},
	})
	require.NoError(t, err)
	require.Len(t, mistakes, 1)
	assert.Equal(t, 2, mistakes[0].QuestionID)
	assert.Equal(t, "Distortion", mistakes[0].Diagnosis.TrapType)

	summary, err := h.client.SessionSummary(ctx, backend.SummaryRequest{
		SessionID: session.ID, OriginalScore: "1/2", FinalMastery: "2/2",
		TrapsIdentified: []string{"Distortion"}, ExamDate: "2025-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Again", summary.CoachMessage.Headline)
	assert.Equal(t, "1/2", summary.OriginalScore)

	events, err := h.store.Drills().Events(ctx, session.ID)
	require.NoError(t, err)
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []string{store.DrillGenerated, store.DrillAnalyzed, store.DrillSummarized}, kinds)
}

func TestDrillErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.AnalyzeMistakes(ctx, backend.AnalyzeRequest{SessionID: "missing", Answers: map[int]string{1: "A"}})
	require.ErrorIs(t, err, backend.ErrNotFound)
	assert.Equal(t, "Session not found", backend.UserMessage(err))

	_, err = h.client.GenerateSession(ctx, backend.GenerateRequest{Difficulty: "Expert"})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusUnprocessableEntity, be.Status)
	assert.Contains(t, be.Detail, "Beginner")

	resp, err := http.Post(h.http.URL+"/generate-session", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAccountFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u, err := h.client.Register(ctx, backend.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "pw", ExamDate: "2025-12-15"})
	require.NoError(t, err)
	assert.Equal(t, "2025-12-15", u.ExamDate)

	_, err = h.client.Register(ctx, backend.RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "pw"})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusBadRequest, be.Status)
	assert.Equal(t, "Email already registered", be.Detail)

	_, err = h.client.Login(ctx, backend.LoginRequest{Username: "ada", Password: "nope"})
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, "Incorrect username or password", backend.UserMessage(err))

	tok, err := h.client.Login(ctx, backend.LoginRequest{Username: "ada", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	me, err := h.client.Me(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)

	me, err = h.client.UpdateMe(ctx, tok.AccessToken, backend.ProfileUpdate{ExamDate: "2026-01-20T09:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-20", me.ExamDate)

	_, err = h.client.Me(ctx, "forged")
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, "Could not validate credentials", backend.UserMessage(err))

	_, err = h.client.Me(ctx, "")
	require.ErrorIs(t, err, backend.ErrUnauthorized)
	assert.Equal(t, "Not authenticated", backend.UserMessage(err))
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodOptions, h.http.URL+"/generate-session", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

type countingPruner struct {
	calls  atomic.Int32
	cutoff atomic.Value
}

func (p *countingPruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.calls.Add(1)
	p.cutoff.Store(cutoff)
	return 1, nil
}

func TestPruneExpired(t *testing.T) {
	p := &countingPruner{}
	s := New(nil, nil, p, Options{SessionTTL: 2 * time.Hour})
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.pruneExpired()
	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, now.Add(-2*time.Hour), p.cutoff.Load())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	p := &countingPruner{}
	h := newHarness(t)
	s := New(h.srv.coach, h.srv.auth, p, Options{SessionTTL: time.Hour, ShutdownTimeout: time.Second})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := backend.NewClient("http://"+ln.Addr().String(), nil)
	require.Eventually(t, func() bool {
		_, err := client.Ping(context.Background())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 2*time.Second, 20*time.Millisecond,
		"pruning runs when the scheduler starts")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
