package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so we skip journal_mode here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{"kv", "users", "drills", "drill_events", "llm_events", "global_sequence"} {
		var name string
		err := s.DB().Get(&name, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestKV(t *testing.T) {
	kv := openTestStore(t).KV()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "streak")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "streak", "3"))
	require.NoError(t, kv.Set(ctx, "streak", "4"))
	v, ok, err := kv.Get(ctx, "streak")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "4", v)

	require.NoError(t, kv.Remove(ctx, "streak"))
	require.NoError(t, kv.Remove(ctx, "streak"))
	_, ok, err = kv.Get(ctx, "streak")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsers(t *testing.T) {
	users := openTestStore(t).Users()
	ctx := context.Background()

	u := &User{Username: "ana", Email: "ana@x.io", PasswordHash: "h"}
	require.NoError(t, users.Create(ctx, u))
	assert.NotZero(t, u.ID)

	err := users.Create(ctx, &User{Username: "ana", Email: "other@x.io", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)
	err = users.Create(ctx, &User{Username: "bo", Email: "ana@x.io", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := users.ByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@x.io", got.Email)

	require.NoError(t, users.SetExamDate(ctx, u.ID, "2025-06-01"))
	got, err = users.ByEmail(ctx, "ana@x.io")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", got.ExamDate)

	_, err = users.ByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.SetExamDate(ctx, 999, "2025-06-01"), ErrNotFound)
}

func TestDrills(t *testing.T) {
	drills := openTestStore(t).Drills()
	ctx := context.Background()

	d := Drill{
		Session: backend.Session{
			ID:      "d-1",
			Passage: backend.Passage{Title: "Bees", Text: "Bees dance."},
			Questions: []backend.Question{
				{ID: 1, Text: "Why?", Options: map[string]string{"A": "x", "B": "y"}, CorrectOption: "B"},
			},
		},
		Difficulty: backend.Beginner,
		ExamDate:   "2025-06-01",
	}
	require.NoError(t, drills.Save(ctx, d))
	assert.ErrorIs(t, drills.Save(ctx, d), ErrDuplicate)

	got, err := drills.Get(ctx, "d-1")
	require.NoError(t, err)
	assert.Equal(t, d.Session, got.Session)
	assert.Equal(t, backend.Beginner, got.Difficulty)

	_, err = drills.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, drills.AppendEvent(ctx, "d-1", DrillGenerated, ""))
	require.NoError(t, drills.AppendEvent(ctx, "d-1", DrillAnalyzed, `{"mistakes":1}`))
	events, err := drills.Events(ctx, "d-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, DrillGenerated, events[0].Kind)
	assert.Less(t, events[0].Sequence, events[1].Sequence)
}

func TestPruneDrills(t *testing.T) {
	drills := openTestStore(t).Drills()
	ctx := context.Background()
	now := time.Now()

	old := Drill{Session: backend.Session{ID: "old"}, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := Drill{Session: backend.Session{ID: "fresh"}, CreatedAt: now}
	require.NoError(t, drills.Save(ctx, old))
	require.NoError(t, drills.Save(ctx, fresh))
	require.NoError(t, drills.AppendEvent(ctx, "old", DrillGenerated, ""))

	n, err := drills.PruneBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = drills.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = drills.Get(ctx, "fresh")
	assert.NoError(t, err)

	events, err := drills.Events(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := s.seq.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}

	for i, seq := range seqs {
		expected := int64(i + 1)
		if seq != expected {
			t.Errorf("seq[%d] = %d, want %d", i, seq, expected)
		}
	}
}

func TestLLMEvents(t *testing.T) {
	repo := openTestStore(t).EventRepo()
	ctx := context.Background()

	records := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "generate", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "diagnose", DrillID: "d-1", InputTokens: 40, OutputTokens: 20, LatencyMs: 100, Success: true},
		{Provider: "anthropic", Model: "claude-haiku", Purpose: "diagnose", DrillID: "d-2", Attempt: 2, LatencyMs: 300, Success: false, ErrorMessage: "boom"},
	}
	for _, r := range records {
		require.NoError(t, repo.AppendLLMRequest(ctx, r))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "boom", all[0].ErrorMessage, "newest first")
	assert.False(t, all[0].Success)

	diag, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "diagnose", Limit: 1})
	require.NoError(t, err)
	require.Len(t, diag, 1)

	byDrill, err := repo.QueryLLMEvents(ctx, QueryOpts{DrillID: "d-1"})
	require.NoError(t, err)
	require.Len(t, byDrill, 1)
	assert.Equal(t, 100, int(byDrill[0].LatencyMs))
	assert.Equal(t, 1, byDrill[0].Attempt)
	assert.Equal(t, 2, all[0].Attempt)
	assert.Equal(t, "d-2", all[0].DrillID)

	e, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "generate", e.Purpose)
	assert.True(t, e.Success)

	missing, err := repo.GetLLMEvent(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "diagnose", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 40, byPurpose[0].InputTokens)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, 3, byModel[0].Calls)
	assert.Equal(t, 140, byModel[0].InputTokens)
}
