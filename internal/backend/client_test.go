package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", nil)
}

func TestGenerateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate-session", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, Intermediate, req.Difficulty)
		assert.Equal(t, "2025-06-01", req.ExamDate)

		w.Write([]byte(`{
			"session_id": "abc",
			"passage": {"title": "Bees", "text": "Bees dance."},
			"questions": [{"id": 1, "text": "Why?", "options": {"A": "x", "B": "y"}, "correct_option": "B"}]
		}`))
	})

	s, err := c.GenerateSession(context.Background(), GenerateRequest{Difficulty: Intermediate, ExamDate: "2025-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, "Bees", s.Passage.Title)
	require.Len(t, s.Questions, 1)
	assert.Equal(t, []string{"A", "B"}, s.Questions[0].OptionKeys())
	assert.Equal(t, map[int]string{1: "B"}, s.Keys())
}

func TestAnalyzeMistakesEncodesIntKeys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		answers := raw["answers"].(map[string]any)
		assert.Equal(t, "C", answers["2"])

		w.Write([]byte(`[{"question_id": 2, "user_mistake_diagnosis": {"trap_type": "Distortion", "hint_for_retry": "h", "full_explanation": "e"}}]`))
	})

	ms, err := c.AnalyzeMistakes(context.Background(), AnalyzeRequest{SessionID: "abc", Answers: map[int]string{2: "C"}})
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, "Distortion", ms[0].Diagnosis.TrapType)
}

func TestBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": 1, "username": "ana", "email": "a@x.io", "streak_days": 3, "exam_date": null}`))
	})

	u, err := c.Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "ana", u.Username)
	assert.Empty(t, u.ExamDate)
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 401, `{"detail": "Incorrect username or password"}`, "Incorrect username or password"},
		{"validation list", 422, `{"detail": [{"msg": "field required"}, {"msg": "bad date"}]}`, "field required; bad date"},
		{"plain body", 500, `boom`, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Login(context.Background(), LoginRequest{Username: "a", Password: "b"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNetwork)

			var be *Error
			require.True(t, errors.As(err, &be))
			assert.Equal(t, tt.status, be.Status)
			assert.Equal(t, tt.want, be.Message())
		})
	}
}

func TestUnauthorizedIs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Could not validate credentials"}`))
	})

	_, err := c.Me(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.GenerateSession(context.Background(), GenerateRequest{Difficulty: Beginner, ExamDate: "2025-06-01"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, UserMessage(err), "Could not reach")
}

func TestPing(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"no version", `{"status": "alive"}`, false},
		{"same major", `{"status": "alive", "version": "1.4.2"}`, false},
		{"prefixed", `{"status": "alive", "version": "v1.0.0"}`, false},
		{"newer major", `{"status": "alive", "version": "2.0.0"}`, true},
		{"garbage", `{"status": "alive", "version": "latest"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			h, err := c.Ping(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompatible)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alive", h.Status)
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-06-01", "2025-06-01", false},
		{"2025-06-01T00:00:00", "2025-06-01", false},
		{"2025-06-01T10:30:00Z", "2025-06-01", false},
		{"2025-06-01T10:30:00.123+02:00", "2025-06-01", false},
		{"", "", true},
		{"06/01/2025", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeDate(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("advanced")
	require.NoError(t, err)
	assert.Equal(t, Advanced, d)
	assert.True(t, d.Valid())

	_, err = ParseDifficulty("expert")
	assert.Error(t, err)
	assert.False(t, Difficulty("expert").Valid())
}
