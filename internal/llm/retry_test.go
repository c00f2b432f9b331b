package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 1 * time.Millisecond,
		MaxWait:     10 * time.Millisecond,
		Multiplier:  2.0,
	}
}

var drillReply = MockResponse{Content: json.RawMessage(`{"questions":[]}`)}

func invalidDrill() MockResponse {
	return MockResponse{Err: &ErrInvalidResponse{Schema: "drill-session", Content: json.RawMessage(`{"questions":`), Err: errors.New("unexpected end of JSON")}}
}

func TestRetry_Classification(t *testing.T) {
	tests := []struct {
		name      string
		call      Call
		responses []MockResponse
		wantCalls int
		wantErr   any
	}{
		{
			name:      "first attempt succeeds",
			responses: []MockResponse{drillReply},
			wantCalls: 1,
		},
		{
			name: "provider outage then success",
			responses: []MockResponse{
				{Err: &ErrProviderUnavailable{Status: 503, Err: errors.New("overloaded")}},
				drillReply,
			},
			wantCalls: 2,
		},
		{
			name: "transport failure then success",
			responses: []MockResponse{
				{Err: &ErrProviderUnavailable{Err: errors.New("connection reset")}},
				drillReply,
			},
			wantCalls: 2,
		},
		{
			name: "outage exhausts the budget",
			responses: []MockResponse{
				{Err: &ErrProviderUnavailable{Status: 502, Err: errors.New("bad gateway")}},
				{Err: &ErrProviderUnavailable{Status: 502, Err: errors.New("bad gateway")}},
				{Err: &ErrProviderUnavailable{Status: 502, Err: errors.New("bad gateway")}},
			},
			wantCalls: 3,
			wantErr:   new(*ErrProviderUnavailable),
		},
		{
			name:      "rejected key is not retried",
			responses: []MockResponse{{Err: &ErrAuth{Status: 401, Err: errors.New("invalid x-api-key")}}, drillReply},
			wantCalls: 1,
			wantErr:   new(*ErrAuth),
		},
		{
			name:      "malformed request is not retried",
			responses: []MockResponse{{Err: &ErrProviderUnavailable{Status: 400, Err: errors.New("unknown model")}}, drillReply},
			wantCalls: 1,
			wantErr:   new(*ErrProviderUnavailable),
		},
		{
			name:      "truncated drill is not retried",
			responses: []MockResponse{{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"questions":[`)}}, drillReply},
			wantCalls: 1,
			wantErr:   new(*ErrMaxTokensExceeded),
		},
		{
			name:      "off-schema drill gets one more attempt",
			responses: []MockResponse{invalidDrill(), drillReply},
			wantCalls: 2,
		},
		{
			name:      "second off-schema drill stops",
			responses: []MockResponse{invalidDrill(), invalidDrill(), drillReply},
			wantCalls: 2,
			wantErr:   new(*ErrInvalidResponse),
		},
		{
			name: "diagnosis cap stops before the configured budget",
			call: Call{Purpose: "mistake-diagnosis", MaxAttempts: 1},
			responses: []MockResponse{
				{Err: &ErrProviderUnavailable{Status: 503, Err: errors.New("overloaded")}},
				drillReply,
			},
			wantCalls: 1,
			wantErr:   new(*ErrProviderUnavailable),
		},
		{
			name: "cap above the budget is ignored",
			call: Call{Purpose: "drill-generate", MaxAttempts: 10},
			responses: []MockResponse{
				{Err: &ErrRateLimit{Err: errors.New("429")}},
				{Err: &ErrRateLimit{Err: errors.New("429")}},
				{Err: &ErrRateLimit{Err: errors.New("429")}},
				drillReply,
			},
			wantCalls: 3,
			wantErr:   new(*ErrRateLimit),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			p := WithRetry(mock, retryConfig())

			resp, err := p.Generate(WithCall(context.Background(), tt.call), Request{})
			assert.Equal(t, tt.wantCalls, mock.CallCount())
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.JSONEq(t, `{"questions":[]}`, string(resp.Content))
				return
			}
			require.Error(t, err)
			assert.ErrorAs(t, err, tt.wantErr)
		})
	}
}

type attemptRecorder struct {
	Provider
	calls []Call
}

func (a *attemptRecorder) Generate(ctx context.Context, req Request) (*Response, error) {
	a.calls = append(a.calls, CallFrom(ctx))
	return a.Provider.Generate(ctx, req)
}

func TestRetry_TagsEachAttempt(t *testing.T) {
	rec := &attemptRecorder{Provider: NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Status: 500, Err: errors.New("internal")}},
		drillReply,
	)}
	p := WithRetry(rec, retryConfig())

	ctx := WithCall(context.Background(), Call{Purpose: "drill-generate", DrillID: "d-42"})
	_, err := p.Generate(ctx, Request{})
	require.NoError(t, err)

	require.Len(t, rec.calls, 2)
	for i, c := range rec.calls {
		assert.Equal(t, i+1, c.Attempt)
		assert.Equal(t, "drill-generate", c.Purpose)
		assert.Equal(t, "d-42", c.DrillID)
	}
}

func TestRetry_CancelledContext(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		drillReply,
	)
	p := WithRetry(mock, retryConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mock.CallCount())
}

func TestRetry_BackoffHonoursRetryAfter(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{InitialWait: time.Second, MaxWait: 10 * time.Second, Multiplier: 2}}

	wait := r.backoff(0, &ErrRateLimit{RetryAfter: 7 * time.Second})
	assert.Equal(t, 7*time.Second, wait)

	wait = r.backoff(5, &ErrProviderUnavailable{Status: 503})
	assert.InDelta(t, float64(10*time.Second), float64(wait), float64(2*time.Second))
}

func TestRetry_ModelIDDelegates(t *testing.T) {
	p := WithRetry(NewMockProvider(), retryConfig())
	assert.Equal(t, "mock", p.ModelID())
}
