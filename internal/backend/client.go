package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// APIVersion is the API version this client speaks. A server with a
// different major version is rejected by Ping.
const APIVersion = "v1.0.0"

var ErrIncompatible = errors.New("incompatible server version")

// Client is the HTTP implementation of Port.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ Port = (*Client)(nil)

// NewClient creates a client for the service at baseURL. A nil httpClient
// uses a client with a 60s timeout, since generation waits on an LLM.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) GenerateSession(ctx context.Context, req GenerateRequest) (*Session, error) {
	var out Session
	if err := c.do(ctx, "generate-session", http.MethodPost, "/generate-session", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AnalyzeMistakes(ctx context.Context, req AnalyzeRequest) ([]Mistake, error) {
	var out []Mistake
	if err := c.do(ctx, "analyze-mistakes", http.MethodPost, "/analyze-mistakes", "", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SessionSummary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.do(ctx, "session-summary", http.MethodPost, "/session-summary", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var out User
	if err := c.do(ctx, "register", http.MethodPost, "/auth/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*Token, error) {
	var out Token
	if err := c.do(ctx, "login", http.MethodPost, "/auth/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, "me", http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, token string, req ProfileUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, "update-me", http.MethodPut, "/auth/me", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks that the service is alive and speaks a compatible API version.
// Servers that do not report a version are accepted.
func (c *Client) Ping(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, "ping", http.MethodGet, "/", "", nil, &out); err != nil {
		return nil, err
	}
	if out.Version == "" {
		return &out, nil
	}
	v := out.Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return &out, fmt.Errorf("%w: unparseable version %q", ErrIncompatible, out.Version)
	}
	if semver.Major(v) != semver.Major(APIVersion) {
		return &out, fmt.Errorf("%w: server %s, client %s", ErrIncompatible, v, APIVersion)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Detail: parseDetail(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// parseDetail extracts {"detail": ...}. The detail is either a string or a
// list of validation errors carrying "msg".
func parseDetail(data []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &list); err == nil && len(list) > 0 {
		msgs := make([]string, 0, len(list))
		for _, e := range list {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(envelope.Detail)
}
