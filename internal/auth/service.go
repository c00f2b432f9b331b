// Package auth manages drill accounts: registration, password login with
// bearer tokens, and the signed-in user's profile.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrInvalidExamDate    = errors.New("invalid exam_date format, use ISO format or YYYY-MM-DD")
)

// FieldError is a missing or malformed registration field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// Users is the account storage the service needs.
type Users interface {
	Create(ctx context.Context, u *store.User) error
	ByUsername(ctx context.Context, username string) (*store.User, error)
	ByEmail(ctx context.Context, email string) (*store.User, error)
	SetExamDate(ctx context.Context, id int64, examDate string) error
}

type Service struct {
	users  Users
	tokens *Tokens
	params HashParams
	logger *slog.Logger
}

// New creates a Service. logger may be nil.
func New(users Users, tokens *Tokens, params HashParams, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{users: users, tokens: tokens, params: params, logger: logger}
}

// Register creates an account. Email is checked before username.
func (s *Service) Register(ctx context.Context, req backend.RegisterRequest) (*backend.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	switch {
	case username == "":
		return nil, &FieldError{Field: "username", Message: "is required"}
	case email == "":
		return nil, &FieldError{Field: "email", Message: "is required"}
	case req.Password == "":
		return nil, &FieldError{Field: "password", Message: "is required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &FieldError{Field: "email", Message: "is not a valid address"}
	}

	examDate, err := parseExamDate(req.ExamDate)
	if err != nil {
		return nil, err
	}

	if err := s.taken(ctx, s.users.ByEmail, email, ErrEmailTaken); err != nil {
		return nil, err
	}
	if err := s.taken(ctx, s.users.ByUsername, username, ErrUsernameTaken); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password, s.params)
	if err != nil {
		return nil, err
	}
	u := &store.User{Username: username, Email: email, PasswordHash: hash, ExamDate: examDate}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user", u.ID, "username", u.Username)
	return profile(u), nil
}

func (s *Service) taken(ctx context.Context, lookup func(context.Context, string) (*store.User, error), key string, taken error) error {
	_, err := lookup(ctx, key)
	switch {
	case err == nil:
		return taken
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("look up user: %w", err)
	}
}

// Login checks a password and issues an access token.
func (s *Service) Login(ctx context.Context, req backend.LoginRequest) (*backend.Token, error) {
	u, err := s.users.ByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	ok, err := VerifyPassword(req.Password, u.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user", u.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.Username)
	if err != nil {
		return nil, err
	}
	return &backend.Token{AccessToken: token, TokenType: TokenType}, nil
}

// Authenticate resolves a bearer token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	username, err := s.tokens.Subject(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.ByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return u, nil
}

// Me returns the profile of the token's account.
func (s *Service) Me(ctx context.Context, token string) (*backend.User, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return profile(u), nil
}

// UpdateProfile applies a profile update for the token's account. An empty
// exam date leaves the stored one unchanged.
func (s *Service) UpdateProfile(ctx context.Context, token string, req backend.ProfileUpdate) (*backend.User, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.ExamDate != "" {
		examDate, err := parseExamDate(req.ExamDate)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetExamDate(ctx, u.ID, examDate); err != nil {
			return nil, fmt.Errorf("update exam date: %w", err)
		}
		u.ExamDate = examDate
	}
	return profile(u), nil
}

func parseExamDate(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	d, err := backend.NormalizeDate(s)
	if err != nil {
		return "", ErrInvalidExamDate
	}
	return d, nil
}

func profile(u *store.User) *backend.User {
	return &backend.User{
		ID:         int(u.ID),
		Username:   u.Username,
		Email:      u.Email,
		StreakDays: u.StreakDays,
		ExamDate:   u.ExamDate,
	}
}
