// Package prefs holds the learner's durable local state: preferences,
// streak, and the signed-in account.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/streak"
)

// Keys of the persisted values.
const (
	KeyStreak          = "streak"
	KeyLastSessionDate = "last_session_date"
	KeyConfigured      = "configured"
	KeyDifficulty      = "difficulty"
	KeyExamDate        = "exam_date"
	KeyAuthToken       = "auth_token"
	KeyUser            = "user"
)

// AllKeys lists every key Prefs reads or writes.
var AllKeys = []string{
	KeyStreak, KeyLastSessionDate, KeyConfigured, KeyDifficulty,
	KeyExamDate, KeyAuthToken, KeyUser,
}

// Store is a string key/value store. A missing key is reported with
// ok=false, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Preferences are the drill settings remembered between runs.
type Preferences struct {
	Configured bool
	Difficulty backend.Difficulty
	ExamDate   string
}

// Account is the signed-in user, if any.
type Account struct {
	Token string
	User  *backend.User
}

// SignedIn reports whether a token is held.
func (a Account) SignedIn() bool { return a.Token != "" }

// Prefs is the typed view over a Store. Malformed values are logged and
// treated as absent.
type Prefs struct {
	store  Store
	logger *slog.Logger
}

// New wraps a Store. A nil logger discards.
func New(store Store, logger *slog.Logger) *Prefs {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prefs{store: store, logger: logger}
}

func (p *Prefs) get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, ok, nil
}

func (p *Prefs) malformed(key, value string, err error) {
	p.logger.Warn("ignoring malformed persisted value", "key", key, "value", value, "error", err)
}

// Preferences loads the saved drill settings.
func (p *Prefs) Preferences(ctx context.Context) (Preferences, error) {
	var out Preferences

	if v, ok, err := p.get(ctx, KeyConfigured); err != nil {
		return out, err
	} else if ok {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			p.malformed(KeyConfigured, v, perr)
		} else {
			out.Configured = b
		}
	}

	if v, ok, err := p.get(ctx, KeyDifficulty); err != nil {
		return out, err
	} else if ok {
		d, perr := backend.ParseDifficulty(v)
		if perr != nil {
			p.malformed(KeyDifficulty, v, perr)
		} else {
			out.Difficulty = d
		}
	}

	if v, ok, err := p.get(ctx, KeyExamDate); err != nil {
		return out, err
	} else if ok {
		d, perr := backend.NormalizeDate(v)
		if perr != nil {
			p.malformed(KeyExamDate, v, perr)
		} else {
			out.ExamDate = d
		}
	}

	return out, nil
}

// SavePreferences persists difficulty and exam date and marks the learner
// as configured.
func (p *Prefs) SavePreferences(ctx context.Context, difficulty backend.Difficulty, examDate string) error {
	if err := p.store.Set(ctx, KeyDifficulty, string(difficulty)); err != nil {
		return fmt.Errorf("save difficulty: %w", err)
	}
	if err := p.SaveExamDate(ctx, examDate); err != nil {
		return err
	}
	if err := p.store.Set(ctx, KeyConfigured, "true"); err != nil {
		return fmt.Errorf("save configured flag: %w", err)
	}
	return nil
}

// SaveExamDate persists only the exam date.
func (p *Prefs) SaveExamDate(ctx context.Context, examDate string) error {
	if err := p.store.Set(ctx, KeyExamDate, examDate); err != nil {
		return fmt.Errorf("save exam date: %w", err)
	}
	return nil
}

// Streak loads the streak state. The count is kept even if the date is
// malformed, in which case the next drill restarts the streak.
func (p *Prefs) Streak(ctx context.Context) (streak.State, error) {
	var out streak.State

	if v, ok, err := p.get(ctx, KeyStreak); err != nil {
		return out, err
	} else if ok {
		n, perr := strconv.Atoi(v)
		if perr != nil || n < 0 {
			p.malformed(KeyStreak, v, perr)
		} else {
			out.Count = n
		}
	}

	if v, ok, err := p.get(ctx, KeyLastSessionDate); err != nil {
		return out, err
	} else if ok {
		d, perr := streak.ParseDate(v)
		if perr != nil {
			p.malformed(KeyLastSessionDate, v, perr)
		} else {
			out.LastDate = d
		}
	}

	return out, nil
}

// SaveStreak persists the streak state.
func (p *Prefs) SaveStreak(ctx context.Context, s streak.State) error {
	if err := p.store.Set(ctx, KeyStreak, strconv.Itoa(s.Count)); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	if s.LastDate.IsZero() {
		return p.store.Remove(ctx, KeyLastSessionDate)
	}
	if err := p.store.Set(ctx, KeyLastSessionDate, streak.FormatDate(s.LastDate)); err != nil {
		return fmt.Errorf("save last session date: %w", err)
	}
	return nil
}

// Account loads the signed-in account.
func (p *Prefs) Account(ctx context.Context) (Account, error) {
	var out Account

	if v, ok, err := p.get(ctx, KeyAuthToken); err != nil {
		return out, err
	} else if ok {
		out.Token = v
	}

	if v, ok, err := p.get(ctx, KeyUser); err != nil {
		return out, err
	} else if ok {
		var u backend.User
		if perr := json.Unmarshal([]byte(v), &u); perr != nil {
			p.malformed(KeyUser, v, perr)
		} else {
			out.User = &u
		}
	}

	return out, nil
}

// SaveAccount persists the token and the cached user.
func (p *Prefs) SaveAccount(ctx context.Context, a Account) error {
	if err := p.store.Set(ctx, KeyAuthToken, a.Token); err != nil {
		return fmt.Errorf("save auth token: %w", err)
	}
	if a.User == nil {
		return p.store.Remove(ctx, KeyUser)
	}
	b, err := json.Marshal(a.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := p.store.Set(ctx, KeyUser, string(b)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ClearAccount forgets the token and cached user.
func (p *Prefs) ClearAccount(ctx context.Context) error {
	if err := p.store.Remove(ctx, KeyAuthToken); err != nil {
		return fmt.Errorf("remove auth token: %w", err)
	}
	if err := p.store.Remove(ctx, KeyUser); err != nil {
		return fmt.Errorf("remove user: %w", err)
	}
	return nil
}

// Snapshot returns every persisted key that is set.
func (p *Prefs) Snapshot(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	for _, k := range AllKeys {
		v, ok, err := p.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

// Forget removes every persisted key.
func (p *Prefs) Forget(ctx context.Context) error {
	for _, k := range AllKeys {
		if err := p.store.Remove(ctx, k); err != nil {
			return fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return nil
}

// DaysUntil returns the number of calendar days from today to the exam date,
// or false if the date is unset or unparseable.
func DaysUntil(examDate string, today time.Time) (int, bool) {
	if examDate == "" {
		return 0, false
	}
	d, err := streak.ParseDate(examDate)
	if err != nil {
		return 0, false
	}
	return int(d.Sub(streak.Day(today)).Hours() / 24), true
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
