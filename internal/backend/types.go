// Package backend defines the drill service API: its wire types, the Port
// the client core depends on, and an HTTP implementation of that port.
package backend

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Difficulty is the requested passage difficulty.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"
)

// Difficulties lists the valid difficulties in increasing order.
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	for _, v := range Difficulties {
		if d == v {
			return true
		}
	}
	return false
}

// ParseDifficulty matches a difficulty case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, v := range Difficulties {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Passage is the reading text of a drill.
type Passage struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Question is one multiple-choice question. Options maps keys "A".."E" to
// option text.
type Question struct {
	ID            int               `json:"id"`
	Text          string            `json:"text"`
	Options       map[string]string `json:"options"`
	CorrectOption string            `json:"correct_option"`
}

// OptionKeys returns the question's option keys in sorted order.
func (q Question) OptionKeys() []string {
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Session is a generated drill.
type Session struct {
	ID        string     `json:"session_id"`
	Passage   Passage    `json:"passage"`
	Questions []Question `json:"questions"`
}

// Keys maps each question id to its correct option.
func (s Session) Keys() map[int]string {
	keys := make(map[int]string, len(s.Questions))
	for _, q := range s.Questions {
		keys[q.ID] = q.CorrectOption
	}
	return keys
}

// Question looks up a question by id.
func (s Session) Question(id int) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type GenerateRequest struct {
	Difficulty Difficulty `json:"difficulty"`
	ExamDate   string     `json:"exam_date"`
}

type AnalyzeRequest struct {
	SessionID string         `json:"session_id"`
	Answers   map[int]string `json:"answers"`
}

// Diagnosis explains why an answer was wrong.
type Diagnosis struct {
	TrapType        string `json:"trap_type"`
	HintForRetry    string `json:"hint_for_retry"`
	FullExplanation string `json:"full_explanation"`
}

// Mistake is the diagnosis of one wrong answer.
type Mistake struct {
	QuestionID int       `json:"question_id"`
	Diagnosis  Diagnosis `json:"user_mistake_diagnosis"`
}

type CoachMessage struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

type SummaryRequest struct {
	SessionID       string   `json:"session_id"`
	OriginalScore   string   `json:"original_score"`
	FinalMastery    string   `json:"final_mastery"`
	TrapsIdentified []string `json:"traps_identified"`
	ExamDate        string   `json:"exam_date"`
}

type SummaryResponse struct {
	OriginalScore   string       `json:"original_score"`
	FinalMastery    string       `json:"final_mastery"`
	TrapsIdentified []string     `json:"traps_identified"`
	CoachMessage    CoachMessage `json:"coach_message"`
}

// User is an account profile. ExamDate is YYYY-MM-DD or empty.
type User struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	StreakDays int    `json:"streak_days"`
	ExamDate   string `json:"exam_date,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	ExamDate string `json:"exam_date,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ProfileUpdate struct {
	ExamDate string `json:"exam_date"`
}

// Health is the response of the root endpoint.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// Port is the set of round trips the drill core makes. Every call may fail;
// failures are reported as *Error.
type Port interface {
	GenerateSession(ctx context.Context, req GenerateRequest) (*Session, error)
	AnalyzeMistakes(ctx context.Context, req AnalyzeRequest) ([]Mistake, error)
	SessionSummary(ctx context.Context, req SummaryRequest) (*SummaryResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*Token, error)
	Me(ctx context.Context, token string) (*User, error)
	UpdateMe(ctx context.Context, token string, req ProfileUpdate) (*User, error)
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// NormalizeDate accepts a YYYY-MM-DD date or an ISO 8601 datetime and
// returns the YYYY-MM-DD calendar date.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("date is empty")
	}
	layouts := []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
}
