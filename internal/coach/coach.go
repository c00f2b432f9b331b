// Package coach is the server side of a drill: it writes passages and
// questions, diagnoses wrong answers and closes a drill with a coach message.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/store"
)

// LLM purposes, as recorded in the event log.
const (
	PurposeGenerate = "drill-generate"
	PurposeDiagnose = "mistake-diagnosis"
	PurposeSummary  = "session-summary"
)

// fallbackAttempts caps provider attempts for calls that have a canned
// fallback answer.
const fallbackAttempts = 2

var (
	// ErrSessionNotFound is returned when a drill id is unknown or pruned.
	ErrSessionNotFound = fmt.Errorf("session not found: %w", store.ErrNotFound)

	// ErrEmptyDrill is returned when generation produced no usable questions.
	ErrEmptyDrill = errors.New("generated drill has no questions")
)

// RequestError is a malformed request.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// DrillStore keeps generated drills for later analysis.
type DrillStore interface {
	Save(ctx context.Context, d store.Drill) error
	Get(ctx context.Context, id string) (*store.Drill, error)
	AppendEvent(ctx context.Context, drillID, kind, detail string) error
}

// Config tunes the LLM calls.
type Config struct {
	GenerateMaxTokens  int
	DiagnoseMaxTokens  int
	SummaryMaxTokens   int
	GenerateTemp       float64
	DiagnoseTemp       float64
	SummaryTemp        float64
	GenerateAttempts   int // attempts when a generated drill fails a retryable check
	MaxParallel        int // concurrent diagnosis calls per request
	PassageExcerptSize int // runes of passage quoted in a diagnosis prompt

	Validators []Validator
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		GenerateMaxTokens:  2048,
		DiagnoseMaxTokens:  512,
		SummaryMaxTokens:   256,
		GenerateTemp:       0.8,
		DiagnoseTemp:       0.3,
		SummaryTemp:        0.7,
		GenerateAttempts:   2,
		MaxParallel:        4,
		PassageExcerptSize: 500,
		Validators: []Validator{
			&StructureValidator{MinQuestions: 1, MaxQuestions: 4},
			&OptionValidator{},
		},
	}
}

// Service implements the drill endpoints.
type Service struct {
	provider llm.Provider
	drills   DrillStore
	cfg      Config
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// New creates a Service. logger may be nil.
func New(provider llm.Provider, drills DrillStore, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		provider: provider,
		drills:   drills,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// FallbackDiagnosis is used when a mistake could not be diagnosed.
var FallbackDiagnosis = backend.Diagnosis{
	TrapType:        "Unknown",
	HintForRetry:    "Check the text again.",
	FullExplanation: "Error generating explanation.",
}

// FallbackCoach is used when the summary could not be generated.
var FallbackCoach = backend.CoachMessage{
	Headline: "Session Complete",
	Body:     "Good job completing the drill.",
}

// record appends a drill history event. History is best effort.
func (s *Service) record(ctx context.Context, drillID, kind, detail string) {
	if err := s.drills.AppendEvent(context.WithoutCancel(ctx), drillID, kind, detail); err != nil {
		s.logger.Warn("record drill event", "drill", drillID, "kind", kind, "error", err)
	}
}
