package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/store"
)

type wrongAnswer struct {
	question backend.Question
	chosen   string
}

type optionLine struct {
	Key  string
	Text string
}

// Analyze diagnoses every answered question whose answer is wrong, in
// question order. Unanswered questions are skipped. A diagnosis that fails
// is replaced by FallbackDiagnosis rather than failing the request.
func (s *Service) Analyze(ctx context.Context, req backend.AnalyzeRequest) ([]backend.Mistake, error) {
	if req.SessionID == "" {
		return nil, &RequestError{Field: "session_id", Message: "is required"}
	}
	drill, err := s.drills.Get(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load drill: %w", err)
	}

	var wrong []wrongAnswer
	for _, q := range drill.Session.Questions {
		chosen := req.Answers[q.ID]
		if chosen != "" && chosen != q.CorrectOption {
			wrong = append(wrong, wrongAnswer{question: q, chosen: chosen})
		}
	}

	out := make([]backend.Mistake, len(wrong))
	if len(wrong) > 0 {
		ctx := llm.WithCall(ctx, llm.Call{Purpose: PurposeDiagnose, DrillID: req.SessionID, MaxAttempts: fallbackAttempts})
		g, gctx := errgroup.WithContext(ctx)
		if s.cfg.MaxParallel > 0 {
			g.SetLimit(s.cfg.MaxParallel)
		}
		for i, w := range wrong {
			g.Go(func() error {
				d, err := s.diagnose(gctx, drill.Session.Passage, w)
				if err != nil {
					s.logger.Warn("diagnosis failed, using fallback",
						"drill", req.SessionID, "question", w.question.ID, "error", err)
					d = FallbackDiagnosis
				}
				out[i] = backend.Mistake{QuestionID: w.question.ID, Diagnosis: d}
				return nil
			})
		}
		_ = g.Wait()
	}

	s.record(ctx, req.SessionID, store.DrillAnalyzed, fmt.Sprintf("%d mistakes", len(out)))
	return out, nil
}

func (s *Service) diagnose(ctx context.Context, passage backend.Passage, w wrongAnswer) (backend.Diagnosis, error) {
	options := make([]optionLine, 0, len(w.question.Options))
	for _, k := range w.question.OptionKeys() {
		options = append(options, optionLine{Key: k, Text: w.question.Options[k]})
	}
	userMsg, err := render(diagnoseUserTemplate, map[string]any{
		"Excerpt":  excerpt(passage.Text, s.cfg.PassageExcerptSize),
		"Question": w.question.Text,
		"Options":  options,
		"Chosen":   w.chosen,
		"Correct":  w.question.CorrectOption,
	})
	if err != nil {
		return backend.Diagnosis{}, fmt.Errorf("build diagnosis prompt: %w", err)
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      diagnoseSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      DiagnosisSchema,
		MaxTokens:   s.cfg.DiagnoseMaxTokens,
		Temperature: s.cfg.DiagnoseTemp,
	})
	if err != nil {
		return backend.Diagnosis{}, fmt.Errorf("LLM diagnosis failed: %w", err)
	}

	var d backend.Diagnosis
	if err := json.Unmarshal(resp.Content, &d); err != nil {
		return backend.Diagnosis{}, fmt.Errorf("failed to parse diagnosis response: %w", err)
	}
	if strings.TrimSpace(d.TrapType) == "" {
		d.TrapType = FallbackDiagnosis.TrapType
	}
	if strings.TrimSpace(d.HintForRetry) == "" {
		d.HintForRetry = FallbackDiagnosis.HintForRetry
	}
	if strings.TrimSpace(d.FullExplanation) == "" {
		d.FullExplanation = FallbackDiagnosis.FullExplanation
	}
	return d, nil
}

// excerpt truncates text to n runes, marking the cut. n <= 0 keeps it whole.
func excerpt(text string, n int) string {
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
