package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/store"
)

type drillOutput struct {
	Title     string             `json:"title"`
	Text      string             `json:"text"`
	Questions []backend.Question `json:"questions"`
}

// Generate writes a new drill, stores it and returns it with a fresh id.
func (s *Service) Generate(ctx context.Context, req backend.GenerateRequest) (*backend.Session, error) {
	if !req.Difficulty.Valid() {
		return nil, &RequestError{Field: "difficulty", Message: fmt.Sprintf("must be one of Beginner, Intermediate, Advanced, got %q", req.Difficulty)}
	}
	examDate := ""
	if req.ExamDate != "" {
		d, err := backend.NormalizeDate(req.ExamDate)
		if err != nil {
			return nil, &RequestError{Field: "exam_date", Message: err.Error()}
		}
		examDate = d
	}

	id := s.newID()
	ctx = llm.WithCall(ctx, llm.Call{Purpose: PurposeGenerate, DrillID: id})
	userMsg, err := render(generateUserTemplate, map[string]any{
		"Difficulty": req.Difficulty,
		"ExamDate":   examDate,
		"Min":        2,
		"Max":        s.maxQuestions(),
	})
	if err != nil {
		return nil, fmt.Errorf("build generation prompt: %w", err)
	}

	attempts := max(s.cfg.GenerateAttempts, 1)
	var session *backend.Session
	for attempt := 1; ; attempt++ {
		session, err = s.generateOnce(ctx, userMsg)
		if err == nil {
			break
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Retryable || attempt >= attempts {
			return nil, err
		}
		s.logger.Warn("generated drill rejected, retrying", "attempt", attempt, "error", err)
	}

	session.ID = id
	err = s.drills.Save(ctx, store.Drill{
		Session:    *session,
		Difficulty: req.Difficulty,
		ExamDate:   examDate,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("store drill: %w", err)
	}
	s.record(ctx, session.ID, store.DrillGenerated,
		fmt.Sprintf("%s, %d questions", req.Difficulty, len(session.Questions)))

	s.logger.Info("drill generated", "drill", session.ID, "difficulty", req.Difficulty, "questions", len(session.Questions))
	return session, nil
}

func (s *Service) generateOnce(ctx context.Context, userMsg string) (*backend.Session, error) {
	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      generateSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      DrillSchema,
		MaxTokens:   s.cfg.GenerateMaxTokens,
		Temperature: s.cfg.GenerateTemp,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw drillOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if len(raw.Questions) == 0 {
		return nil, ErrEmptyDrill
	}

	session := &backend.Session{
		Passage:   backend.Passage{Title: raw.Title, Text: raw.Text},
		Questions: raw.Questions,
	}
	for _, v := range s.cfg.Validators {
		if verr := v.Validate(session); verr != nil {
			return nil, verr
		}
	}
	return session, nil
}

func (s *Service) maxQuestions() int {
	for _, v := range s.cfg.Validators {
		if sv, ok := v.(*StructureValidator); ok && sv.MaxQuestions > 0 {
			return sv.MaxQuestions
		}
	}
	return 4
}
