package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/llm"
	"github.com/abhisek/drillsergeant/internal/store"
)

// Summarize produces the end-of-drill coach message and echoes the scores.
// It never fails on the LLM's account: FallbackCoach stands in.
func (s *Service) Summarize(ctx context.Context, req backend.SummaryRequest) (*backend.SummaryResponse, error) {
	traps := req.TrapsIdentified
	if traps == nil {
		traps = []string{}
	}

	msg, err := s.coachMessage(ctx, req, traps)
	if err != nil {
		s.logger.Warn("summary failed, using fallback", "drill", req.SessionID, "error", err)
		msg = FallbackCoach
	}

	if req.SessionID != "" {
		if _, err := s.drills.Get(ctx, req.SessionID); err == nil {
			s.record(ctx, req.SessionID, store.DrillSummarized,
				fmt.Sprintf("%s -> %s", req.OriginalScore, req.FinalMastery))
		} else if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("look up summarized drill", "drill", req.SessionID, "error", err)
		}
	}

	return &backend.SummaryResponse{
		OriginalScore:   req.OriginalScore,
		FinalMastery:    req.FinalMastery,
		TrapsIdentified: traps,
		CoachMessage:    msg,
	}, nil
}

func (s *Service) coachMessage(ctx context.Context, req backend.SummaryRequest, traps []string) (backend.CoachMessage, error) {
	ctx = llm.WithCall(ctx, llm.Call{Purpose: PurposeSummary, DrillID: req.SessionID, MaxAttempts: fallbackAttempts})
	userMsg, err := render(summaryUserTemplate, map[string]any{
		"OriginalScore": req.OriginalScore,
		"FinalMastery":  req.FinalMastery,
		"ExamDate":      req.ExamDate,
		"Traps":         traps,
	})
	if err != nil {
		return backend.CoachMessage{}, fmt.Errorf("build summary prompt: %w", err)
	}

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      summarySystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      CoachSchema,
		MaxTokens:   s.cfg.SummaryMaxTokens,
		Temperature: s.cfg.SummaryTemp,
	})
	if err != nil {
		return backend.CoachMessage{}, fmt.Errorf("LLM summary failed: %w", err)
	}

	var m backend.CoachMessage
	if err := json.Unmarshal(resp.Content, &m); err != nil {
		return backend.CoachMessage{}, fmt.Errorf("failed to parse summary response: %w", err)
	}
	if strings.TrimSpace(m.Headline) == "" || strings.TrimSpace(m.Body) == "" {
		return backend.CoachMessage{}, errors.New("summary response has an empty headline or body")
	}
	return m, nil
}
