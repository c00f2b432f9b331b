package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/abhisek/drillsergeant/internal/auth"
	"github.com/abhisek/drillsergeant/internal/backend"
	"github.com/abhisek/drillsergeant/internal/coach"
)

const maxBodyBytes = 1 << 20

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeInvalid reports a request validation failure as a 422 with a list
// of issues.
func writeInvalid(w http.ResponseWriter, field, msg string) {
	loc := []string{"body"}
	if field != "" {
		loc = append(loc, field)
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []validationIssue{{Loc: loc, Msg: msg, Type: "value_error"}},
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil {
		writeInvalid(w, "", fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, backend.Health{Status: "alive", Service: ServiceName, Version: Version})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req backend.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := s.coach.Generate(r.Context(), req)
	if err != nil {
		s.drillError(w, "Failed to generate session", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req backend.AnalyzeRequest
	if !decode(w, r, &req) {
		return
	}
	mistakes, err := s.coach.Analyze(r.Context(), req)
	if err != nil {
		s.drillError(w, "Failed to analyze mistakes", err)
		return
	}
	writeJSON(w, http.StatusOK, mistakes)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req backend.SummaryRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.coach.Summarize(r.Context(), req)
	if err != nil {
		s.drillError(w, "Failed to generate summary", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) drillError(w http.ResponseWriter, prefix string, err error) {
	var rerr *coach.RequestError
	switch {
	case errors.As(err, &rerr):
		writeInvalid(w, rerr.Field, rerr.Message)
	case errors.Is(err, coach.ErrSessionNotFound):
		writeDetail(w, http.StatusNotFound, "Session not found")
	default:
		s.logger.Error(prefix, "error", err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", prefix, err))
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req backend.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.authError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req backend.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	tok, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.authError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), bearerToken(r.Context()))
	if err != nil {
		s.authError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req backend.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	u, err := s.auth.UpdateProfile(r.Context(), bearerToken(r.Context()), req)
	if err != nil {
		s.authError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) authError(w http.ResponseWriter, err error) {
	var ferr *auth.FieldError
	switch {
	case errors.As(err, &ferr):
		writeInvalid(w, ferr.Field, ferr.Message)
	case errors.Is(err, auth.ErrEmailTaken):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, auth.ErrUsernameTaken):
		writeDetail(w, http.StatusBadRequest, "Username already taken")
	case errors.Is(err, auth.ErrInvalidExamDate):
		writeDetail(w, http.StatusBadRequest, "Invalid exam_date format. Use ISO format or YYYY-MM-DD")
	case errors.Is(err, auth.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
	case errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
	default:
		s.logger.Error("auth request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
