package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cloudtutor/cloudtutor/internal/auth"
	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/pipeline"
)

const (
	maxUserIDLength = 120
	minSessionMin   = 1
	maxSessionMin   = 600
	maxBodyBytes    = 1 << 20
)

type startSessionRequest struct {
	UserID      string     `json:"user_id"`
	FocusTopics []string   `json:"focus_topics"`
	Minutes     int        `json:"minutes"`
	Mode        model.Mode `json:"mode"`
	Offline     bool       `json:"offline"`
}

type startSessionResponse struct {
	*pipeline.StartResult
	OfflineUsed bool `json:"offline_used"`
}

type submitSessionRequest struct {
	UserID  string             `json:"user_id"`
	Mode    model.Mode         `json:"mode"`
	Exam    *model.Exam        `json:"exam"`
	Answers *model.AnswerSheet `json:"answers"`
	Offline bool               `json:"offline"`
}

type submitSessionResponse struct {
	*pipeline.SubmitResult
	OfflineUsed bool `json:"offline_used"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	id, ok := s.guard(w, r)
	if !ok {
		return
	}

	requested := pathParam(r, "user_id")
	st, err := s.store.Load(r.Context(), auth.EffectiveUserID(requested, id))
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.guard(w, r)
	if !ok {
		return
	}

	req := startSessionRequest{UserID: "default", Minutes: 30, Mode: model.ModeAdaptive}
	if !decodeBody(w, r, &req) {
		return
	}
	if !validUserID(w, req.UserID) {
		return
	}
	if req.Minutes < minSessionMin || req.Minutes > maxSessionMin {
		writeError(w, http.StatusBadRequest, "minutes must be between 1 and 600")
		return
	}

	orch, offlineUsed := s.pick(req.Offline)
	res, err := orch.Start(r.Context(), auth.EffectiveUserID(req.UserID, id), req.Mode, req.FocusTopics, req.Minutes)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startSessionResponse{StartResult: res, OfflineUsed: offlineUsed})
}

func (s *Server) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.guard(w, r)
	if !ok {
		return
	}

	req := submitSessionRequest{UserID: "default", Mode: model.ModeAdaptive}
	if !decodeBody(w, r, &req) {
		return
	}
	if !validUserID(w, req.UserID) {
		return
	}
	if req.Exam == nil || req.Answers == nil {
		writeError(w, http.StatusBadRequest, "exam and answers are required")
		return
	}

	orch, offlineUsed := s.pick(req.Offline)
	res, err := orch.Submit(r.Context(), auth.EffectiveUserID(req.UserID, id), req.Exam, req.Answers, req.Mode)
	if err != nil {
		s.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitSessionResponse{SubmitResult: res, OfflineUsed: offlineUsed})
}

// pick selects the orchestrator for a request. A caller asking for
// offline mode gets the stub-only pipeline.
func (s *Server) pick(wantOffline bool) (*pipeline.Orchestrator, bool) {
	if s.offline || wantOffline {
		return s.offlineOrch, true
	}
	return s.orch, false
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func validUserID(w http.ResponseWriter, userID string) bool {
	if userID == "" || len(userID) > maxUserIDLength {
		writeError(w, http.StatusBadRequest, "user_id must be between 1 and 120 characters")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func itoa(n int) string { return strconv.Itoa(n) }
