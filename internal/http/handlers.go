package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"jarvis/internal/events"
	"jarvis/internal/log"
)

const maxMessageBytes = 16 << 10

// messageRequest is one incoming user utterance.
type messageRequest struct {
	UserID   string `json:"user_id"`
	FamilyID string `json:"family_id"`
	Text     string `json:"text"`
}

// messageResponse carries the assistant's reply plus routing details.
type messageResponse struct {
	Response   string         `json:"response"`
	Domain     string         `json:"domain"`
	Intent     string         `json:"intent,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleMessage runs one utterance through the dialogue router, records the
// turn in the conversation history, and publishes the dialogue event.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.FamilyID = strings.TrimSpace(req.FamilyID)
	req.Text = strings.TrimSpace(req.Text)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	start := time.Now()
	history := s.history.Recent(req.FamilyID, req.UserID, 0)
	reply := s.router.RouteMessage(r.Context(), req.Text, req.UserID, req.FamilyID, history)
	s.history.Append(req.FamilyID, req.UserID, req.Text, reply.Response)

	s.logger.InfoContext(r.Context(), "message handled",
		log.FieldUserID, req.UserID,
		log.FieldFamilyID, req.FamilyID,
		log.FieldDomain, reply.Domain,
		log.FieldIntent, reply.Intent,
		log.FieldDuration, time.Since(start).Milliseconds())

	// Event publishing is best effort: a broker outage must not fail the
	// user's request.
	event := events.NewDialogueEvent(req.UserID, req.FamilyID, req.Text,
		reply.Response, reply.Domain, reply.Intent, reply.Confidence, reply.Metadata)
	if err := s.publisher.PublishDialogueEvent(r.Context(), event); err != nil {
		s.logger.WarnContext(r.Context(), "failed to publish dialogue event",
			log.FieldUserID, req.UserID,
			log.FieldError, err)
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Response:   reply.Response,
		Domain:     reply.Domain,
		Intent:     reply.Intent,
		Confidence: reply.Confidence,
		Metadata:   reply.Metadata,
	})
}

// handleClearHistory forgets the user's conversation window.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	s.history.Clear(req.FamilyID, req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.router == nil {
		checks["router"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["router"] = "ok"
	}
	if s.history == nil {
		checks["history"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["history"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{"status": status, "checks": checks})
}
