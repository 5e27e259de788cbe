package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jarvis/internal/cache"
	"jarvis/internal/dialog"
	"jarvis/internal/events"
	"jarvis/internal/llm"
	"jarvis/internal/log"
)

type fakeRouter struct {
	reply       dialog.Reply
	lastText    string
	lastHistory []llm.Message
}

func (f *fakeRouter) RouteMessage(ctx context.Context, text, userID, familyID string, history []llm.Message) dialog.Reply {
	f.lastText = text
	f.lastHistory = history
	return f.reply
}

type capturingPublisher struct {
	events []*events.DialogueEvent
	err    error
}

func (p *capturingPublisher) PublishDialogueEvent(ctx context.Context, e *events.DialogueEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *capturingPublisher) Close() error { return nil }

func testServer(router MessageRouter, pub events.Publisher) *Server {
	history := cache.NewHistory(10, 5, time.Minute)
	logger := log.New(log.DefaultConfig())
	return NewServer(":0", router, history, pub, logger)
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

func TestHandleMessage(t *testing.T) {
	router := &fakeRouter{reply: dialog.Reply{
		Response:   "Записал расход 1500.00 ₽",
		Domain:     "budget",
		Intent:     "add_expense",
		Confidence: 0.95,
		Metadata:   map[string]any{"operation_result": "успешно"},
	}}
	pub := &capturingPublisher{}
	s := testServer(router, pub)
	defer s.Shutdown(context.Background())

	w := postJSON(t, s, "/api/v1/messages",
		`{"user_id": "u1", "family_id": "fam-1", "text": "добавь расход 1500 питание"}`)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp messageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != "Записал расход 1500.00 ₽" || resp.Domain != "budget" {
		t.Errorf("response = %q/%q", resp.Response, resp.Domain)
	}
	if resp.Intent != "add_expense" || resp.Confidence != 0.95 {
		t.Errorf("intent/confidence = %q/%v", resp.Intent, resp.Confidence)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	e := pub.events[0]
	if e.UserID != "u1" || e.Domain != "budget" || e.Text != "добавь расход 1500 питание" {
		t.Errorf("event = %+v", e)
	}
}

func TestHandleMessage_HistoryFlows(t *testing.T) {
	router := &fakeRouter{reply: dialog.Reply{Response: "ответ", Domain: "general"}}
	s := testServer(router, &capturingPublisher{})
	defer s.Shutdown(context.Background())

	postJSON(t, s, "/api/v1/messages", `{"user_id": "u1", "family_id": "fam-1", "text": "первый"}`)
	if len(router.lastHistory) != 0 {
		t.Errorf("first request saw %d history messages, want 0", len(router.lastHistory))
	}

	postJSON(t, s, "/api/v1/messages", `{"user_id": "u1", "family_id": "fam-1", "text": "второй"}`)
	if len(router.lastHistory) != 2 {
		t.Fatalf("second request saw %d history messages, want 2", len(router.lastHistory))
	}
	if router.lastHistory[0].Content != "первый" || router.lastHistory[1].Content != "ответ" {
		t.Errorf("history = %+v", router.lastHistory)
	}

	// Different user of the same family starts fresh.
	postJSON(t, s, "/api/v1/messages", `{"user_id": "u2", "family_id": "fam-1", "text": "привет"}`)
	if len(router.lastHistory) != 0 {
		t.Errorf("other user saw %d history messages, want 0", len(router.lastHistory))
	}
}

func TestHandleMessage_Validation(t *testing.T) {
	s := testServer(&fakeRouter{}, &capturingPublisher{})
	defer s.Shutdown(context.Background())

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing user", `{"family_id": "fam-1", "text": "привет"}`, 400},
		{"missing text", `{"user_id": "u1", "family_id": "fam-1"}`, 400},
		{"blank text", `{"user_id": "u1", "family_id": "fam-1", "text": "   "}`, 400},
		{"garbage body", `{not json`, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := postJSON(t, s, "/api/v1/messages", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	req := httptest.NewRequest("GET", "/api/v1/messages", nil)
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	if w.Code != 405 {
		t.Errorf("GET status = %d, want 405", w.Code)
	}
}

func TestHandleMessage_PublishFailureDoesNotFailRequest(t *testing.T) {
	router := &fakeRouter{reply: dialog.Reply{Response: "ок", Domain: "general"}}
	pub := &capturingPublisher{err: errors.New("broker down")}
	s := testServer(router, pub)
	defer s.Shutdown(context.Background())

	w := postJSON(t, s, "/api/v1/messages", `{"user_id": "u1", "family_id": "fam-1", "text": "привет"}`)
	if w.Code != 200 {
		t.Errorf("status = %d, want 200 despite publish failure", w.Code)
	}
}

func TestHandleClearHistory(t *testing.T) {
	router := &fakeRouter{reply: dialog.Reply{Response: "ок", Domain: "general"}}
	s := testServer(router, &capturingPublisher{})
	defer s.Shutdown(context.Background())

	postJSON(t, s, "/api/v1/messages", `{"user_id": "u1", "family_id": "fam-1", "text": "первый"}`)
	if w := postJSON(t, s, "/api/v1/history/clear", `{"user_id": "u1", "family_id": "fam-1"}`); w.Code != 200 {
		t.Fatalf("clear status = %d, want 200", w.Code)
	}
	postJSON(t, s, "/api/v1/messages", `{"user_id": "u1", "family_id": "fam-1", "text": "второй"}`)
	if len(router.lastHistory) != 0 {
		t.Errorf("history after clear = %d messages, want 0", len(router.lastHistory))
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(&fakeRouter{}, &capturingPublisher{})
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("healthz status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}
