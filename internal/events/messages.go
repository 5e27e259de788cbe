// Package events publishes dialogue events to RabbitMQ. A sidecar consumes
// them for similarity search over past conversations; the engine only owns
// the event contract and the publish side.
package events

import (
	"encoding/json"
	"time"
)

// DialogueEvent describes one routed message and its outcome.
type DialogueEvent struct {
	UserID     string         `json:"user_id"`
	FamilyID   string         `json:"family_id,omitempty"`
	Text       string         `json:"text"`
	Response   string         `json:"response"`
	Domain     string         `json:"domain"`
	Intent     string         `json:"intent,omitempty"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewDialogueEvent stamps an event with the current time.
func NewDialogueEvent(userID, familyID, text, response, domain, intent string, confidence float64, metadata map[string]any) *DialogueEvent {
	return &DialogueEvent{
		UserID:     userID,
		FamilyID:   familyID,
		Text:       text,
		Response:   response,
		Domain:     domain,
		Intent:     intent,
		Confidence: confidence,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *DialogueEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// DialogueEventFromJSON parses an event from JSON bytes.
func DialogueEventFromJSON(data []byte) (*DialogueEvent, error) {
	var e DialogueEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
