package cache

import (
	"context"
	"fmt"
	"time"

	"jarvis/internal/llm"
)

// History keeps the last turns of each user's conversation. Entries are
// scoped to family and user so two family members never see each other's
// dialogue context.
type History struct {
	cache *LRU[[]llm.Message]
	limit int
}

// NewHistory creates a history cache keeping up to limit turns per user.
// A turn is one user message plus one assistant reply.
func NewHistory(maxUsers, limit int, ttl time.Duration) *History {
	return &History{
		cache: NewLRU[[]llm.Message](maxUsers, ttl),
		limit: limit,
	}
}

// Recent returns up to n most recent turns for the user, oldest first.
// n <= 0 means the full kept window.
func (h *History) Recent(familyID, userID string, n int) []llm.Message {
	msgs, ok := h.cache.Get(historyKey(familyID, userID))
	if !ok {
		return nil
	}
	if n <= 0 || n*2 >= len(msgs) {
		return msgs
	}
	return msgs[len(msgs)-n*2:]
}

// Append records one completed turn and trims the window to the limit.
func (h *History) Append(familyID, userID, userText, reply string) {
	key := historyKey(familyID, userID)
	msgs, _ := h.cache.Get(key)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleModel, Content: reply},
	)
	if keep := h.limit * 2; len(msgs) > keep {
		msgs = msgs[len(msgs)-keep:]
	}
	h.cache.Set(key, msgs)
}

// StartJanitor runs periodic expired-entry cleanup until ctx is cancelled.
func (h *History) StartJanitor(ctx context.Context, interval time.Duration) {
	h.cache.StartJanitor(ctx, interval)
}

// Clear forgets the user's conversation.
func (h *History) Clear(familyID, userID string) {
	h.cache.Delete(historyKey(familyID, userID))
}

func historyKey(familyID, userID string) string {
	return fmt.Sprintf("%s:%s", familyID, userID)
}
