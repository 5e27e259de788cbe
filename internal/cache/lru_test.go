package cache

import (
	"testing"
	"time"
)

func TestLRU_GetSet(t *testing.T) {
	c := NewLRU[string](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) = ok, want miss")
	}

	c.Set("a", "1")
	if got, ok := c.Get("a"); !ok || got != "1" {
		t.Errorf("Get(a) = %q, %v, want 1, true", got, ok)
	}

	c.Set("a", "2")
	if got, _ := c.Get("a"); got != "2" {
		t.Errorf("Get(a) after overwrite = %q, want 2", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes the eviction candidate
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry still served")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after expired read, want 0", c.Size())
	}
}

func TestLRU_CleanExpired(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)

	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if got := c.CleanExpired(); got != 2 {
		t.Errorf("CleanExpired() = %d, want 2", got)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry removed by cleanup")
	}
}

func TestHistory_Window(t *testing.T) {
	h := NewHistory(10, 2, time.Minute)

	h.Append("fam-1", "u1", "q1", "a1")
	h.Append("fam-1", "u1", "q2", "a2")
	h.Append("fam-1", "u1", "q3", "a3")

	msgs := h.Recent("fam-1", "u1", 0)
	if len(msgs) != 4 {
		t.Fatalf("len(Recent) = %d, want 4 (window of 2 turns)", len(msgs))
	}
	if msgs[0].Content != "q2" || msgs[3].Content != "a3" {
		t.Errorf("window = [%s .. %s], want [q2 .. a3]", msgs[0].Content, msgs[3].Content)
	}

	one := h.Recent("fam-1", "u1", 1)
	if len(one) != 2 || one[0].Content != "q3" {
		t.Errorf("Recent(n=1) = %v, want the last turn only", one)
	}
}

func TestHistory_ScopedPerUser(t *testing.T) {
	h := NewHistory(10, 5, time.Minute)
	h.Append("fam-1", "u1", "q", "a")

	if got := h.Recent("fam-1", "u2", 0); got != nil {
		t.Errorf("Recent for another user = %v, want nil", got)
	}
	if got := h.Recent("fam-2", "u1", 0); got != nil {
		t.Errorf("Recent for another family = %v, want nil", got)
	}

	h.Clear("fam-1", "u1")
	if got := h.Recent("fam-1", "u1", 0); got != nil {
		t.Errorf("Recent after Clear = %v, want nil", got)
	}
}
