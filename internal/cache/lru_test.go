package cache

import (
	"testing"
	"time"
)

func TestLRUCache_SetGet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](8, time.Minute)

	c.Set("family:f1:2026-01", 1)
	c.Set("family:f1:2026-02", 2)
	c.Set("family:f2:2026-01", 3)
	c.Set("personal:u1:2026-01", 4)

	removed := c.DeletePrefix("family:f1:")
	if removed != 2 {
		t.Fatalf("DeletePrefix removed %d entries, want 2", removed)
	}
	if _, ok := c.Get("family:f1:2026-01"); ok {
		t.Fatal("expected family:f1 entries gone")
	}
	if _, ok := c.Get("family:f2:2026-01"); !ok {
		t.Fatal("expected family:f2 entry to remain")
	}
	if _, ok := c.Get("personal:u1:2026-01"); !ok {
		t.Fatal("expected personal entry to remain")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired() = %d, want 2", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after cleanup, want 0", c.Size())
	}
}
