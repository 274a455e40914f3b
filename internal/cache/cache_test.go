package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string](4, time.Minute)
	c.Set("a", "1")

	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get = (%q, %v)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get hit for missing key")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[int](4, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry still served")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d after lazy expiry", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a, making b the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry was evicted")
	}
}

func TestDeletePrefix(t *testing.T) {
	c := New[int](8, time.Minute)
	c.Set("summary:mica", 1)
	c.Set("breakdown:mica", 2)
	c.Set("summary:bob", 3)

	if n := c.DeletePrefix("summary:"); n != 2 {
		t.Fatalf("DeletePrefix = %d, want 2", n)
	}
	if _, ok := c.Get("breakdown:mica"); !ok {
		t.Fatal("unrelated key dropped")
	}
}

func TestCleanExpired(t *testing.T) {
	c := New[int](8, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(25 * time.Millisecond)
	c.Set("c", 3)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("CleanExpired = %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}
