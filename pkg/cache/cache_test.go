package cache

import (
	"testing"
	"time"
)

func TestGetAfterSet(t *testing.T) {
	c := New(16, time.Minute)

	c.Set("overview:store1", 42, time.Minute)

	got, ok := c.Get("overview:store1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.(int) != 42 {
		t.Fatalf("got %v, want 42", got)
	}
}

func TestGetExpired(t *testing.T) {
	c := New(16, time.Minute)

	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestClearPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		removed int
		remain  []string
	}{
		{
			name:    "store wildcard",
			pattern: "logs:store1:*",
			removed: 2,
			remain:  []string{"logs:store2:page:1", "dashboard:store1:overview"},
		},
		{
			name:    "question mark",
			pattern: "logs:store?:page:1",
			removed: 2,
			remain:  []string{"logs:store1:page:2", "dashboard:store1:overview"},
		},
		{
			name:    "no match",
			pattern: "stats:*",
			removed: 0,
			remain:  []string{"logs:store1:page:1", "logs:store1:page:2", "logs:store2:page:1", "dashboard:store1:overview"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(16, time.Minute)
			c.Set("logs:store1:page:1", 1, time.Minute)
			c.Set("logs:store1:page:2", 2, time.Minute)
			c.Set("logs:store2:page:1", 3, time.Minute)
			c.Set("dashboard:store1:overview", 4, time.Minute)

			if got := c.Clear(tt.pattern); got != tt.removed {
				t.Fatalf("Clear(%q) removed %d, want %d", tt.pattern, got, tt.removed)
			}
			for _, key := range tt.remain {
				if _, ok := c.Get(key); !ok {
					t.Fatalf("key %q should have survived Clear(%q)", key, tt.pattern)
				}
			}
		})
	}
}

func TestCapacityEvictsOldestInserted(t *testing.T) {
	c := New(2, time.Minute)

	c.Set("first", 1, time.Minute)
	c.Set("second", 2, time.Minute)

	// Touching "first" must not protect it: eviction is insertion-order, not LRU.
	if _, ok := c.Get("first"); !ok {
		t.Fatal("expected first to be present")
	}

	c.Set("third", 3, time.Minute)

	if _, ok := c.Get("first"); ok {
		t.Fatal("oldest-inserted entry should have been evicted")
	}
	if _, ok := c.Get("second"); !ok {
		t.Fatal("second should have survived")
	}
	if _, ok := c.Get("third"); !ok {
		t.Fatal("third should have been inserted")
	}
}

func TestSetExistingKeyDoesNotEvict(t *testing.T) {
	c := New(2, time.Minute)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("a", 10, time.Minute)

	if c.Len() != 2 {
		t.Fatalf("len=%d, want 2", c.Len())
	}
	got, _ := c.Get("a")
	if got.(int) != 10 {
		t.Fatalf("got %v, want overwritten value 10", got)
	}
}

func TestInvalidateStore(t *testing.T) {
	c := New(16, time.Minute)
	c.Set("logs:store1:page:1", 1, time.Minute)
	c.Set("stats:store1:today", 2, time.Minute)
	c.Set("dashboard:store1:overview", 3, time.Minute)
	c.Set("logs:store2:page:1", 4, time.Minute)

	InvalidateStore(c, "store1")

	for _, key := range []string{"logs:store1:page:1", "stats:store1:today", "dashboard:store1:overview"} {
		if _, ok := c.Get(key); ok {
			t.Fatalf("key %q should have been invalidated", key)
		}
	}
	if _, ok := c.Get("logs:store2:page:1"); !ok {
		t.Fatal("other store's entries must survive")
	}
}
