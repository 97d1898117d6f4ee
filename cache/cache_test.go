package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestKey_SourceOrderIndependent(t *testing.T) {
	a := Key("gravity", "balanced", []string{"web_search", "wikipedia"})
	b := Key("gravity", "balanced", []string{"wikipedia", "web_search"})
	if a != b {
		t.Error("key must not depend on source order")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %q", a)
	}
}

func TestKey_Distinguishes(t *testing.T) {
	base := Key("gravity", "balanced", []string{"web_search"})
	others := []string{
		Key("Gravity", "balanced", []string{"web_search"}),
		Key("gravity", "quick", []string{"web_search"}),
		Key("gravity", "balanced", []string{"wikipedia"}),
		Key("gravity", "balanced", nil),
	}
	for i, k := range others {
		if k == base {
			t.Errorf("case %d collides with base key", i)
		}
	}
}

func TestCache_MissThenHit(t *testing.T) {
	c := New[string](DefaultTTL)
	sources := []string{"web_search"}

	if _, ok := c.Get("q", "balanced", sources); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("q", "balanced", sources, "answer")
	got, ok := c.Get("q", "balanced", sources)
	if !ok || got != "answer" {
		t.Errorf("Get = %q, %v", got, ok)
	}
}

func TestCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New[int](30*time.Minute, WithClock(clock.now))
	sources := []string{"arxiv_search", "wikipedia"}

	c.Set("q", "deep", sources, 42)

	clock.advance(29 * time.Minute)
	if v, ok := c.Get("q", "deep", []string{"wikipedia", "arxiv_search"}); !ok || v != 42 {
		t.Fatalf("expected hit at T+29m, got %v, %v", v, ok)
	}

	clock.advance(2 * time.Minute)
	if _, ok := c.Get("q", "deep", sources); ok {
		t.Fatal("expected miss at T+31m")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be purged on lookup, Len = %d", c.Len())
	}
}

func TestCache_ClearAndLen(t *testing.T) {
	c := New[string](0)
	if c.TTL() != DefaultTTL {
		t.Errorf("TTL = %v", c.TTL())
	}
	c.Set("a", "quick", nil, "1")
	c.Set("b", "quick", nil, "2")
	c.Set("a", "quick", nil, "3")
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}
