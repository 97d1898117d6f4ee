package session

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/nexa/logging"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestStore(clock *fakeClock) *Store {
	return NewStore(WithClock(clock.Now), WithLogger(logging.Nop()))
}

func TestStore_CreateGetEnd(t *testing.T) {
	clock := &fakeClock{now: t0}
	s := newTestStore(clock)
	defer s.Close()

	st, err := s.Create()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(st.ID()); err != nil {
		t.Errorf("ID %q is not a UUID: %v", st.ID(), err)
	}
	got, ok := s.Get(st.ID())
	if !ok || got != st {
		t.Fatal("Get did not return the created session")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}

	s.End(st.ID())
	if _, ok := s.Get(st.ID()); ok {
		t.Error("session still present after End")
	}
	s.End("missing")
}

func TestStore_UniqueIDs(t *testing.T) {
	s := newTestStore(&fakeClock{now: t0})
	defer s.Close()
	a, _ := s.Create()
	b, _ := s.Create()
	if a.ID() == b.ID() {
		t.Error("IDs collide")
	}
}

func TestStore_Sweep(t *testing.T) {
	clock := &fakeClock{now: t0}
	s := newTestStore(clock)
	defer s.Close()

	idle, _ := s.Create()
	active, _ := s.Create()

	clock.now = t0.Add(20 * time.Minute)
	if _, ok := s.Get(active.ID()); !ok {
		t.Fatal("active session missing")
	}
	if active.LastSeen() != clock.now {
		t.Errorf("LastSeen = %v", active.LastSeen())
	}

	clock.now = t0.Add(30 * time.Minute)
	if n := s.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.Get(idle.ID()); ok {
		t.Error("idle session survived sweep")
	}
	if _, ok := s.Get(active.ID()); !ok {
		t.Error("active session swept")
	}
}
