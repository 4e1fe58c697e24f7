package registry

import (
	"fmt"
	"sync"
	"testing"
)

type fakeConn struct {
	id string
}

func (f *fakeConn) Send(event string, payload any) error {
	return nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	conn := &fakeConn{id: "a"}

	r.Register("user-1", conn)

	got, ok := r.Lookup("user-1")
	if !ok {
		t.Fatal("expected user-1 to be registered")
	}
	if got != conn {
		t.Error("lookup returned a different connection")
	}

	if _, ok := r.Lookup("user-2"); ok {
		t.Error("expected user-2 to be absent")
	}
}

func TestReRegistrationReplacesHandle(t *testing.T) {
	r := New()
	first := &fakeConn{id: "first"}
	second := &fakeConn{id: "second"}

	r.Register("user-1", first)
	r.Register("user-1", second)

	got, ok := r.Lookup("user-1")
	if !ok {
		t.Fatal("expected user-1 to be registered")
	}
	if got != second {
		t.Error("expected the most recent registration to win")
	}
	if r.Len() != 1 {
		t.Errorf("expected one entry, got %d", r.Len())
	}
}

func TestUnregisterByValue(t *testing.T) {
	r := New()
	conn := &fakeConn{id: "a"}

	r.Register("user-1", conn)
	r.Unregister(conn)

	if _, ok := r.Lookup("user-1"); ok {
		t.Error("expected user-1 entry to be removed")
	}
}

func TestUnregisterStaleHandleKeepsNewRegistration(t *testing.T) {
	r := New()
	stale := &fakeConn{id: "stale"}
	current := &fakeConn{id: "current"}

	r.Register("user-1", stale)
	r.Register("user-1", current)
	// The stale connection disconnects after being replaced.
	r.Unregister(stale)

	got, ok := r.Lookup("user-1")
	if !ok {
		t.Fatal("expected user-1 to remain registered")
	}
	if got != current {
		t.Error("expected the current handle to survive a stale unregister")
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(3)
		userID := fmt.Sprintf("user-%d", i%10)
		conn := &fakeConn{id: fmt.Sprintf("conn-%d", i)}

		go func() {
			defer wg.Done()
			r.Register(userID, conn)
		}()
		go func() {
			defer wg.Done()
			r.Lookup(userID)
		}()
		go func() {
			defer wg.Done()
			r.Unregister(conn)
		}()
	}
	wg.Wait()

	// The exact surviving set depends on interleaving; the invariant is that
	// no user maps to a nil handle and the map stayed consistent.
	for i := 0; i < 10; i++ {
		if conn, ok := r.Lookup(fmt.Sprintf("user-%d", i)); ok && conn == nil {
			t.Error("registry returned a nil handle")
		}
	}
}
