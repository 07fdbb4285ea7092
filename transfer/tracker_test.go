package transfer

import (
	"errors"
	"sync"
	"testing"
)

func TestTracker_Exclusivity(t *testing.T) {
	tracker := NewTracker()

	handle, err := tracker.Acquire("agent-7f")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if !tracker.Active("agent-7f") {
		t.Error("agent should be active after Acquire")
	}

	if _, err := tracker.Acquire("agent-7f"); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Acquire error = %v, want ErrSessionActive", err)
	}

	// A different agent is unaffected.
	other, err := tracker.Acquire("agent-9c")
	if err != nil {
		t.Fatalf("Acquire for other agent failed: %v", err)
	}
	other.Release()

	handle.Release()
	if tracker.Active("agent-7f") {
		t.Error("agent should be inactive after Release")
	}

	if _, err := tracker.Acquire("agent-7f"); err != nil {
		t.Errorf("Acquire after Release failed: %v", err)
	}
}

func TestHandle_DoubleReleaseSafe(t *testing.T) {
	tracker := NewTracker()

	first, err := tracker.Acquire("agent-7f")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	first.Release()

	second, err := tracker.Acquire("agent-7f")
	if err != nil {
		t.Fatalf("re-Acquire failed: %v", err)
	}

	// Releasing the stale handle again must not free the new claim.
	first.Release()
	if !tracker.Active("agent-7f") {
		t.Error("stale double release freed a live claim")
	}
	second.Release()
}

func TestHandle_AgentID(t *testing.T) {
	tracker := NewTracker()
	handle, err := tracker.Acquire("agent-7f")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer handle.Release()

	if handle.AgentID() != "agent-7f" {
		t.Errorf("AgentID = %q", handle.AgentID())
	}
}

func TestTracker_ConcurrentAcquire(t *testing.T) {
	tracker := NewTracker()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan *Handle, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := tracker.Acquire("agent-7f"); err == nil {
				wins <- h
			}
		}()
	}
	wg.Wait()
	close(wins)

	var handles []*Handle
	for h := range wins {
		handles = append(handles, h)
	}
	if len(handles) != 1 {
		t.Fatalf("%d concurrent acquires succeeded, want 1", len(handles))
	}
	handles[0].Release()
}
