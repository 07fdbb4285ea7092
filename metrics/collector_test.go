package metrics

import (
	"sync"
	"testing"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.IncSessionStarted()
	c.IncSessionDone()
	c.IncSessionFailed()
	c.IncChunkSent(1024)
	c.AddChunksSkipped(3)
	c.IncProgressQueryFailure()

	if snap := c.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("nil Snapshot = %+v, want zero", snap)
	}
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("agent-7f", "session-001", "incremental")

	c.IncSessionStarted()
	c.AddChunksSkipped(2)
	c.IncChunkSent(1024)
	c.IncChunkSent(512)
	c.IncProgressQueryFailure()
	c.IncSessionDone()

	snap := c.Snapshot()
	if snap.SessionsStarted != 1 || snap.SessionsDone != 1 || snap.SessionsFailed != 0 {
		t.Errorf("lifecycle = %d/%d/%d", snap.SessionsStarted, snap.SessionsDone, snap.SessionsFailed)
	}
	if snap.ChunksSent != 2 {
		t.Errorf("ChunksSent = %d, want 2", snap.ChunksSent)
	}
	if snap.BytesSent != 1536 {
		t.Errorf("BytesSent = %d, want 1536", snap.BytesSent)
	}
	if snap.ChunksSkipped != 2 {
		t.Errorf("ChunksSkipped = %d, want 2", snap.ChunksSkipped)
	}
	if snap.ProgressQueryFailures != 1 {
		t.Errorf("ProgressQueryFailures = %d, want 1", snap.ProgressQueryFailures)
	}
}

func TestCollectorDimensions(t *testing.T) {
	c := NewCollector("agent-7f", "session-001", "full")
	snap := c.Snapshot()
	if snap.AgentID != "agent-7f" || snap.SessionID != "session-001" || snap.Mode != "full" {
		t.Errorf("dimensions = %s/%s/%s", snap.AgentID, snap.SessionID, snap.Mode)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	c := NewCollector("a", "s", "full")
	c.IncChunkSent(10)
	before := c.Snapshot()
	c.IncChunkSent(10)
	if before.ChunksSent != 1 {
		t.Errorf("snapshot mutated after capture: %d", before.ChunksSent)
	}
}

func TestCollectorConcurrency(t *testing.T) {
	c := NewCollector("a", "s", "full")

	const workers = 16
	const perWorker = 100
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				c.IncChunkSent(1)
			}
		}()
	}
	wg.Wait()

	if snap := c.Snapshot(); snap.ChunksSent != workers*perWorker {
		t.Errorf("ChunksSent = %d, want %d", snap.ChunksSent, workers*perWorker)
	}
}
