// Package metrics provides per-session transfer metrics collection.
//
// The Collector accumulates counters during a single transfer session. It is
// a leaf package with no internal dependencies. All increment methods are
// nil-receiver safe so callers can run without metrics wired.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of transfer metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Chunk accounting
	ChunksSent    int64
	ChunksSkipped int64 // already held by the remote at resume
	BytesSent     int64

	// Session lifecycle
	SessionsStarted int64
	SessionsDone    int64
	SessionsFailed  int64

	// Degraded paths
	ProgressQueryFailures int64

	// Dimensions (informational, set at construction)
	AgentID   string
	SessionID string
	Mode      string // "full" or "incremental"
}

// Collector accumulates metrics during a single transfer session.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	chunksSent    int64
	chunksSkipped int64
	bytesSent     int64

	sessionsStarted int64
	sessionsDone    int64
	sessionsFailed  int64

	progressQueryFailures int64

	agentID   string
	sessionID string
	mode      string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(agentID, sessionID, mode string) *Collector {
	return &Collector{
		agentID:   agentID,
		sessionID: sessionID,
		mode:      mode,
	}
}

// IncSessionStarted records a session entering the Resuming state.
func (c *Collector) IncSessionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionsStarted++
}

// IncSessionDone records a session reaching Done.
func (c *Collector) IncSessionDone() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionsDone++
}

// IncSessionFailed records a session reaching Failed.
func (c *Collector) IncSessionFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionsFailed++
}

// IncChunkSent records one acknowledged chunk of the given size.
func (c *Collector) IncChunkSent(bytes int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunksSent++
	c.bytesSent += bytes
}

// AddChunksSkipped records chunks the remote already held at resume.
func (c *Collector) AddChunksSkipped(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunksSkipped += n
}

// IncProgressQueryFailure records a degraded resume (query failed,
// resuming from 0).
func (c *Collector) IncProgressQueryFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progressQueryFailures++
}

// Snapshot returns an immutable copy of all counters and dimensions.
// Safe to call on a nil Collector (returns the zero Snapshot).
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ChunksSent:            c.chunksSent,
		ChunksSkipped:         c.chunksSkipped,
		BytesSent:             c.bytesSent,
		SessionsStarted:       c.sessionsStarted,
		SessionsDone:          c.sessionsDone,
		SessionsFailed:        c.sessionsFailed,
		ProgressQueryFailures: c.progressQueryFailures,
		AgentID:               c.agentID,
		SessionID:             c.sessionID,
		Mode:                  c.mode,
	}
}
