// Package transfer implements the resumable transfer session: the
// sequential chunk loop that drives an envelope to the backend.
//
// A session is a single cooperative flow. Each network round trip is the
// only suspension point; chunk N+1 is never generated before chunk N's
// outcome is known. That bounds peak memory to one chunk and guarantees the
// remote's received count is always a contiguous prefix, which keeps resume
// arithmetic trivial.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/pellucid-io/ferry/backend"
	"github.com/pellucid-io/ferry/envelope"
	"github.com/pellucid-io/ferry/log"
	"github.com/pellucid-io/ferry/metrics"
	"github.com/pellucid-io/ferry/types"
)

// State is the session lifecycle state.
type State string

const (
	// StateIdle is the state before Execute is called.
	StateIdle State = "idle"
	// StateResuming is querying the remote for prior progress.
	StateResuming State = "resuming"
	// StateSending is the chunk loop.
	StateSending State = "sending"
	// StateFinalizing is the finalize round trip.
	StateFinalizing State = "finalizing"
	// StateDone is terminal success.
	StateDone State = "done"
	// StateFailed is terminal failure; restart-safe via resume.
	StateFailed State = "failed"
)

// Config configures a transfer session.
type Config struct {
	// Meta is the session identity (agent, session ID, attempt).
	Meta types.SessionMeta
	// Envelope is the virtual document to transmit.
	Envelope *envelope.Envelope
	// ChunkSize is the envelope chunk size (default envelope.DefaultChunkSize).
	ChunkSize int64
	// Backend is the remote endpoint client.
	Backend backend.Client
	// Logger carries session context. Required.
	Logger *log.Logger
	// Collector records transfer metrics. Optional (nil-safe).
	Collector *metrics.Collector
	// OnProgress receives a snapshot after resume and after every
	// acknowledged chunk. Optional. Called from the session goroutine;
	// must not block for long.
	OnProgress func(types.ProgressSnapshot)
}

// Result is the terminal result of a session.
type Result struct {
	// Outcome is done or failed; there is no partial success.
	Outcome types.TransferOutcome
	// Plan is the chunk plan the session executed against.
	Plan envelope.ChunkPlan
	// ResumedFrom is the chunk index the session started sending at.
	ResumedFrom int64
	// ChunksSent is the number of chunks acknowledged during this session.
	ChunksSent int64
	// Duration is the total session duration.
	Duration time.Duration
}

// Session drives one envelope to the backend for one agent. Create with
// NewSession, run with Execute. A session is single-use.
type Session struct {
	cfg   Config
	gen   *envelope.ChunkGenerator
	state State
	next  int64
}

// NewSession validates the config and prepares the chunk plan.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Meta.AgentID == "" {
		return nil, fmt.Errorf("session requires an agent ID")
	}
	if cfg.Envelope == nil {
		return nil, fmt.Errorf("session requires an envelope")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("session requires a backend client")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("session requires a logger")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = envelope.DefaultChunkSize
	}

	gen, err := envelope.NewChunkGenerator(cfg.Envelope, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	return &Session{cfg: cfg, gen: gen, state: StateIdle}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Execute runs the session to its terminal state.
//
// Flow: query the remote's received-chunk count (a failed query degrades to
// resume-from-0), send chunks sequentially from that index, then finalize.
// On success the result's outcome is done and err is nil. On any transport
// failure the session ends failed and err carries the cause; the caller may
// retry by running a fresh session, which resumes where the remote left off.
func (s *Session) Execute(ctx context.Context) (*Result, error) {
	start := time.Now()
	plan := s.gen.Plan()

	s.cfg.Collector.IncSessionStarted()
	s.cfg.Logger.Info("transfer started", map[string]any{
		"total_bytes":  plan.TotalLength,
		"total_chunks": plan.TotalChunks,
		"chunk_size":   plan.ChunkSize,
	})

	s.state = StateResuming
	resumedFrom := s.resumePoint(ctx, plan)
	s.next = resumedFrom
	s.cfg.Collector.AddChunksSkipped(resumedFrom)
	s.emitProgress(plan)

	s.state = StateSending
	var sent int64
	for s.next < plan.TotalChunks {
		chunk, err := s.gen.Chunk(s.next)
		if err != nil {
			return s.fail(start, plan, resumedFrom, sent, fmt.Errorf("generate chunk %d: %w", s.next, err))
		}

		req := &backend.ChunkRequest{
			ChunkIndex:  s.next,
			TotalChunks: plan.TotalChunks,
			Chunk:       chunk,
		}
		if err := s.cfg.Backend.SubmitChunk(ctx, s.cfg.Meta.AgentID, req); err != nil {
			return s.fail(start, plan, resumedFrom, sent, err)
		}

		// Advance strictly after acknowledgement.
		s.next++
		sent++
		s.cfg.Collector.IncChunkSent(int64(len(chunk)))
		s.emitProgress(plan)
	}

	s.state = StateFinalizing
	if err := s.cfg.Backend.Finalize(ctx, s.cfg.Meta.AgentID); err != nil {
		return s.fail(start, plan, resumedFrom, sent, err)
	}

	s.state = StateDone
	s.cfg.Collector.IncSessionDone()
	s.cfg.Logger.Info("transfer done", map[string]any{
		"chunks_sent":  sent,
		"resumed_from": resumedFrom,
		"duration_ms":  time.Since(start).Milliseconds(),
	})

	return &Result{
		Outcome:     types.TransferOutcome{Status: types.OutcomeDone, Message: "transfer completed"},
		Plan:        plan,
		ResumedFrom: resumedFrom,
		ChunksSent:  sent,
		Duration:    time.Since(start),
	}, nil
}

// resumePoint queries the remote for prior progress. A failed query is
// non-fatal: re-sending already-received chunks is harmless because delivery
// is idempotent by index, so the session degrades to resume-from-0.
func (s *Session) resumePoint(ctx context.Context, plan envelope.ChunkPlan) int64 {
	received, ok, err := s.cfg.Backend.QueryProgress(ctx, s.cfg.Meta.AgentID)
	if err != nil {
		s.cfg.Collector.IncProgressQueryFailure()
		s.cfg.Logger.Warn("progress query failed, resuming from 0", map[string]any{"error": err.Error()})
		return 0
	}
	if !ok {
		return 0
	}
	if received < 0 {
		s.cfg.Logger.Warn("remote reported negative chunk count, resuming from 0", map[string]any{"received": received})
		return 0
	}
	if received > plan.TotalChunks {
		// The remote cannot hold more chunks than this plan produces unless
		// a previous attempt ran with a different chunk size.
		s.cfg.Logger.Warn("remote chunk count exceeds plan, clamping", map[string]any{
			"received":     received,
			"total_chunks": plan.TotalChunks,
		})
		return plan.TotalChunks
	}
	return received
}

func (s *Session) fail(start time.Time, plan envelope.ChunkPlan, resumedFrom, sent int64, err error) (*Result, error) {
	s.state = StateFailed
	s.cfg.Collector.IncSessionFailed()
	s.cfg.Logger.Error("transfer failed", map[string]any{
		"error":       err.Error(),
		"next_chunk":  s.next,
		"chunks_sent": sent,
	})
	return &Result{
		Outcome:     types.TransferOutcome{Status: types.OutcomeFailed, Message: err.Error()},
		Plan:        plan,
		ResumedFrom: resumedFrom,
		ChunksSent:  sent,
		Duration:    time.Since(start),
	}, err
}

func (s *Session) emitProgress(plan envelope.ChunkPlan) {
	if s.cfg.OnProgress == nil {
		return
	}
	s.cfg.OnProgress(s.snapshot(plan))
}

// snapshot recomputes progress from the acknowledged prefix.
func (s *Session) snapshot(plan envelope.ChunkPlan) types.ProgressSnapshot {
	loaded := s.next * plan.ChunkSize
	if loaded > plan.TotalLength {
		loaded = plan.TotalLength
	}
	pct := 100.0
	if plan.TotalLength > 0 {
		pct = float64(loaded) / float64(plan.TotalLength) * 100
	}
	return types.ProgressSnapshot{
		LoadedBytes:  loaded,
		TotalBytes:   plan.TotalLength,
		Percentage:   pct,
		IsFullBundle: !s.cfg.Envelope.Metadata().IsIncremental,
	}
}
