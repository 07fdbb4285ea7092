package types

// ProgressSnapshot is a point-in-time view of transfer progress, recomputed
// after every acknowledged chunk. Snapshots are immutable values; consumers
// (progress bar, IPC stream) may hold them without synchronization.
type ProgressSnapshot struct {
	// LoadedBytes is the number of envelope bytes acknowledged by the remote.
	LoadedBytes int64
	// TotalBytes is the total envelope length.
	TotalBytes int64
	// Percentage is LoadedBytes/TotalBytes*100, or 100 for an empty envelope.
	Percentage float64
	// IsFullBundle is true when the session carries a full (non-incremental)
	// git bundle.
	IsFullBundle bool
}

// OutcomeStatus classifies how a transfer session ended.
type OutcomeStatus string

const (
	// OutcomeDone means every chunk was acknowledged and finalize succeeded.
	OutcomeDone OutcomeStatus = "done"
	// OutcomeFailed means the session aborted; restart-safe via resume.
	OutcomeFailed OutcomeStatus = "failed"
)

// TransferOutcome is the terminal result of a session. A session yields
// exactly one outcome; there is no partial-success value.
type TransferOutcome struct {
	Status  OutcomeStatus
	Message string
}

// SessionMeta is the identity context attached to logs and metrics for a
// single transfer session.
type SessionMeta struct {
	// AgentID identifies the remote agent the workspace is handed to.
	AgentID string
	// SessionID uniquely identifies this transfer attempt.
	SessionID string
	// Attempt counts restarts, starting at 1.
	Attempt int
}
