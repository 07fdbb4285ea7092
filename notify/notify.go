// Package notify defines the completion-notification boundary.
//
// Notifiers publish transfer completion events to downstream systems, e.g.
// the scheduler that provisioned the agent machine. The push command owns
// notifier lifecycle; users provide configuration only.
package notify

import "context"

// EventType is the event type value for all completion events.
const EventType = "workspace_transfer_completed"

// TransferCompletedEvent is the payload published when a transfer reaches a
// terminal state.
type TransferCompletedEvent struct {
	EventType     string `json:"event_type"` // always "workspace_transfer_completed"
	AgentID       string `json:"agent_id"`
	SessionID     string `json:"session_id"`
	Attempt       int    `json:"attempt"`
	Outcome       string `json:"outcome"` // done, failed
	Message       string `json:"message,omitempty"`
	IsIncremental bool   `json:"is_incremental"`
	TotalBytes    int64  `json:"total_bytes"`
	TotalChunks   int64  `json:"total_chunks"`
	ChunksSent    int64  `json:"chunks_sent"`
	ResumedFrom   int64  `json:"resumed_from"`
	DurationMs    int64  `json:"duration_ms"`
	Timestamp     string `json:"timestamp"` // ISO 8601
}

// Notifier publishes transfer completion events to a downstream system.
// Implementations must be safe for single-use per session.
type Notifier interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransferCompletedEvent) error

	// Close releases notifier resources.
	Close() error
}
