package transfer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pellucid-io/ferry/metrics"
	"github.com/pellucid-io/ferry/types"
)

// Report is the structured JSON report written by --report.
type Report struct {
	AgentID    string              `json:"agent_id"`
	SessionID  string              `json:"session_id"`
	Attempt    int                 `json:"attempt"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Envelope *ReportEnvelope   `json:"envelope"`
	Transfer *ReportTransfer   `json:"transfer"`
	Metrics  *metrics.Snapshot `json:"metrics"`
}

// ReportEnvelope holds envelope shape in the report.
type ReportEnvelope struct {
	TotalBytes    int64  `json:"total_bytes"`
	ChunkSize     int64  `json:"chunk_size"`
	TotalChunks   int64  `json:"total_chunks"`
	IsIncremental bool   `json:"is_incremental"`
	BaseCommitSHA string `json:"base_commit_sha,omitempty"`
	RemoteURL     string `json:"remote_url,omitempty"`
}

// ReportTransfer holds chunk loop stats in the report.
type ReportTransfer struct {
	ResumedFrom int64 `json:"resumed_from"`
	ChunksSent  int64 `json:"chunks_sent"`
}

// BuildReport composes a Report from a session result and metrics snapshot.
// The exitCode is the process exit code that will be returned to the caller.
func BuildReport(result *Result, meta types.SessionMeta, envMeta types.EnvelopeMetadata, snap metrics.Snapshot, exitCode int) *Report {
	return &Report{
		AgentID:    meta.AgentID,
		SessionID:  meta.SessionID,
		Attempt:    meta.Attempt,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Envelope: &ReportEnvelope{
			TotalBytes:    result.Plan.TotalLength,
			ChunkSize:     result.Plan.ChunkSize,
			TotalChunks:   result.Plan.TotalChunks,
			IsIncremental: envMeta.IsIncremental,
			BaseCommitSHA: envMeta.BaseCommitSHA,
			RemoteURL:     envMeta.RemoteURL,
		},
		Transfer: &ReportTransfer{
			ResumedFrom: result.ResumedFrom,
			ChunksSent:  result.ChunksSent,
		},
		Metrics: &snap,
	}
}

// WriteReport writes the report as indented JSON.
func WriteReport(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
