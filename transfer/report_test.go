package transfer

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/pellucid-io/ferry/envelope"
	"github.com/pellucid-io/ferry/metrics"
	"github.com/pellucid-io/ferry/types"
)

func TestBuildReport(t *testing.T) {
	result := &Result{
		Outcome:     types.TransferOutcome{Status: types.OutcomeDone, Message: "transfer completed"},
		Plan:        envelope.ChunkPlan{ChunkSize: 8, TotalLength: 90, TotalChunks: 12},
		ResumedFrom: 2,
		ChunksSent:  10,
		Duration:    1500 * time.Millisecond,
	}
	envMeta := types.EnvelopeMetadata{
		IsIncremental: true,
		BaseCommitSHA: "abc123",
		RemoteURL:     "https://github.com/pellucid-io/ferry",
	}

	collector := metrics.NewCollector("agent-7f", "session-001", "incremental")
	collector.IncSessionStarted()
	collector.IncSessionDone()

	report := BuildReport(result, testMeta(), envMeta, collector.Snapshot(), 0)

	if report.AgentID != "agent-7f" || report.SessionID != "session-001" || report.Attempt != 1 {
		t.Errorf("identity = %s/%s/%d", report.AgentID, report.SessionID, report.Attempt)
	}
	if report.Outcome != types.OutcomeDone {
		t.Errorf("outcome = %s", report.Outcome)
	}
	if report.ExitCode != 0 {
		t.Errorf("exit code = %d", report.ExitCode)
	}
	if report.DurationMs != 1500 {
		t.Errorf("duration = %d ms", report.DurationMs)
	}
	if report.Envelope.TotalChunks != 12 || !report.Envelope.IsIncremental {
		t.Errorf("envelope section = %+v", report.Envelope)
	}
	if report.Envelope.BaseCommitSHA != "abc123" {
		t.Errorf("base commit = %q", report.Envelope.BaseCommitSHA)
	}
	if report.Transfer.ResumedFrom != 2 || report.Transfer.ChunksSent != 10 {
		t.Errorf("transfer section = %+v", report.Transfer)
	}
	if report.Metrics.SessionsDone != 1 {
		t.Errorf("metrics section = %+v", report.Metrics)
	}
}

func TestWriteReport(t *testing.T) {
	result := &Result{
		Outcome:    types.TransferOutcome{Status: types.OutcomeFailed, Message: "submit chunk 3/5: unexpected status 503"},
		Plan:       envelope.ChunkPlan{ChunkSize: 8, TotalLength: 40, TotalChunks: 5},
		ChunksSent: 3,
	}
	report := BuildReport(result, testMeta(), types.EnvelopeMetadata{}, metrics.Snapshot{}, 1)

	var buf bytes.Buffer
	if err := WriteReport(&buf, report); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded["outcome"] != string(types.OutcomeFailed) {
		t.Errorf("outcome = %v", decoded["outcome"])
	}
	if decoded["exit_code"] != float64(1) {
		t.Errorf("exit_code = %v", decoded["exit_code"])
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Error("report should be indented")
	}

	// Optional envelope metadata is omitted when empty.
	envSection := decoded["envelope"].(map[string]any)
	if _, ok := envSection["base_commit_sha"]; ok {
		t.Error("empty base_commit_sha should be omitted")
	}
}
