package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `agent_id: agent-7f

backend:
  url: https://backend.example.com/api
  headers:
    Authorization: Bearer token123
  timeout: 30s

transfer:
  chunk_size: 524288

bundle:
  mode: full
  staging_dir: /tmp/ferry-staging
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "agent_id", cfg.AgentID, "agent-7f")

	assertEqual(t, "backend.url", cfg.Backend.URL, "https://backend.example.com/api")
	if cfg.Backend.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}
	if cfg.Backend.Timeout.Duration != 30*time.Second {
		t.Errorf("expected backend.timeout=30s, got %v", cfg.Backend.Timeout.Duration)
	}

	if cfg.Transfer.ChunkSize != 524288 {
		t.Errorf("expected chunk_size=524288, got %d", cfg.Transfer.ChunkSize)
	}

	assertEqual(t, "bundle.mode", cfg.Bundle.Mode, "full")
	assertEqual(t, "bundle.staging_dir", cfg.Bundle.StagingDir, "/tmp/ferry-staging")
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AgentID != "" {
		t.Errorf("expected empty agent_id, got %q", cfg.AgentID)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/ferry.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_AGENT_ID", "expanded-agent")

	yaml := `agent_id: ${TEST_AGENT_ID}`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "agent_id", cfg.AgentID, "expanded-agent")
}

func TestLoad_EnvExpansionDefault(t *testing.T) {
	yaml := `backend:
  url: ${FERRY_TEST_UNSET_URL:-https://fallback.example.com}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "backend.url", cfg.Backend.URL, "https://fallback.example.com")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `agent_id: agent-7f
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `backend:
  url: https://example.com
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
	if cfg.AgentID != "" {
		t.Errorf("expected empty agent_id, got %q", cfg.AgentID)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
	if cfg.AgentID != "" {
		t.Errorf("expected empty agent_id, got %q", cfg.AgentID)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `backend:
  timeout: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	yaml := `backend:
  url: https://example.com
  timeout: ""
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.Timeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Backend.Timeout.Duration)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	yaml := `backend:
  timeout: 30s
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.Timeout.Duration != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Backend.Timeout.Duration)
	}
}

func TestLoad_WebhookNotifyConfig(t *testing.T) {
	yaml := `notify:
  type: webhook
  url: https://hooks.example.com/ferry
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "notify.type", cfg.Notify.Type, "webhook")
	assertEqual(t, "notify.url", cfg.Notify.URL, "https://hooks.example.com/ferry")
	if cfg.Notify.Timeout.Duration != 10*time.Second {
		t.Errorf("expected notify.timeout=10s, got %v", cfg.Notify.Timeout.Duration)
	}
	if cfg.Notify.Retries == nil || *cfg.Notify.Retries != 3 {
		t.Errorf("expected notify.retries=3")
	}
	if cfg.Notify.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}
}

func TestLoad_RedisNotifyConfig(t *testing.T) {
	yaml := `notify:
  type: redis
  url: redis://localhost:6379/0
  channel: ferry:transfer_completed
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "notify.type", cfg.Notify.Type, "redis")
	assertEqual(t, "notify.url", cfg.Notify.URL, "redis://localhost:6379/0")
	assertEqual(t, "notify.channel", cfg.Notify.Channel, "ferry:transfer_completed")
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	// retries: 0 should parse as *int(0), not nil.
	yaml := `notify:
  type: webhook
  url: https://example.com
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Notify.Retries == nil {
		t.Fatal("expected retries to be non-nil (*int(0)), got nil")
	}
	if *cfg.Notify.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Notify.Retries)
	}
}

func TestLoad_RetriesOmittedIsNil(t *testing.T) {
	yaml := `notify:
  type: webhook
  url: https://example.com
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Notify.Retries != nil {
		t.Errorf("expected retries to be nil, got %d", *cfg.Notify.Retries)
	}
}

func TestLoad_IncrementalBundleMode(t *testing.T) {
	yaml := `bundle:
  mode: incremental
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "bundle.mode", cfg.Bundle.Mode, "incremental")
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ferry.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
