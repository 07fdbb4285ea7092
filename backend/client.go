// Package backend implements the HTTP client for the per-agent workspace
// endpoints: progress query, chunk submit, and finalize.
//
// The client performs exactly one request per call. Chunk submission is not
// retried here: chunks are cheap to regenerate, so the session layer's
// resume is the retry mechanism. The remote treats chunk delivery and
// finalize as idempotent, which makes resume-from-anywhere safe.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pellucid-io/ferry/iox"
)

// DefaultTimeout is the default per-request timeout. Chunk uploads carry up
// to a megabyte of payload, so this is more generous than a control call
// would need.
const DefaultTimeout = 60 * time.Second

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend root, e.g. "https://api.example.com" (required).
	BaseURL string
	// Headers are custom HTTP headers added to each request (auth tokens
	// and the like pass through opaquely).
	Headers map[string]string
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
}

// Client is the remote endpoint surface consumed by a transfer session.
// Implementations must be safe for sequential use by one session.
type Client interface {
	// QueryProgress returns the number of chunks the remote already holds
	// for the agent. ok is false when the remote reports no prior progress.
	QueryProgress(ctx context.Context, agentID string) (received int64, ok bool, err error)

	// SubmitChunk delivers one envelope chunk. The remote must treat an
	// already-received chunkIndex as a harmless no-op.
	SubmitChunk(ctx context.Context, agentID string, req *ChunkRequest) error

	// Finalize tells the remote every chunk has been delivered. The remote
	// reassembles the envelope, validates it as JSON, and extracts both
	// binaries. Idempotent.
	Finalize(ctx context.Context, agentID string) error

	// Close releases client resources.
	Close() error
}

// ChunkRequest is the chunk submission payload.
type ChunkRequest struct {
	ChunkIndex  int64  `json:"chunkIndex"`
	TotalChunks int64  `json:"totalChunks"`
	Chunk       string `json:"chunk"`
}

// progressResponse is the progress query payload. ChunksReceived is a
// pointer because an absent field means "no progress recorded".
type progressResponse struct {
	ChunksReceived *int64 `json:"chunksReceived"`
}

// StatusError is returned for non-2xx HTTP responses. Carrying the status
// code lets callers distinguish client mistakes (4xx) from remote trouble
// (5xx) in logs, though the session treats both as a Failed transfer.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// HTTPClient talks to the backend over HTTP. Create with New.
type HTTPClient struct {
	config Config
	client *http.Client
}

// New creates a backend client from the given config.
// Returns an error if the base URL is empty or unparsable.
func New(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend client requires a base URL")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// QueryProgress implements Client.
func (c *HTTPClient) QueryProgress(ctx context.Context, agentID string) (int64, bool, error) {
	body, err := c.do(ctx, http.MethodGet, c.endpoint(agentID, "progress"), nil)
	if err != nil {
		return 0, false, fmt.Errorf("query progress: %w", err)
	}

	var resp progressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false, fmt.Errorf("query progress: decode response: %w", err)
	}
	if resp.ChunksReceived == nil {
		return 0, false, nil
	}
	return *resp.ChunksReceived, true, nil
}

// SubmitChunk implements Client.
func (c *HTTPClient) SubmitChunk(ctx context.Context, agentID string, req *ChunkRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("submit chunk %d: marshal: %w", req.ChunkIndex, err)
	}
	if _, err := c.do(ctx, http.MethodPost, c.endpoint(agentID, "chunks"), payload); err != nil {
		return fmt.Errorf("submit chunk %d/%d: %w", req.ChunkIndex, req.TotalChunks, err)
	}
	return nil
}

// Finalize implements Client.
func (c *HTTPClient) Finalize(ctx context.Context, agentID string) error {
	if _, err := c.do(ctx, http.MethodPost, c.endpoint(agentID, "finalize"), []byte("{}")); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// Close releases client resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) endpoint(agentID, leaf string) string {
	return fmt.Sprintf("%s/agents/%s/workspace/%s", c.config.BaseURL, url.PathEscape(agentID), leaf)
}

// do performs a single request and returns the response body on 2xx.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return body, nil
}

// Verify HTTPClient implements the client interface.
var _ Client = (*HTTPClient)(nil)
