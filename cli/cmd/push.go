package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pellucid-io/ferry/artifact"
	"github.com/pellucid-io/ferry/backend"
	"github.com/pellucid-io/ferry/cli/config"
	"github.com/pellucid-io/ferry/cli/tui"
	"github.com/pellucid-io/ferry/envelope"
	"github.com/pellucid-io/ferry/ipc"
	"github.com/pellucid-io/ferry/log"
	"github.com/pellucid-io/ferry/metrics"
	"github.com/pellucid-io/ferry/notify"
	"github.com/pellucid-io/ferry/notify/redis"
	"github.com/pellucid-io/ferry/notify/webhook"
	"github.com/pellucid-io/ferry/transfer"
	"github.com/pellucid-io/ferry/types"
)

// Exit codes for the push command.
const (
	exitSuccess         = 0
	exitTransferFailed  = 1
	exitArtifactFailure = 2
	exitUsageError      = 3
)

// PushCommand returns the push command, the only command that executes work.
func PushCommand() *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Hand the local git workspace to a remote agent",
		Flags: []cli.Flag{
			ConfigFlag,
			QuietFlag,
			TUIFlag,
			&cli.StringFlag{
				Name:  "agent-id",
				Usage: "Target agent identifier",
			},
			&cli.StringFlag{
				Name:  "backend-url",
				Usage: "Backend base URL",
			},
			&cli.StringSliceFlag{
				Name:  "header",
				Usage: "Extra request header as 'Name: value' (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Project directory (defaults to the working directory)",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Bundle mode: full or incremental",
			},
			&cli.StringFlag{
				Name:  "staging-dir",
				Usage: "Directory for temporary artifact files",
			},
			&cli.Int64Flag{
				Name:  "chunk-size",
				Usage: "Envelope chunk size in bytes",
			},
			&cli.IntFlag{
				Name:  "attempt",
				Usage: "Attempt number (starts at 1)",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "progress-ipc",
				Usage: "Stream progress frames to stdout for an embedding process",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a JSON transfer report to this path ('-' for stdout)",
			},
			&cli.BoolFlag{
				Name:  "keep-artifacts",
				Usage: "Keep bundle and patch files after a successful transfer",
			},
		},
		Action: pushAction,
	}
}

// pushChoice holds the resolved push settings after merging config file
// values with flags (flags win).
type pushChoice struct {
	agentID    string
	backendURL string
	headers    map[string]string
	timeout    time.Duration
	projectDir string
	mode       string
	stagingDir string
	chunkSize  int64
	attempt    int
	notify     config.NotifyConfig
}

func pushAction(c *cli.Context) error {
	choice, err := resolvePush(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("ferry push: %v", err), exitUsageError)
	}
	if c.Bool("tui") && c.Bool("progress-ipc") {
		return cli.Exit("ferry push: --tui and --progress-ipc both own stdout; pick one", exitUsageError)
	}

	meta := types.SessionMeta{
		AgentID:   choice.agentID,
		SessionID: uuid.NewString(),
		Attempt:   choice.attempt,
	}
	logger := log.NewLogger(meta)
	collector := metrics.NewCollector(meta.AgentID, meta.SessionID, choice.mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Produce bundle and patch.
	set, err := artifact.Produce(ctx, choice.projectDir, artifact.Options{
		Mode:       artifact.Mode(choice.mode),
		StagingDir: choice.stagingDir,
		Logger:     logger.Sugar(),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("ferry push: artifact production failed: %v", err), exitArtifactFailure)
	}

	env, err := buildEnvelope(set)
	if err != nil {
		_ = artifact.Cleanup(set)
		return cli.Exit(fmt.Sprintf("ferry push: %v", err), exitArtifactFailure)
	}

	client, err := backend.New(backend.Config{
		BaseURL: choice.backendURL,
		Headers: choice.headers,
		Timeout: choice.timeout,
	})
	if err != nil {
		_ = artifact.Cleanup(set)
		return cli.Exit(fmt.Sprintf("ferry push: %v", err), exitUsageError)
	}
	defer func() { _ = client.Close() }()

	tracker := transfer.NewTracker()
	handle, err := tracker.Acquire(meta.AgentID)
	if err != nil {
		_ = artifact.Cleanup(set)
		return cli.Exit(fmt.Sprintf("ferry push: %v", err), exitUsageError)
	}
	defer handle.Release()

	result, runErr := runSession(ctx, c, choice, meta, env, client, logger, collector)
	if result == nil {
		_ = artifact.Cleanup(set)
		return cli.Exit(fmt.Sprintf("ferry push: %v", runErr), exitUsageError)
	}

	exitCode := exitSuccess
	if runErr != nil {
		exitCode = exitTransferFailed
	}

	// Artifacts survive a failed transfer so a retry resumes against
	// byte-identical sources.
	if runErr == nil && !c.Bool("keep-artifacts") {
		if err := artifact.Cleanup(set); err != nil {
			logger.Warn("artifact cleanup failed", map[string]any{"error": err.Error()})
		}
	}

	if path := c.String("report"); path != "" {
		if err := writeReport(path, result, meta, env.Metadata(), collector, exitCode); err != nil {
			logger.Warn("report write failed", map[string]any{"error": err.Error()})
		}
	}

	// Completion notification is best effort and never changes the outcome.
	if choice.notify.Type != "" {
		if err := publishNotification(choice.notify, result, meta, env.Metadata()); err != nil {
			logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
		}
	}

	if !c.Bool("quiet") {
		printPushResult(result, meta)
	}

	return cli.Exit("", exitCode)
}

// runSession executes the transfer, fanning progress out to the optional
// TUI and IPC consumers.
func runSession(
	ctx context.Context,
	c *cli.Context,
	choice pushChoice,
	meta types.SessionMeta,
	env *envelope.Envelope,
	client backend.Client,
	logger *log.Logger,
	collector *metrics.Collector,
) (*transfer.Result, error) {
	var sinks []func(types.ProgressSnapshot)

	var frames *ipc.FrameEncoder
	if c.Bool("progress-ipc") {
		frames = ipc.NewFrameEncoder(os.Stdout)
		sinks = append(sinks, func(snap types.ProgressSnapshot) {
			_ = frames.WriteProgress(snap)
		})
	}

	var feed *tui.Feed
	if c.Bool("tui") {
		feed = tui.NewFeed()
		sinks = append(sinks, feed.Progress)
	}

	sess, err := transfer.NewSession(transfer.Config{
		Meta:      meta,
		Envelope:  env,
		ChunkSize: choice.chunkSize,
		Backend:   client,
		Logger:    logger,
		Collector: collector,
		OnProgress: func(snap types.ProgressSnapshot) {
			for _, sink := range sinks {
				sink(snap)
			}
		},
	})
	if err != nil {
		return nil, err
	}

	var result *transfer.Result
	var runErr error
	if feed != nil {
		done := make(chan struct{})
		go func() {
			defer close(done)
			result, runErr = sess.Execute(ctx)
			feed.Finish(result.Outcome)
		}()
		if err := tui.RunTransferTUI(meta.AgentID, feed); err != nil {
			logger.Warn("progress view failed", map[string]any{"error": err.Error()})
		}
		<-done
	} else {
		result, runErr = sess.Execute(ctx)
	}

	if frames != nil {
		_ = frames.WriteResult(result.Outcome, result.ChunksSent)
	}
	return result, runErr
}

// buildEnvelope stats both artifacts and assembles the virtual document.
func buildEnvelope(set *types.ArtifactSet) (*envelope.Envelope, error) {
	bundleLen, err := artifact.ByteLength(set.BundlePath)
	if err != nil {
		return nil, err
	}
	patchLen, err := artifact.ByteLength(set.PatchPath)
	if err != nil {
		return nil, err
	}

	bundle := envelope.NewBinarySource(set.BundlePath, bundleLen)
	patch := envelope.NewBinarySource(set.PatchPath, patchLen)
	reader := envelope.NewAlignedReader(envelope.FileRegionEncoder{})
	return envelope.New(set.Metadata(), bundle, patch, reader), nil
}

// resolvePush merges the optional config file with flags; flags win.
func resolvePush(c *cli.Context) (pushChoice, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return pushChoice{}, err
		}
		cfg = loaded
	}

	choice := pushChoice{
		agentID:    cfg.AgentID,
		backendURL: cfg.Backend.URL,
		headers:    cfg.Backend.Headers,
		timeout:    cfg.Backend.Timeout.Duration,
		mode:       cfg.Bundle.Mode,
		stagingDir: cfg.Bundle.StagingDir,
		chunkSize:  cfg.Transfer.ChunkSize,
		attempt:    c.Int("attempt"),
		notify:     cfg.Notify,
	}

	if v := c.String("agent-id"); v != "" {
		choice.agentID = v
	}
	if v := c.String("backend-url"); v != "" {
		choice.backendURL = v
	}
	if v := c.Duration("timeout"); v != 0 {
		choice.timeout = v
	}
	if v := c.String("mode"); v != "" {
		choice.mode = v
	}
	if v := c.String("staging-dir"); v != "" {
		choice.stagingDir = v
	}
	if v := c.Int64("chunk-size"); v != 0 {
		choice.chunkSize = v
	}

	flagHeaders, err := parseHeaders(c.StringSlice("header"))
	if err != nil {
		return pushChoice{}, err
	}
	if len(flagHeaders) > 0 {
		if choice.headers == nil {
			choice.headers = make(map[string]string)
		}
		for name, value := range flagHeaders {
			choice.headers[name] = value
		}
	}

	choice.projectDir = c.String("dir")
	if choice.projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return pushChoice{}, fmt.Errorf("cannot determine working directory: %w", err)
		}
		choice.projectDir = cwd
	}

	if choice.agentID == "" {
		return pushChoice{}, fmt.Errorf("agent ID required (--agent-id or config agent_id)")
	}
	if choice.backendURL == "" {
		return pushChoice{}, fmt.Errorf("backend URL required (--backend-url or config backend.url)")
	}
	if choice.mode != "" && choice.mode != string(artifact.ModeFull) && choice.mode != string(artifact.ModeIncremental) {
		return pushChoice{}, fmt.Errorf("invalid mode %q (must be full or incremental)", choice.mode)
	}
	if choice.chunkSize < 0 {
		return pushChoice{}, fmt.Errorf("chunk size must be positive, got %d", choice.chunkSize)
	}
	if choice.attempt < 1 {
		choice.attempt = 1
	}

	return choice, nil
}

// parseHeaders parses repeated 'Name: value' flags.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, found := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected 'Name: value')", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// publishNotification builds the configured notifier and publishes the
// completion event. A dedicated context keeps the notification alive even
// when the session context was canceled by a signal.
func publishNotification(
	cfg config.NotifyConfig,
	result *transfer.Result,
	meta types.SessionMeta,
	envMeta types.EnvelopeMetadata,
) error {
	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = notifier.Close() }()

	event := &notify.TransferCompletedEvent{
		EventType:     notify.EventType,
		AgentID:       meta.AgentID,
		SessionID:     meta.SessionID,
		Attempt:       meta.Attempt,
		Outcome:       string(result.Outcome.Status),
		Message:       result.Outcome.Message,
		IsIncremental: envMeta.IsIncremental,
		TotalBytes:    result.Plan.TotalLength,
		TotalChunks:   result.Plan.TotalChunks,
		ChunksSent:    result.ChunksSent,
		ResumedFrom:   result.ResumedFrom,
		DurationMs:    result.Duration.Milliseconds(),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return notifier.Publish(ctx, event)
}

func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	switch cfg.Type {
	case "webhook":
		retries := webhook.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		retries := redis.DefaultRetries
		if cfg.Retries != nil {
			retries = *cfg.Retries
		}
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown notify type %q (must be webhook or redis)", cfg.Type)
	}
}

func writeReport(
	path string,
	result *transfer.Result,
	meta types.SessionMeta,
	envMeta types.EnvelopeMetadata,
	collector *metrics.Collector,
	exitCode int,
) error {
	report := transfer.BuildReport(result, meta, envMeta, collector.Snapshot(), exitCode)
	if path == "-" {
		return transfer.WriteReport(os.Stdout, report)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return transfer.WriteReport(f, report)
}

func printPushResult(result *transfer.Result, meta types.SessionMeta) {
	fmt.Printf("\nagent_id=%s, session_id=%s, attempt=%d, outcome=%s, duration=%s\n",
		meta.AgentID,
		meta.SessionID,
		meta.Attempt,
		result.Outcome.Status,
		result.Duration.Round(time.Millisecond),
	)
	fmt.Printf("chunks_sent=%d, resumed_from=%d, total_chunks=%d, total_bytes=%d\n",
		result.ChunksSent,
		result.ResumedFrom,
		result.Plan.TotalChunks,
		result.Plan.TotalLength,
	)
	if result.Outcome.Status == types.OutcomeFailed {
		fmt.Printf("message=%s\n", result.Outcome.Message)
	}
}
