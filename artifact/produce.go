// Package artifact produces the two handoff artifacts for a git working
// copy: a bundle of the repository history (full or incremental) and a patch
// of uncommitted changes. Generation is non-invasive — the repository's
// staging area, refs, and working tree are never mutated.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/pellucid-io/ferry/log"
	"github.com/pellucid-io/ferry/types"
)

// Mode selects the bundling strategy.
type Mode string

const (
	// ModeFull bundles the entire history (--all).
	ModeFull Mode = "full"
	// ModeIncremental bundles only commits since the remote merge-base,
	// falling back to a full bundle when no merge-base can be found or the
	// incremental bundle fails.
	ModeIncremental Mode = "incremental"
)

// Options configures artifact production.
type Options struct {
	// Mode is the bundling strategy (default ModeIncremental).
	Mode Mode
	// StagingDir is where artifact files are written (default os.TempDir()).
	StagingDir string
	// Logger receives warnings, e.g. the incremental-to-full fallback.
	// Optional.
	Logger *log.SugaredLogger
}

// Produce creates the bundle and patch for the working copy at dir and
// returns their paths plus envelope metadata. The returned files are a
// one-shot snapshot: callers must treat them as immutable until the transfer
// session completes, then delete them via Cleanup.
func Produce(ctx context.Context, dir string, opts Options) (*types.ArtifactSet, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: project directory %s", ErrNotFound, dir)
	}
	if opts.Mode == "" {
		opts.Mode = ModeIncremental
	}
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}

	set := &types.ArtifactSet{
		BundlePath: filepath.Join(opts.StagingDir, fmt.Sprintf("ferry_bundle_%s.bundle", uuid.NewString())),
		PatchPath:  filepath.Join(opts.StagingDir, fmt.Sprintf("ferry_patch_%s.patch", uuid.NewString())),
	}

	commitCount := countCommits(ctx, dir)

	if err := writeBundle(ctx, dir, commitCount, opts, set); err != nil {
		_ = Cleanup(set)
		return nil, err
	}

	set.RemoteURL = detectRemoteURL(ctx, dir)

	patch, err := buildPatch(ctx, dir, commitCount > 0)
	if err != nil {
		_ = Cleanup(set)
		return nil, err
	}
	if err := os.WriteFile(set.PatchPath, patch, 0o600); err != nil {
		_ = Cleanup(set)
		return nil, fmt.Errorf("write patch %s: %w", set.PatchPath, err)
	}

	return set, nil
}

// writeBundle creates the bundle file and fills in the incremental metadata
// on set. A repository without commits yields an empty bundle file.
func writeBundle(ctx context.Context, dir string, commitCount int, opts Options, set *types.ArtifactSet) error {
	if commitCount == 0 {
		if err := os.WriteFile(set.BundlePath, nil, 0o600); err != nil {
			return fmt.Errorf("write empty bundle: %w", err)
		}
		return nil
	}

	if opts.Mode == ModeIncremental {
		base, ok := findMergeBase(ctx, dir)
		if !ok {
			opts.warnf("no remote merge-base found, falling back to full bundle")
			return fullBundle(ctx, dir, set.BundlePath)
		}

		head, err := runGit(ctx, dir, "rev-parse", "HEAD")
		if err != nil {
			return fmt.Errorf("resolve HEAD: %w", err)
		}

		if head == base {
			// Nothing newer than the merge-base: the remote clones from its
			// own copy of history and applies only the patch.
			if err := os.WriteFile(set.BundlePath, nil, 0o600); err != nil {
				return fmt.Errorf("write empty bundle: %w", err)
			}
			set.IsIncremental = true
			set.BaseCommitSHA = base
			return nil
		}

		_, err = runGit(ctx, dir, "bundle", "create", set.BundlePath, base+"..HEAD")
		if err == nil {
			set.IsIncremental = true
			set.BaseCommitSHA = base
			return nil
		}
		opts.warnf("incremental bundle failed (%v), falling back to full bundle", err)
	}

	return fullBundle(ctx, dir, set.BundlePath)
}

func fullBundle(ctx context.Context, dir, path string) error {
	if _, err := runGit(ctx, dir, "bundle", "create", path, "--all"); err != nil {
		return fmt.Errorf("create full bundle: %w", err)
	}
	return nil
}

func (o Options) warnf(template string, args ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(template, args...)
	}
}
