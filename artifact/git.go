package artifact

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// runGit runs a git subcommand in dir and returns its trimmed stdout.
// For plumbing commands whose output is a value to parse (a SHA, a count,
// a ref name). Stderr is folded into the returned error for diagnostics.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := runGitRaw(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// runGitRaw runs a git subcommand in dir and returns its stdout verbatim.
// For commands whose output is content, not a value: a diff's final line may
// legitimately end in whitespace, and trimming it would corrupt the patch.
func runGitRaw(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("git %s: %w: %s",
				strings.Join(args, " "), err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// findMergeBase locates the common ancestor between HEAD and the remote.
// It fetches origin first (best effort, non-invasive), then tries the
// current branch's remote counterpart, then origin/main, then origin/master.
// Returns false when no merge-base can be determined.
func findMergeBase(ctx context.Context, dir string) (string, bool) {
	// Only updates remote tracking knowledge; failure is tolerable since the
	// tracking branches may already exist.
	_, _ = runGit(ctx, dir, "fetch", "origin", "--quiet")

	var candidates []string
	if branch, err := runGit(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil && branch != "" {
		candidates = append(candidates, "origin/"+branch)
	}
	candidates = append(candidates, "origin/main", "origin/master")

	for _, ref := range candidates {
		sha, err := runGit(ctx, dir, "merge-base", "HEAD", ref)
		if err == nil && sha != "" {
			return sha, true
		}
	}
	return "", false
}

// detectRemoteURL returns the GitHub remote URL of the repository, if any.
// Non-GitHub remotes (GitLab, Bitbucket, ...) yield an empty string; the
// trailing .git suffix is stripped.
func detectRemoteURL(ctx context.Context, dir string) string {
	out, err := runGit(ctx, dir, "remote", "-v")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "github.com") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		return strings.TrimSuffix(fields[1], ".git")
	}
	return ""
}

// countCommits returns the number of commits reachable from any ref.
// Failures (e.g. not a git repository) count as zero.
func countCommits(ctx context.Context, dir string) int {
	out, err := runGit(ctx, dir, "rev-list", "--all", "--count")
	if err != nil {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(out, "%d", &n); err != nil {
		return 0
	}
	return n
}
