package artifact

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// buildPatch assembles the uncommitted-changes patch: the diff of tracked
// files against HEAD plus synthesized new-file diffs for every untracked
// file. The staging area is never touched. Line endings are normalized to
// LF because git refuses CRLF patches on the apply side.
func buildPatch(ctx context.Context, dir string, hasCommits bool) ([]byte, error) {
	var patch []byte

	// git diff HEAD requires a HEAD to diff against. The diff bytes are
	// content and must stay verbatim: an added line may end in whitespace.
	if hasCommits {
		diff, err := runGitRaw(ctx, dir, "diff", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("diff uncommitted changes: %w", err)
		}
		if len(bytes.TrimSpace(diff)) > 0 {
			patch = append(patch, diff...)
		}
	}

	untracked, err := runGit(ctx, dir, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("list untracked files: %w", err)
	}

	for _, rel := range strings.Split(untracked, "\n") {
		if rel == "" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil || !utf8.Valid(content) {
			// Unreadable or binary untracked files are left behind, matching
			// the tracked-diff behavior of plain git diff.
			continue
		}
		patch = append(patch, untrackedFileDiff(rel, content)...)
	}

	return normalizeLineEndings(patch), nil
}

// untrackedFileDiff synthesizes a new-file diff entry so untracked files
// survive the handoff. Empty files get a header without a hunk; non-empty
// files get a single all-additions hunk.
func untrackedFileDiff(rel string, content []byte) []byte {
	var b bytes.Buffer

	lines := splitLines(content)
	if len(lines) == 0 {
		fmt.Fprintf(&b, "diff --git a/%s b/%s\nnew file mode 100644\nindex 0000000..e69de29\n--- /dev/null\n+++ b/%s\n",
			rel, rel, rel)
		return b.Bytes()
	}

	fmt.Fprintf(&b, "diff --git a/%s b/%s\nnew file mode 100644\nindex 0000000..0000000\n--- /dev/null\n+++ b/%s\n@@ -0,0 +1,%d @@\n",
		rel, rel, rel, len(lines))
	for _, line := range lines {
		b.WriteByte('+')
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// splitLines splits on newlines without producing a trailing empty line,
// tolerating CRLF input.
func splitLines(content []byte) []string {
	s := strings.ReplaceAll(string(content), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// normalizeLineEndings converts CRLF to LF for cross-platform patches.
func normalizeLineEndings(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}
