//nolint:revive // types is a common Go package naming convention
package types

// ArtifactSet describes the two on-disk artifacts produced for a handoff:
// a git bundle and an uncommitted-changes patch. Both files are read-only
// for the lifetime of the transfer session and deleted only after it
// completes successfully.
type ArtifactSet struct {
	// BundlePath is the path to the git bundle file.
	// The file may be empty (zero-commit repository, or incremental bundle
	// with no new commits).
	BundlePath string
	// PatchPath is the path to the uncommitted-changes patch file.
	PatchPath string
	// IsIncremental is true if the bundle contains only commits since
	// BaseCommitSHA rather than the full history.
	IsIncremental bool
	// BaseCommitSHA is the merge-base the incremental bundle builds on.
	// Empty for full bundles.
	BaseCommitSHA string
	// RemoteURL is the detected GitHub remote URL, if any.
	RemoteURL string
}

// Metadata returns the envelope metadata derived from this artifact set.
func (a *ArtifactSet) Metadata() EnvelopeMetadata {
	return EnvelopeMetadata{
		IsIncremental: a.IsIncremental,
		BaseCommitSHA: a.BaseCommitSHA,
		RemoteURL:     a.RemoteURL,
	}
}

// EnvelopeMetadata is the literal metadata embedded in the envelope suffix.
// It is fixed when the envelope is constructed and immutable thereafter.
type EnvelopeMetadata struct {
	// IsIncremental mirrors ArtifactSet.IsIncremental.
	IsIncremental bool
	// BaseCommitSHA is included in the envelope only when non-empty.
	BaseCommitSHA string
	// RemoteURL is included in the envelope only when non-empty.
	RemoteURL string
}
