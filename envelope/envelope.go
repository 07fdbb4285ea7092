// Package envelope implements the bounded-memory codec for the virtual JSON
// payload sent to the backend.
//
// The envelope is never materialized as a whole. It exists as an ordered
// list of segments — literal JSON text interleaved with the base64 renderings
// of the bundle and patch files — and any byte range of the virtual document
// can be resolved on demand against that list. Peak memory is bounded by the
// largest requested range (one chunk), independent of artifact size.
package envelope

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pellucid-io/ferry/types"
)

// Literal fragments of the envelope document. The concatenation
// prefix + base64(bundle) + middle + base64(patch) + suffix(metadata)
// is a valid JSON object.
const (
	literalPrefix = `{"bundleBase64":"`
	literalMiddle = `","patchBase64":"`
)

// Envelope is the virtual JSON document assembled from literal and
// binary-derived segments. It is immutable after construction; the
// underlying artifact files must not be mutated for the session's duration
// or chunk regeneration loses determinism.
type Envelope struct {
	meta     types.EnvelopeMetadata
	segments []segment
	total    int64
}

// New assembles the envelope over the two binary sources. The metadata is
// rendered into the literal suffix once, here; it cannot change afterwards.
func New(meta types.EnvelopeMetadata, bundle, patch BinarySource, reader *AlignedReader) *Envelope {
	segments := []segment{
		literalSegment(literalPrefix),
		binarySegment{source: bundle, reader: reader},
		literalSegment(literalMiddle),
		binarySegment{source: patch, reader: reader},
		literalSegment(metadataSuffix(meta)),
	}

	var total int64
	for _, s := range segments {
		total += s.length()
	}

	return &Envelope{meta: meta, segments: segments, total: total}
}

// TotalLength returns the length of the full virtual document in bytes.
func (e *Envelope) TotalLength() int64 {
	return e.total
}

// Metadata returns the metadata fixed at construction.
func (e *Envelope) Metadata() types.EnvelopeMetadata {
	return e.meta
}

// Resolve returns the envelope substring [start, end). The range may
// straddle any number of segments, up to all five; each touched segment is
// resolved independently, in order, and the pieces concatenated.
//
// A range outside [0, TotalLength] returns ErrOutOfRange.
func (e *Envelope) Resolve(start, end int64) (string, error) {
	if start < 0 || end < start || end > e.total {
		return "", fmt.Errorf("%w: envelope range [%d,%d) of %d", ErrOutOfRange, start, end, e.total)
	}

	var b strings.Builder
	b.Grow(int(end - start))

	offset := int64(0)
	for _, s := range e.segments {
		segLen := s.length()
		// Intersect [start, end) with this segment's span.
		lo, hi := start-offset, end-offset
		offset += segLen
		if hi <= 0 {
			break
		}
		if lo >= segLen {
			continue
		}
		if lo < 0 {
			lo = 0
		}
		if hi > segLen {
			hi = segLen
		}
		part, err := s.resolve(lo, hi)
		if err != nil {
			return "", err
		}
		b.WriteString(part)
	}

	return b.String(), nil
}

// metadataSuffix renders the closing literal segment. Values are escaped
// through encoding/json so the concatenated document stays valid JSON.
func metadataSuffix(meta types.EnvelopeMetadata) string {
	var b strings.Builder
	b.WriteString(`","isIncremental":`)
	b.WriteString(strconv.FormatBool(meta.IsIncremental))
	if meta.BaseCommitSHA != "" {
		b.WriteString(`,"baseCommitSha":`)
		b.Write(jsonString(meta.BaseCommitSHA))
	}
	if meta.RemoteURL != "" {
		b.WriteString(`,"remoteUrl":`)
		b.Write(jsonString(meta.RemoteURL))
	}
	b.WriteString("}")
	return b.String()
}

func jsonString(s string) []byte {
	// Marshal of a string cannot fail.
	out, _ := json.Marshal(s)
	return out
}
