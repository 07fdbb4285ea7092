package envelope

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/pellucid-io/ferry/iox"
)

// RegionEncoder is the raw binary reader primitive: it reads exactly the
// byte range [offset, offset+length) of the file at path and returns it
// base64-encoded. Implementations do not need to understand alignment;
// AlignedReader only issues 3-byte-aligned requests.
type RegionEncoder interface {
	EncodeRegion(path string, offset, length int64) (string, error)
}

// FileRegionEncoder reads regions from the local filesystem with a single
// positioned read per call.
type FileRegionEncoder struct{}

// EncodeRegion implements RegionEncoder.
func (FileRegionEncoder) EncodeRegion(path string, offset, length int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return "", fmt.Errorf("read %s [%d,%d): %w", path, offset, offset+length, err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// AlignedReader translates a base64-character range of a binary source into
// the exact substring while touching disk only in 3-byte-aligned groups
// (4 base64 characters encode exactly 3 binary bytes). Each request costs at
// most one disk read, bounded by roughly requested/4*3+3 bytes regardless of
// file size.
type AlignedReader struct {
	enc RegionEncoder
}

// NewAlignedReader creates an aligned reader over the given region encoder.
func NewAlignedReader(enc RegionEncoder) *AlignedReader {
	return &AlignedReader{enc: enc}
}

// Substring returns base64(src)[start:end].
//
// The requested range is expanded outward to group boundaries, the covering
// binary bytes are read and encoded in one shot, and the result is sliced
// back down to the exact request. When the expansion reaches the end of the
// file the final group carries standard '=' padding, which the slice keeps
// or drops as the request dictates.
//
// A range outside [0, src.Base64Length] returns ErrOutOfRange.
func (r *AlignedReader) Substring(src BinarySource, start, end int64) (string, error) {
	if start < 0 || end < start || end > src.Base64Length {
		return "", fmt.Errorf("%w: base64 range [%d,%d) of %s (base64 length %d)",
			ErrOutOfRange, start, end, src.Path, src.Base64Length)
	}
	if start == end {
		return "", nil
	}

	// Expand to the surrounding 4-character group boundaries.
	alignedStart := start - start%4
	alignedEnd := (end + 3) / 4 * 4
	if alignedEnd > src.Base64Length {
		alignedEnd = src.Base64Length
	}

	// Convert aligned character positions to binary byte positions.
	byteStart := alignedStart / 4 * 3
	byteEnd := alignedEnd / 4 * 3
	if byteEnd > src.ByteLength {
		byteEnd = src.ByteLength
	}

	encoded, err := r.enc.EncodeRegion(src.Path, byteStart, byteEnd-byteStart)
	if err != nil {
		return "", err
	}

	return encoded[start-alignedStart : end-alignedStart], nil
}
