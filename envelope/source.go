package envelope

// BinarySource describes one on-disk artifact embedded in the envelope as
// base64 text. The byte length comes from a stat primitive; the base64
// length is always computed, never measured.
type BinarySource struct {
	// Path is the artifact file path.
	Path string
	// ByteLength is the exact file size in bytes.
	ByteLength int64
	// Base64Length is the length of the standard base64 encoding of the
	// file: ceil(ByteLength/3)*4. Always a multiple of 4.
	Base64Length int64
}

// NewBinarySource builds a descriptor for an artifact of a known size.
// The file content is never read here.
func NewBinarySource(path string, byteLength int64) BinarySource {
	return BinarySource{
		Path:         path,
		ByteLength:   byteLength,
		Base64Length: Base64EncodedLen(byteLength),
	}
}

// Base64EncodedLen returns the standard (padded) base64 encoding length for
// n input bytes: ceil(n/3)*4.
func Base64EncodedLen(n int64) int64 {
	return (n + 2) / 3 * 4
}
