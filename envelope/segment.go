package envelope

// segment is one element of the envelope's ordered segment list. Resolution
// is always local: callers pass offsets relative to the segment start, and
// the envelope walker accumulates absolute positions.
type segment interface {
	length() int64
	// resolve returns the substring [start, end) of this segment's text.
	// The range is guaranteed to lie within [0, length()].
	resolve(start, end int64) (string, error)
}

// literalSegment is fixed JSON text held in memory; resolving it never
// touches disk.
type literalSegment string

func (s literalSegment) length() int64 {
	return int64(len(s))
}

func (s literalSegment) resolve(start, end int64) (string, error) {
	return string(s)[start:end], nil
}

// binarySegment is the base64 rendering of one binary source, materialized
// lazily through the aligned reader. A zero-length source has length 0 and
// contributes nothing, keeping its literal neighbors adjacent.
type binarySegment struct {
	source BinarySource
	reader *AlignedReader
}

func (s binarySegment) length() int64 {
	return s.source.Base64Length
}

func (s binarySegment) resolve(start, end int64) (string, error) {
	if start == end {
		return "", nil
	}
	return s.reader.Substring(s.source, start, end)
}
