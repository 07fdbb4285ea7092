package envelope

import "errors"

// ErrOutOfRange indicates a requested byte range outside the envelope or a
// binary region. Ranges are derived from the chunk plan, so hitting this is
// an internal invariant violation, not a recoverable condition: the caller
// must abort rather than truncate.
var ErrOutOfRange = errors.New("range out of bounds")
