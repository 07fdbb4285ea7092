package artifact

import "errors"

// ErrNotFound indicates a missing or unreadable artifact or project path.
// It is fatal and pre-session: no chunk is ever generated from a source that
// failed this check. Use errors.Is(err, ErrNotFound) for typed assertions.
var ErrNotFound = errors.New("not found")
