package artifact

import (
	"errors"
	"fmt"
	"os"

	"github.com/pellucid-io/ferry/types"
)

// ByteLength returns the exact size of the artifact at path without reading
// its content. A missing, unreadable, or non-regular file yields ErrNotFound.
func ByteLength(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ErrNotFound, path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory, not an artifact", ErrNotFound, path)
	}
	return info.Size(), nil
}

// Cleanup deletes both artifact files. Called by the session owner after the
// transfer reaches Done; the files are read-only until then. Missing files
// are not an error so Cleanup is safe to repeat.
func Cleanup(set *types.ArtifactSet) error {
	var errs []error
	for _, path := range []string{set.BundlePath, set.PatchPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
