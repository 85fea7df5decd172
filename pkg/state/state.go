package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the canonical runtime folder layout under the data directory.
type Paths struct {
	Store string // pebble database
	Audit string // append-only change journal
	Crash string // crash dumps
	Abort string // machine-readable exit requests
	Tmp   string // scratch space
}

// PathsVar holds the layout resolved by EnsureStateDirs for the rest of the
// process.
var PathsVar Paths

// EnsureStateDirs creates the runtime folder layout under dbPath, rejecting
// symlinks and group/other-writable modes, and verifies each directory is
// writable. On success PathsVar carries the resolved layout.
func EnsureStateDirs(dbPath string) error {
	p := Paths{
		Store: filepath.Join(dbPath, "store"),
		Audit: filepath.Join(dbPath, "state", "audit"),
		Crash: filepath.Join(dbPath, "state", "crash"),
		Abort: filepath.Join(dbPath, "state", "abort"),
		Tmp:   filepath.Join(dbPath, "state", "tmp"),
	}

	for _, dir := range []string{p.Store, p.Audit, p.Crash, p.Abort, p.Tmp} {
		if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
			return fmt.Errorf("cannot create parent for %s: %w", dir, err)
		}

		if fi, err := os.Lstat(dir); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink: %s", dir)
			}
			if !fi.IsDir() {
				return fmt.Errorf("path exists and is not a directory: %s", dir)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return fmt.Errorf("path has permissive mode (group/other write): %s", dir)
			}
		}

		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("cannot create path %s: %w", dir, err)
		}

		// re-check after creation: another process may have raced us
		if fi, err := os.Lstat(dir); err == nil {
			if fi.Mode()&os.ModeSymlink != 0 {
				return fmt.Errorf("path is a symlink after creation: %s", dir)
			}
			if fi.Mode().Perm()&0o022 != 0 {
				return fmt.Errorf("path has permissive mode after creation: %s", dir)
			}
		}

		tmp, err := os.CreateTemp(dir, ".validate-*")
		if err != nil {
			return fmt.Errorf("path not writable: %s: %w", dir, err)
		}
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	PathsVar = p
	return nil
}
