// internal/output/writer.go - Stage output writing
package output

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes a completed stage's output. The bytes land in a
// temporary sibling first and are renamed into place, so a crash mid-write
// never leaves a partial file where downstream stages would read it.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return nil
}
