// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory that will hold path. Paths without a
// directory part and SQLite ":memory:" need nothing.
func EnsureParentDir(path string) (string, error) {
	if path == "" || path == ":memory:" {
		return "", nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
