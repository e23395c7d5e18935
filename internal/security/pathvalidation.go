// Package security guards the paths derived from command-line input.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory checks that filePath, once cleaned, stays
// inside safeDir. The check is lexical so it works for any
// fsutil.FileSystem; symlinks inside the dataset are not resolved.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	cleanPath := filepath.Clean(filePath)
	cleanDir := filepath.Clean(safeDir)

	relPath, err := filepath.Rel(cleanDir, cleanPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", safeDir, err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) || filepath.IsAbs(relPath) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidateLabel checks that a BIDS label names a single path element
// directly below root.
func ValidateLabel(root, label string) error {
	if label == "" || strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return fmt.Errorf("invalid label %q: must be a single directory name", label)
	}
	return ValidatePathWithinDirectory(filepath.Join(root, label), root)
}
