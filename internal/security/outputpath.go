// Package security keeps generated output files inside their output directory.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// maxNameLen bounds sanitized file names.
const maxNameLen = 128

// SanitizeFilename replaces every character other than ASCII letters,
// digits, dot, underscore and dash with an underscore, collapsing runs. The
// result never starts or ends with a dot or underscore; an empty result
// becomes "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// WithinDirectory reports an error if path, once cleaned and made absolute,
// is not inside dir. Symlinks are not resolved.
func WithinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes %s", path, dir)
	}
	return nil
}

// OutputPath returns the path of the file for frameName in dir, with its
// extension replaced by ext.
func OutputPath(dir, frameName, ext string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(frameName), filepath.Ext(frameName))
	p := filepath.Join(dir, SanitizeFilename(base)+ext)
	if err := WithinDirectory(p, dir); err != nil {
		return "", err
	}
	return p, nil
}
