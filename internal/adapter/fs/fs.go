// Package fs answers existence checks against the local file system.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Checker implements pipeline.ExistenceChecker with os.Stat.
type Checker struct{}

// NewChecker creates a Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Exists reports whether path names an existing file. Errors other than
// absence, such as permission failures, are returned.
func (c *Checker) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
}
