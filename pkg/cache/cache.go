// Package cache coordinates work on shared paths across launcher processes.
package cache

import (
	"context"
	"os"
)

// Ensure makes sure target exists by running fn if it doesn't.
// The lock keeps concurrent launchers from running fn for the same target twice.
func Ensure(ctx context.Context, target string, fn func() error) error {
	if _, err := os.Lstat(target); err == nil {
		return nil
	}

	unlock, err := Lock(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	// Another holder may have produced it while we waited.
	if _, err := os.Lstat(target); err == nil {
		return nil
	}

	return fn()
}
