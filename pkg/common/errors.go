package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a focal entity or requested cluster that does not
	// exist for the calling tenant. Entities that exist under a different
	// tenant resolve to the same error so nothing leaks across tenants.
	ErrNotFound = errors.New("not found")

	// ErrTransientStore marks a repository or cache backend failure during
	// traversal. Read paths retry once; if the error persists the whole
	// call fails rather than returning a partial graph.
	ErrTransientStore = errors.New("transient store failure")
)

// WrapTransient tags err as a transient store failure while keeping the
// original error in the chain.
func WrapTransient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientStore, err)
}
