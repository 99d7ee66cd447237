// Package store persists per-document artifacts behind a small key-value
// interface. Keys are document names; values are UTF-8 text.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned for keys that cannot name a single document.
var ErrInvalidKey = errors.New("store: invalid key")

// Store is a flat key-value store. Put replaces the whole value in one
// step, so a concurrent Get sees either the old or the new value. There is
// no locking across Get and Put: callers that race on the same key get
// last-writer-wins.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	// Keys lists stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}

// ValidateKey rejects empty keys and keys that would escape a flat
// namespace.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "", key == ".", key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, `/\`), strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
