// Package store persists assessment graphs keyed by repository hash.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists serialized graphs. Keys are repository hashes.
type Store interface {
	Put(ctx context.Context, hash string, content []byte) error
	Get(ctx context.Context, hash string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// ErrNotFound is returned by Get for unknown hashes.
var ErrNotFound = errors.New("store: graph not found")

// ErrInvalidKey is returned for keys that are not a lowercase hex digest.
var ErrInvalidKey = errors.New("store: invalid key")

func normalizeKey(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" || len(hash) > 128 {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, hash)
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, hash)
		}
	}
	return hash, nil
}
