// Package state persists guild variables, bot admins, channel policies and
// counters as JSON documents in a file or in Redis.
package state

import (
	"context"
	"encoding/json"
	"fmt"
)

// KV stores JSON documents by key. Implementations are safe for concurrent
// use.
type KV interface {
	// Get returns the document stored under key.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	// Set stores doc under key.
	Set(ctx context.Context, key string, doc json.RawMessage) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Keys lists the keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Update replaces the document under key with fn's result atomically.
	// A nil result deletes the key.
	Update(ctx context.Context, key string, fn func(doc json.RawMessage, ok bool) (json.RawMessage, error)) error
	// Close flushes pending writes and releases the backend.
	Close() error
}

// Load decodes the document under key into a T.
func Load[T any](ctx context.Context, kv KV, key string) (T, bool, error) {
	var v T
	doc, ok, err := kv.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(doc, &v); err != nil {
		return v, false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return v, true, nil
}

// Save encodes v and stores it under key.
func Save(ctx context.Context, kv KV, key string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return kv.Set(ctx, key, doc)
}

// Modify applies fn to the decoded document under key and stores the result
// in one atomic update. fn receives the zero T when key is missing.
func Modify[T any](ctx context.Context, kv KV, key string, fn func(v T, ok bool) (T, error)) error {
	return kv.Update(ctx, key, func(doc json.RawMessage, ok bool) (json.RawMessage, error) {
		var v T
		if ok {
			if err := json.Unmarshal(doc, &v); err != nil {
				return nil, fmt.Errorf("decoding %s: %w", key, err)
			}
		}
		next, err := fn(v, ok)
		if err != nil {
			return nil, err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		return out, nil
	})
}
