// Package store provides persistence for coge's per-user JSON documents
// (the bandit arm state and the usage stats).
//
// Every implementation has the same load/replace semantics: Load returns the
// whole document, or a fresh empty value when nothing has been stored yet;
// Save overwrites the whole document. There is no locking and no version
// check, so two writers racing on the same document lose one update.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document loads and saves one whole document of type T.
type Document[T any] interface {
	Load(ctx context.Context) (T, error)
	Save(ctx context.Context, v T) error
}

// Empty constructs the value Load returns when nothing is stored. For map
// documents it must return a non-nil map so callers can write into it.
type Empty[T any] func() T

func decode[T any](data []byte, empty Empty[T]) (T, error) {
	v := empty()
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("decoding document: %w", err)
	}
	return v, nil
}

func encode[T any](v T) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(data, '\n'), nil
}
