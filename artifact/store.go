// Package artifact provides run-scoped blob storage for pipeline artifacts.
//
// Every artifact a run produces (per-batch match files, per-company
// validations, stage outputs) is a write-once key/blob pair scoped under
// the run identifier. Backends differ in persistence (in-memory radix
// index vs SQLite) but share the Store contract.
package artifact

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned when reading a key that has not been written.
// Distinct from transport errors: callers may treat optional inputs
// (e.g. absent validations) as empty rather than failing.
var ErrNotFound = errors.New("artifact: not found")

// Store is a key/blob store with prefix listing.
//
// Write is an idempotent overwrite; transport errors are surfaced, not
// retried (retry policy belongs to the caller). List returns all keys
// under the prefix in lexicographic order.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// RunStore scopes a Store to a single pipeline run. Callers supply only
// logical keys ("company_matches/batch_0000.json"); the run prefix is
// applied transparently.
type RunStore struct {
	store Store
	runID string
}

// NewRunStore wraps store with the given run identifier.
func NewRunStore(store Store, runID string) *RunStore {
	return &RunStore{store: store, runID: runID}
}

// RunID returns the run identifier this store is scoped to.
func (r *RunStore) RunID() string {
	return r.runID
}

// Write stores data under the run-scoped key.
func (r *RunStore) Write(ctx context.Context, key string, data []byte) error {
	return r.store.Write(ctx, r.scoped(key), data)
}

// Read retrieves the blob for a logical key.
func (r *RunStore) Read(ctx context.Context, key string) ([]byte, error) {
	return r.store.Read(ctx, r.scoped(key))
}

// List returns the logical keys under prefix for this run, sorted.
func (r *RunStore) List(ctx context.Context, prefix string) ([]string, error) {
	scoped, err := r.store.List(ctx, r.scoped(prefix))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(scoped))
	for _, k := range scoped {
		keys = append(keys, strings.TrimPrefix(k, r.scoped("")))
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RunStore) scoped(key string) string {
	return "runs/" + r.runID + "/" + key
}
