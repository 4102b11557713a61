// Package setindex implements the append-only, duplicate-free indices
// the specification calls for (knownAddresses, knownContracts): a JSON
// array stored under one fixed KV key, with idempotent insertion keyed
// by a caller-supplied identity function. Grounded on cache-manager's
// get-modify-put shape, specialized to "the modification is always a
// set-union of one element."
package setindex

import (
	"context"
	"encoding/json"
	"sync"

	"encore.app/pkg/apierr"
	"encore.app/pkg/kvstore"
)

// Index is a KV-backed set of T, stored as a JSON array under one fixed
// key. keyOf derives the identity used for deduplication (e.g. the bare
// address string, or "address.name" for a contract pair).
type Index[T any] struct {
	kv    kvstore.Store
	key   string
	keyOf func(T) string

	mu sync.Mutex
}

// New returns an Index backed by kv, persisted under key.
func New[T any](kv kvstore.Store, key string, keyOf func(T) string) *Index[T] {
	return &Index[T]{kv: kv, key: key, keyOf: keyOf}
}

// Insert adds member to the index if no existing element has the same
// identity. Insertion is idempotent: inserting the same logical member
// twice leaves the index unchanged (invariant I5).
func (idx *Index[T]) Insert(ctx context.Context, member T) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	members, err := idx.load(ctx)
	if err != nil {
		return err
	}

	id := idx.keyOf(member)
	for _, m := range members {
		if idx.keyOf(m) == id {
			return nil
		}
	}

	members = append(members, member)
	return idx.save(ctx, members)
}

// List returns every member currently in the index.
func (idx *Index[T]) List(ctx context.Context) ([]T, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.load(ctx)
}

func (idx *Index[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := idx.kv.Get(ctx, idx.key)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeCache, err, "read index %q", idx.key)
	}
	if !ok {
		return nil, nil
	}
	var members []T
	if err := json.Unmarshal(raw, &members); err != nil {
		return nil, apierr.Wrap(apierr.CodeCache, err, "decode index %q", idx.key)
	}
	return members, nil
}

func (idx *Index[T]) save(ctx context.Context, members []T) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "encode index %q", idx.key)
	}
	if err := idx.kv.Put(ctx, idx.key, raw, 0); err != nil {
		return apierr.Wrap(apierr.CodeCache, err, "store index %q", idx.key)
	}
	return nil
}
