// Package scorecache defines the injected store for expensive evaluation
// results. Keys are content hashes of (assignment, pipeline-plan) pairs,
// so values are pure functions of their key: concurrent misses may race
// to compute and redundantly overwrite without harming correctness.
package scorecache

import (
	"context"

	"github.com/vk/nocforge/internal/candidate"
)

// Store is a concurrency-safe score cache. Implementations must tolerate
// concurrent Get and Put for the same key; first writer wins and any
// later write carries an identical value.
type Store interface {
	// Get returns the cached score for key and whether it was present.
	Get(ctx context.Context, key uint64) (candidate.Score, bool, error)
	// Put records the score for key.
	Put(ctx context.Context, key uint64, score candidate.Score) error
}
