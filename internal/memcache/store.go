// Package memcache is the ephemeral, in-memory implementation of
// scorecache.Store. It backs every run that does not ask for a
// persistent cache.
//
// sync.Map fits the access pattern here: the key space grows as the
// search explores, each key is written once and read many times, and
// evaluator workers hit the cache concurrently with no natural lock
// ordering. A single RWMutex over a plain map would serialize exactly
// the hot path the cache exists to speed up.
package memcache

import (
	"context"
	"sync"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/scorecache"
)

// Store is an in-memory score cache.
type Store struct {
	scores sync.Map // key: uint64, value: candidate.Score
}

// New creates an empty in-memory score cache.
func New() scorecache.Store {
	return &Store{}
}

// Get returns the cached score for key, if present.
func (s *Store) Get(ctx context.Context, key uint64) (candidate.Score, bool, error) {
	v, ok := s.scores.Load(key)
	if !ok {
		return candidate.Score{}, false, nil
	}
	return v.(candidate.Score), true, nil
}

// Put records the score for key. Redundant writes for the same key carry
// identical values, so last-writer-wins is fine.
func (s *Store) Put(ctx context.Context, key uint64, score candidate.Score) error {
	s.scores.Store(key, score)
	return nil
}
