package search

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/ctxlog"
)

// evaluateAll runs one iteration's mutations across the worker pool and
// collects every result before returning. Each mutation works against an
// immutable base candidate and the immutable graph; the score cache is
// the only shared mutable state and is safe by contract. The collection
// here is the synchronization barrier between "evaluate mutations" and
// "update frontier": the frontier itself is touched only by Run's
// goroutine afterwards.
func (c *Controller) evaluateAll(ctx context.Context, muts []mutation) []*candidate.Candidate {
	logger := ctxlog.FromContext(ctx)
	if len(muts) == 0 {
		return nil
	}

	jobs := make(chan mutation, len(muts))
	out := make(chan *candidate.Candidate, len(muts))

	var wg sync.WaitGroup
	workers := c.cfg.Workers
	if workers > len(muts) {
		workers = len(muts)
	}
	logger.Debug("Dispatching mutations to evaluator pool.", "mutations", len(muts), "workers", workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for m := range jobs {
				out <- m(ctx)
			}
		}(i)
	}

	for _, m := range muts {
		jobs <- m
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]*candidate.Candidate, 0, len(muts))
	for cand := range out {
		results = append(results, cand)
	}
	// Arrival order depends on worker scheduling; sort by content key so
	// the frontier fold sees the same order at any worker count.
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key() < results[j].Key()
	})
	return results
}
