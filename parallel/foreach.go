// Package parallel contains the bounded fan-out used by tallying and evaluation,
// plus an order independent digest of per-item results.
package parallel

import "sync"

// ForEach executes body for each integer from 0 to length-1, with at most limit
// goroutines running at the same time.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// ForEachShard splits [0, length) into at most shards contiguous ranges and runs
// body once per range concurrently. Shard k receives [from, to).
func ForEachShard(length, shards int, body func(shard, from, to int)) {
	if length <= 0 {
		return
	}
	if shards <= 0 {
		shards = 1
	}
	if shards > length {
		shards = length
	}
	step := (length + shards - 1) / shards
	ForEach(shards, shards, func(k int) {
		from := k * step
		to := from + step
		if to > length {
			to = length
		}
		if from < to {
			body(k, from, to)
		}
	})
}
