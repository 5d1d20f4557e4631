// Package dedupe provides a concurrent, sharded set of message hashes used
// to report each unique validation failure only once.
package dedupe

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// ShardCount is the number of shards. Must be a power of 2.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// StringHasher computes the FNV-1a hash of s.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Set remembers hashes and counts repeat sightings. Entries are never
// evicted: a forgotten hash would report the same failure again.
//
// Thread safety: Set is safe for concurrent use.
type Set struct {
	shards [ShardCount]*shard

	firsts  atomic.Uint64
	repeats atomic.Uint64
}

type shard struct {
	mu     sync.Mutex
	counts map[uint64]uint64
}

// New creates an empty set.
func New() *Set {
	s := &Set{}
	for i := range s.shards {
		s.shards[i] = &shard{counts: make(map[uint64]uint64)}
	}
	return s
}

// Observe records one sighting of hash and reports whether it was the first.
func (s *Set) Observe(hash uint64) bool {
	sh := s.shards[hash&shardMask]
	sh.mu.Lock()
	n := sh.counts[hash]
	sh.counts[hash] = n + 1
	sh.mu.Unlock()

	if n == 0 {
		s.firsts.Add(1)
		return true
	}
	s.repeats.Add(1)
	return false
}

// ObserveString hashes key with StringHasher and observes it.
func (s *Set) ObserveString(key string) bool {
	return s.Observe(StringHasher(key))
}

// Count returns how many times hash has been observed.
func (s *Set) Count(hash uint64) uint64 {
	sh := s.shards[hash&shardMask]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.counts[hash]
}

// Len returns the number of distinct hashes.
func (s *Set) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.counts)
		sh.mu.Unlock()
	}
	return total
}

// Stats summarizes observations.
type Stats struct {
	Unique  uint64
	Repeats uint64
}

// Stats returns the first-sighting and repeat counters.
func (s *Set) Stats() Stats {
	return Stats{Unique: s.firsts.Load(), Repeats: s.repeats.Load()}
}

// Reset forgets every hash.
func (s *Set) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.counts = make(map[uint64]uint64)
		sh.mu.Unlock()
	}
	s.firsts.Store(0)
	s.repeats.Store(0)
}
