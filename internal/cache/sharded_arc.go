package cache

import (
	"github.com/spaolacci/murmur3"
)

// DefaultShards is the shard count used when none is given.
const DefaultShards = 16

// ShardedARC spreads keys over independent ARC shards selected by hash.
type ShardedARC[K comparable, V any] struct {
	shards []*ARC[K, V]
	hash   func(K) uint32
}

// NewShardedARC creates a sharded cache of about capacity entries. Each
// shard holds ceil(capacity/shards) entries.
func NewShardedARC[K comparable, V any](capacity, shards int, hash func(K) uint32) *ShardedARC[K, V] {
	if shards <= 0 {
		shards = DefaultShards
	}
	per := (capacity + shards - 1) / shards
	s := &ShardedARC[K, V]{
		shards: make([]*ARC[K, V], shards),
		hash:   hash,
	}
	for i := range s.shards {
		s.shards[i] = NewARC[K, V](per)
	}
	return s
}

// StringHash hashes string keys with murmur3.
func StringHash(key string) uint32 { return murmur3.Sum32([]byte(key)) }

// BytesHash hashes byte keys with murmur3.
func BytesHash(key []byte) uint32 { return murmur3.Sum32(key) }

func (s *ShardedARC[K, V]) shard(key K) *ARC[K, V] {
	return s.shards[s.hash(key)%uint32(len(s.shards))]
}

// Shards returns the number of shards.
func (s *ShardedARC[K, V]) Shards() int { return len(s.shards) }

func (s *ShardedARC[K, V]) Get(key K) (V, bool) { return s.shard(key).Get(key) }

func (s *ShardedARC[K, V]) Put(key K, value V) { s.shard(key).Put(key, value) }

func (s *ShardedARC[K, V]) InsertIfAbsent(key K, value V) (V, bool) {
	return s.shard(key).InsertIfAbsent(key, value)
}

func (s *ShardedARC[K, V]) ContainsKey(key K) bool { return s.shard(key).ContainsKey(key) }

func (s *ShardedARC[K, V]) Remove(key K) (V, bool) { return s.shard(key).Remove(key) }

// Len returns the number of resident entries across all shards.
func (s *ShardedARC[K, V]) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

// Clear empties every shard.
func (s *ShardedARC[K, V]) Clear() {
	for _, sh := range s.shards {
		sh.Clear()
	}
}

// Stats aggregates the statistics of all shards.
func (s *ShardedARC[K, V]) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		total.add(sh.Stats())
	}
	return total
}

// ShardStats returns per-shard statistics.
func (s *ShardedARC[K, V]) ShardStats() []Stats {
	out := make([]Stats, len(s.shards))
	for i, sh := range s.shards {
		out[i] = sh.Stats()
	}
	return out
}

var (
	_ Cache[string, int] = (*ARC[string, int])(nil)
	_ Cache[string, int] = (*ShardedARC[string, int])(nil)
)
