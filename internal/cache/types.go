package cache

// Cache is the interface shared by ARC and ShardedARC.
type Cache[K comparable, V any] interface {
	// Get returns the value of a resident key and refreshes it.
	Get(key K) (V, bool)
	// Put inserts or replaces the value of key.
	Put(key K, value V)
	// InsertIfAbsent inserts value unless key is resident. It returns the
	// resident value and true if key was present.
	InsertIfAbsent(key K, value V) (V, bool)
	// ContainsKey reports whether key is resident without touching it.
	ContainsKey(key K) bool
	// Remove drops key and returns its value if it was resident.
	Remove(key K) (V, bool)
	// Len returns the number of resident entries.
	Len() int
	// Clear drops all entries and ghost history.
	Clear()
	// Stats returns counters and list sizes.
	Stats() Stats
}

// Stats describes the state of a cache.
type Stats struct {
	Hits     int64
	Misses   int64
	Capacity int
	// Target is the adaptive target size p of T1, summed across shards.
	Target int
	T1     int
	T2     int
	B1     int
	B2     int
}

// Len returns the number of resident entries.
func (s Stats) Len() int { return s.T1 + s.T2 }

// HitRatio returns hits / (hits + misses), or 0 without lookups.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Capacity += o.Capacity
	s.Target += o.Target
	s.T1 += o.T1
	s.T2 += o.T2
	s.B1 += o.B1
	s.B2 += o.B2
}
