// Package cache implements the Adaptive Replacement Cache (ARC).
//
// ARC keeps two resident lists, T1 for keys seen once recently and T2 for
// keys seen at least twice, plus two ghost lists B1 and B2 that remember
// keys recently evicted from T1 and T2 without their values. A hit in a
// ghost list shifts the target size p of T1: a B1 hit favors recency, a B2
// hit favors frequency. Resident entries never exceed the capacity c and
// all four lists together never exceed 2c.
//
// The adaptation step follows the published algorithm (Megiddo and Modha,
// FAST 2003): p grows by max(1, |B2|/|B1|) on a B1 hit and shrinks by
// max(1, |B1|/|B2|) on a B2 hit.
//
// ARC guards all state with one mutex and gives an exact global bound.
// ShardedARC partitions keys by hash over independent ARC instances, so the
// bound holds per shard and the total only approximates the capacity.
//
// The cache is never authoritative: callers reload from the backing store
// on a miss and Remove entries they invalidate.
package cache
