// Package handleindex maps fixed-length binary keys to 64-bit values.
//
// Two variants share one storage engine: Map holds (key, int64) pairs used
// as counters, reference counts or record ordinals, and Set holds keys only.
//
// # Storage
//
// Keys are spread over hash partitions (murmur3). Each partition stores its
// rows in one flat byte slice: a sorted prefix searched by bisection and a
// short unsorted tail scanned linearly. When the tail grows past roughly the
// square root of the prefix it is sorted and merged into the prefix in place.
// Counter updates run under the partition lock, so read-modify-write is
// atomic per key.
//
// # Capacity
//
// An index has a fixed capacity in entries and, with a resource controller,
// a memory budget. Inserting a new key beyond either fails with
// ErrCapacityExceeded. The index never drops entries to make room; callers
// Grow the index or rotate to a new one.
//
// # Ordered access
//
// Keys and Rows return restartable iterators. Each partition contributes a
// cursor that re-seeks from the last key it produced, and cursors are
// combined by a tree of two-way merge iterators. Mutations during iteration
// never invalidate a cursor; keys inserted behind it are not visited.
//
// # Dumps
//
// Dump writes all rows in ascending key order: key bytes followed, for a
// Map, by the value as 8 bytes big-endian. The file name suffix selects a
// stream codec (.gz, .zst, .s2, .lz4). Load of an uncompressed dump into an
// empty index memory-maps the file and appends rows straight into the
// sorted prefixes.
package handleindex
