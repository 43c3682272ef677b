// Package recordstore implements a flat file of fixed-width records.
//
// The file has no header: its length is always an exact multiple of the
// record width supplied at open time, and record i lives at offset
// i*width. Records are appended at the end, overwritten in place, cleared
// to zero, or removed from the end with CleanLast, which can verify the
// trailing payload before truncating.
//
// # Crash behavior
//
// Appends and truncations are single positional writes followed by no
// implicit fsync; call Sync for durability. Two gaps remain and are left to
// the owning component:
//
//   - A torn append leaves a fractional tail. Open then fails with
//     ErrCorrupt and Repair cuts the tail back to a record boundary.
//   - CleanLast reads, compares and truncates under one mutex but not as one
//     atomic file system operation. A crash between the comparison and the
//     truncate leaves the record in place; re-running the verified CleanLast
//     on restart converges.
//
// All operations on one Store are serialized by a mutex, so Size always
// equals file length divided by width between calls. Sequences of calls
// (read the last record, then remove it) need the owner's lock.
package recordstore
