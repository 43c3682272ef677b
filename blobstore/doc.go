// Package blobstore abstracts the object storage that index backups are
// written to and restored from.
//
// # Built-in Implementations
//
//   - LocalStore: a directory on the local file system, read through mmap
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// Blob names are slash-separated and relative to the store root. Writes
// become visible on Close; [Abort] discards a write in progress. [Stream]
// reads a whole blob with one range request.
package blobstore
