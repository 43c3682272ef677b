// Package fs provides the file system seam used by the record store and the
// handle index dumps.
//
// The package defines two interfaces:
//
//   - [File]: an open file with positional read/write, truncate and sync
//   - [FileSystem]: open, remove, rename, stat, mkdir, readdir, truncate
//
// # Implementations
//
//   - [LocalFS]: production implementation on top of the os package
//   - [FaultyFS]: test wrapper that injects write, sync, truncate and close
//     failures per file name pattern
//
// Production code uses fs.Default:
//
//	f, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
// Tests inject a [FaultyFS] to simulate a full disk or a failing truncate:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("postings.rec", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})
//
// Dumps and bitmaps are replaced with [WriteFile], which writes a
// PartSuffix file and renames it into place once it is synced.
//
// File system calls take no context.Context. Local file operations are not
// interruptible at the syscall level; remote storage goes through the
// blobstore package instead.
package fs
