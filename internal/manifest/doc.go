// Package manifest records index backups on a blob store.
//
// A backup with ID N stores its files under the directory "NNNNNN/" and is
// described by MANIFEST-NNNNNN.json, which lists every file with its size and
// CRC32C checksum.
//
// # Atomic Protocol
//
// Save writes the manifest blob first and then updates the CURRENT pointer
// blob. A backup whose upload failed midway never becomes CURRENT, so Load
// always returns a complete backup.
//
// All Store methods are safe for concurrent use.
package manifest
