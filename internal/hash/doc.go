// Package hash provides the CRC32-Castagnoli checksums used to verify
// backups and object uploads.
package hash
