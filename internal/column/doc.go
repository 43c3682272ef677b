// Package column lays out fixed-width binary rows from named columns.
//
// A column is declared with a small textual grammar:
//
//	<typeName> <fieldName>[-<width>] [{b<base>}] ["<description>"]
//
// optionally wrapped in angle brackets, for example
//
//	long countA {b256}
//	<int icount-2 {b256} "hits per document">
//	byte[] h-12 "urlhash"
//
// Cardinal columns store a non-negative integer big-endian in base 256
// (b256, at most 256^W-1) or as base-64 digits (b64e, at most 64^W-1).
// Binary columns (byte[], String, Bitfield) store raw bytes and always need
// an explicit width. A [Row] concatenates columns; its width never changes,
// so every entry written through it has exactly that many bytes.
package column
