// Package model defines the handle types shared by every termdex index.
//
// # Handles
//
// A Handle is the fixed 12-byte key under which terms and documents are
// stored. It is the first 12 characters of the URL-safe base64 encoding of
// the MD5 digest of the normalized input, so handles are printable and sort
// with bytes.Compare.
//
//	term := model.HashTerm("Kelondro")
//	doc := model.HashURL("https://example.org/a#top")
//	key := model.PostingKey(term, doc)
package model
