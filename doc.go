// Package termdex is the storage and inverted-index engine of a web search
// node.
//
// An Index stores, for every term, a posting list of fixed-width reference
// rows, one per document that contains the term. Each row carries the
// statistics used for ranking: positions, hit counts, word counts, URL shape,
// dates and appearance flags.
//
// # Quick Start
//
//	idx, err := termdex.Open("./data", termdex.WithDumpCodec(codec.Zstd{}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer idx.Close()
//
//	doc := model.HashURL("https://example.org/")
//	_, err = idx.AddDocument(doc, []termdex.TermOccurrence{
//	    {Term: "peer", Reference: rwi.Reference{HitCount: 3, PosInText: 1}},
//	    {Term: "search", Reference: rwi.Reference{HitCount: 1, PosInText: 2}},
//	})
//
//	results, err := idx.Search(ctx, termdex.Query{Include: []string{"peer", "search"}})
//
// # Storage Layout
//
// All postings live in one record file, postings.rec. Handle indexes map
// term‖document handles to record ordinals and count postings per term and
// per document. They are kept in memory, dumped by Checkpoint and Close and
// reloaded by Open. Removing a posting clears its record; cleared slots are
// reused lowest-first and cleared records at the end of the file are cut.
//
// # Durability Model
//
// The record file is the source of truth. A DIRTY marker exists while the
// in-memory indexes hold changes not yet dumped. If Open finds the marker, or
// the dumps are missing or disagree with the record file, it trims cleared
// trailing records and rebuilds every index by a full scan. A torn trailing
// record makes Open fail with ErrCorruptStore unless WithRepair is given.
//
// Backup uploads a checkpoint to any blobstore.BlobStore (local directory,
// memory, MinIO or S3). Restore downloads it, verifies every file's CRC32C
// checksum and opens the restored index.
//
// # Concurrency
//
// An Index is safe for concurrent use. Writers are serialized by one lock;
// readers share it. Posting lists are cached in an adaptive replacement cache
// and loads of the same list are deduplicated.
package termdex
