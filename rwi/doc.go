// Package rwi holds reverse word index postings: the per-document reference
// rows of a term and the accumulators used to rank them.
//
// A [Reference] is the decoded statistics of one term in one document. It
// encodes to a fixed-width [Row] laid out by [Schema]. A [Container] is the
// posting list of one term, unique per document. [Vars] aggregates positional
// and statistical signals across references so that multi-term queries can
// be ranked; its Min and Max merges are idempotent.
package rwi
