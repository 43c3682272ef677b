package termdex

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/termdex/model"
	"github.com/hupe1980/termdex/rwi"
)

// Query selects the documents containing every include term and none of
// the exclude terms.
type Query struct {
	Include []string
	Exclude []string
	// Limit caps the number of results. Zero or negative returns all.
	Limit int
}

// Result is one ranked document.
type Result struct {
	Doc   model.Handle
	Score float64
	// Reference holds the joined statistics of all include terms.
	Reference rwi.Reference
}

// Ranking weighs the signals of a candidate document. Each signal is first
// normalized to 0..255 between the smallest and largest value among all
// candidates of the query; flags contribute 255 when set. A zero weight
// disables a signal.
type Ranking struct {
	TermFrequency float64
	HitCount      float64
	PosInText     float64 // earlier is better
	WordDistance  float64 // smaller is better
	URLLength     float64 // shorter is better
	URLComps      float64 // fewer is better
	Date          float64 // newer is better
	WordsInTitle  float64
	WordsInText   float64
	PhrasesInText float64
	LocalLinks    float64
	OtherLinks    float64

	InTitle       float64
	InDescription float64
	Emphasized    float64
	InIdentifier  float64
	InCreator     float64
	InSubject     float64

	// BaseScore multiplies the stored base score of the reference.
	BaseScore float64
}

// DefaultRanking returns the default signal weights.
func DefaultRanking() Ranking {
	return Ranking{
		TermFrequency: 8,
		HitCount:      1,
		PosInText:     4,
		WordDistance:  10,
		URLLength:     6,
		URLComps:      7,
		Date:          9,
		WordsInTitle:  2,
		WordsInText:   3,
		OtherLinks:    7,
		InTitle:       14,
		InDescription: 10,
		Emphasized:    5,
		InIdentifier:  12,
		InCreator:     1,
		InSubject:     2,
		BaseScore:     1,
	}
}

// Search joins the posting lists of q.Include, removes documents listed by
// any q.Exclude term or blocked, and returns the rest ordered by descending
// score, ties by ascending document handle.
func (ix *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()
	results, err := ix.search(ctx, q)
	ix.opts.metricsCollector.RecordSearch(len(q.Include), len(results), time.Since(start), err)
	ix.logger.LogSearch(ctx, len(q.Include), len(results), err)
	return results, err
}

func (ix *Index) search(ctx context.Context, q Query) ([]Result, error) {
	if len(q.Include) == 0 {
		return nil, fmt.Errorf("%w: query without include terms", ErrInvalidArgument)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := ix.checkOpen(); err != nil {
		return nil, err
	}

	load := func(terms []string) ([]*rwi.Container, error) {
		out := make([]*rwi.Container, 0, len(terms))
		for _, t := range terms {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, err := ix.container(model.HashTerm(t))
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}

	incl, err := load(q.Include)
	if err != nil {
		return nil, err
	}
	excl, err := load(q.Exclude)
	if err != nil {
		return nil, err
	}

	candidates := rwi.ExcludeVars(rwi.JoinConstructive(incl...), excl...)
	candidates = slices.DeleteFunc(candidates, func(v *rwi.Vars) bool {
		doc := v.Doc()
		return ix.blocked.Has(doc[:])
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := ix.opts.ranking.rank(candidates)
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// bounds holds the per-signal minimum and maximum over all candidates.
type bounds struct {
	lo, hi       *rwi.Vars
	dMin, dMax   int
	tfMin, tfMax float64
}

func newBounds(vs []*rwi.Vars) bounds {
	b := bounds{lo: vs[0].Clone(), hi: vs[0].Clone(), dMin: vs[0].Distance(), dMax: vs[0].Distance()}
	for _, v := range vs[1:] {
		b.lo.Min(v)
		b.hi.Max(v)
		b.dMin = min(b.dMin, v.Distance())
		b.dMax = max(b.dMax, v.Distance())
	}
	b.tfMin, b.tfMax = b.lo.TermFrequency(), b.hi.TermFrequency()
	return b
}

// norm scales x from [lo, hi] to [0, 255].
func norm(x, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	return 255 * (x - lo) / (hi - lo)
}

func normInt(x, lo, hi int) float64 { return norm(float64(x), float64(lo), float64(hi)) }

func (r Ranking) rank(vs []*rwi.Vars) []Result {
	if len(vs) == 0 {
		return nil
	}
	b := newBounds(vs)

	out := make([]Result, len(vs))
	for i, v := range vs {
		out[i] = Result{Doc: v.Doc(), Score: r.score(v, b), Reference: v.Reference()}
	}
	slices.SortFunc(out, func(a, c Result) int {
		if s := cmp.Compare(c.Score, a.Score); s != 0 {
			return s
		}
		return a.Doc.Compare(c.Doc)
	})
	return out
}

func (r Ranking) score(v *rwi.Vars, b bounds) float64 {
	lo, hi := b.lo, b.hi
	s := r.TermFrequency*norm(v.TermFrequency(), b.tfMin, b.tfMax) +
		r.HitCount*normInt(v.HitCount(), lo.HitCount(), hi.HitCount()) +
		r.PosInText*(255-normInt(v.PosInText(), lo.PosInText(), hi.PosInText())) +
		r.WordDistance*(255-normInt(v.Distance(), b.dMin, b.dMax)) +
		r.URLLength*(255-normInt(v.URLLength(), lo.URLLength(), hi.URLLength())) +
		r.URLComps*(255-normInt(v.URLComps(), lo.URLComps(), hi.URLComps())) +
		r.Date*norm(float64(v.LastModifiedDays()), float64(lo.LastModifiedDays()), float64(hi.LastModifiedDays())) +
		r.WordsInTitle*normInt(v.WordsInTitle(), lo.WordsInTitle(), hi.WordsInTitle()) +
		r.WordsInText*normInt(v.WordsInText(), lo.WordsInText(), hi.WordsInText()) +
		r.PhrasesInText*normInt(v.PhrasesInText(), lo.PhrasesInText(), hi.PhrasesInText()) +
		r.LocalLinks*normInt(v.LocalLinks(), lo.LocalLinks(), hi.LocalLinks()) +
		r.OtherLinks*normInt(v.OtherLinks(), lo.OtherLinks(), hi.OtherLinks())

	flags := v.Flags()
	for _, f := range []struct {
		w    float64
		flag rwi.Flags
	}{
		{r.InTitle, rwi.FlagInTitle},
		{r.InDescription, rwi.FlagInDescription},
		{r.Emphasized, rwi.FlagEmphasized},
		{r.InIdentifier, rwi.FlagInIdentifier},
		{r.InCreator, rwi.FlagInCreator},
		{r.InSubject, rwi.FlagInSubject},
	} {
		if flags.Has(f.flag) {
			s += f.w * 255
		}
	}

	return s + r.BaseScore*float64(v.Score())
}
