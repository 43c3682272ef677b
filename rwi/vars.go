package rwi

import (
	"time"

	"github.com/hupe1980/termdex/model"
)

// Vars accumulates ranking signals for one document. The zero value is not
// usable; start from FromReference.
//
// Positions are tracked as an extent [min, max]. Distance is always the
// extent width, so merging the same accumulator twice leaves it unchanged.
type Vars struct {
	ref Reference

	lastModified  int64
	hitCount      int
	wordsInText   int
	wordsInTitle  int
	phrasesInText int
	localLinks    int
	otherLinks    int
	urlLength     int
	urlComps      int
	posInPhrase   int
	posOfPhrase   int
	posInText     int
	minPos        int
	maxPos        int
	termFrequency float64
}

// FromReference starts an accumulator at the reference's first position.
// A stored word distance widens the extent so that Reference round-trips.
func FromReference(ref Reference) *Vars {
	v := &Vars{
		ref:           ref,
		lastModified:  int64(toDays(ref.LastModified)),
		hitCount:      ref.HitCount,
		wordsInText:   ref.WordsInText,
		wordsInTitle:  ref.WordsInTitle,
		phrasesInText: ref.PhrasesInText,
		localLinks:    ref.LocalLinks,
		otherLinks:    ref.OtherLinks,
		urlLength:     ref.URLLength,
		urlComps:      ref.URLComps,
		posInPhrase:   ref.PosInPhrase,
		posOfPhrase:   ref.PosOfPhrase,
		posInText:     ref.PosInText,
		minPos:        ref.PosInText,
		maxPos:        ref.PosInText + max(ref.WordDistance, 0),
	}
	return v
}

// Clone returns an independent copy.
func (v *Vars) Clone() *Vars {
	c := *v
	return &c
}

// AddPosition records another occurrence of the term.
func (v *Vars) AddPosition(p int) {
	v.minPos = min(v.minPos, p)
	v.maxPos = max(v.maxPos, p)
	v.posInText = min(v.posInText, p)
}

// Min lowers every statistic to the smaller of v and o. The lower position
// bound follows; the upper bound of v is kept.
func (v *Vars) Min(o *Vars) {
	if o == nil {
		return
	}
	v.termFrequency = min(v.TermFrequency(), o.TermFrequency())
	v.lastModified = min(v.lastModified, o.lastModified)
	v.hitCount = min(v.hitCount, o.hitCount)
	v.wordsInText = min(v.wordsInText, o.wordsInText)
	v.wordsInTitle = min(v.wordsInTitle, o.wordsInTitle)
	v.phrasesInText = min(v.phrasesInText, o.phrasesInText)
	v.localLinks = min(v.localLinks, o.localLinks)
	v.otherLinks = min(v.otherLinks, o.otherLinks)
	v.urlLength = min(v.urlLength, o.urlLength)
	v.urlComps = min(v.urlComps, o.urlComps)
	v.posInPhrase = min(v.posInPhrase, o.posInPhrase)
	v.posOfPhrase = min(v.posOfPhrase, o.posOfPhrase)
	v.posInText = min(v.posInText, o.posInText)
	v.minPos = min(v.minPos, o.minPos)
	v.maxPos = max(v.maxPos, v.minPos)
}

// Max raises every statistic to the larger of v and o. The position extent
// becomes the union of both extents.
func (v *Vars) Max(o *Vars) {
	if o == nil {
		return
	}
	v.termFrequency = max(v.TermFrequency(), o.TermFrequency())
	v.lastModified = max(v.lastModified, o.lastModified)
	v.hitCount = max(v.hitCount, o.hitCount)
	v.wordsInText = max(v.wordsInText, o.wordsInText)
	v.wordsInTitle = max(v.wordsInTitle, o.wordsInTitle)
	v.phrasesInText = max(v.phrasesInText, o.phrasesInText)
	v.localLinks = max(v.localLinks, o.localLinks)
	v.otherLinks = max(v.otherLinks, o.otherLinks)
	v.urlLength = max(v.urlLength, o.urlLength)
	v.urlComps = max(v.urlComps, o.urlComps)
	v.posInPhrase = max(v.posInPhrase, o.posInPhrase)
	v.posOfPhrase = max(v.posOfPhrase, o.posOfPhrase)
	v.posInText = max(v.posInText, o.posInText)
	v.minPos = min(v.minPos, o.minPos)
	v.maxPos = max(v.maxPos, o.maxPos)
}

// Join combines the references of two different terms in the same document.
// Positions are united and the term frequencies add up.
func (v *Vars) Join(o *Vars) {
	if o == nil {
		return
	}
	v.termFrequency = v.TermFrequency() + o.TermFrequency()
	v.minPos = min(v.minPos, o.minPos)
	v.maxPos = max(v.maxPos, o.maxPos)
	if v.posOfPhrase == o.posOfPhrase {
		v.posInPhrase = min(v.posInPhrase, o.posInPhrase)
	} else {
		v.posInPhrase = 0
	}
	v.posOfPhrase = min(v.posOfPhrase, o.posOfPhrase)
	v.wordsInText += o.wordsInText
	v.ref.Flags |= o.ref.Flags
	v.ref.Score += o.ref.Score
}

// Doc returns the document handle.
func (v *Vars) Doc() model.Handle { return v.ref.Doc }

// PosInText returns the first known position of the term.
func (v *Vars) PosInText() int { return v.posInText }

// MinPosition returns the lower bound of the position extent.
func (v *Vars) MinPosition() int { return v.minPos }

// MaxPosition returns the upper bound of the position extent.
func (v *Vars) MaxPosition() int { return v.maxPos }

// Distance returns the width of the position extent.
func (v *Vars) Distance() int { return v.maxPos - v.minPos }

// TermFrequency returns the accumulated term frequency. Until a merge sets
// it, it is derived from hit count and document size.
func (v *Vars) TermFrequency() float64 {
	if v.termFrequency == 0 {
		v.termFrequency = float64(v.hitCount) / float64(v.wordsInText+v.wordsInTitle+1)
	}
	return v.termFrequency
}

func (v *Vars) HitCount() int { return v.hitCount }
func (v *Vars) WordsInText() int { return v.wordsInText }
func (v *Vars) WordsInTitle() int { return v.wordsInTitle }
func (v *Vars) PhrasesInText() int { return v.phrasesInText }
func (v *Vars) LocalLinks() int { return v.localLinks }
func (v *Vars) OtherLinks() int { return v.otherLinks }
func (v *Vars) URLLength() int { return v.urlLength }
func (v *Vars) URLComps() int { return v.urlComps }
func (v *Vars) PosInPhrase() int { return v.posInPhrase }
func (v *Vars) PosOfPhrase() int { return v.posOfPhrase }
func (v *Vars) Flags() Flags { return v.ref.Flags }
func (v *Vars) Score() float32 { return v.ref.Score }

// LastModified returns the accumulated modification day.
func (v *Vars) LastModified() time.Time { return fromDays(uint64(v.lastModified)) }

// LastModifiedDays returns days since the Unix epoch, 0 if unknown.
func (v *Vars) LastModifiedDays() int64 { return v.lastModified }

// Reference writes the accumulated statistics back into a reference.
func (v *Vars) Reference() Reference {
	ref := v.ref
	ref.LastModified = fromDays(uint64(v.lastModified))
	ref.HitCount = v.hitCount
	ref.WordsInText = v.wordsInText
	ref.WordsInTitle = v.wordsInTitle
	ref.PhrasesInText = v.phrasesInText
	ref.LocalLinks = v.localLinks
	ref.OtherLinks = v.otherLinks
	ref.URLLength = v.urlLength
	ref.URLComps = v.urlComps
	ref.PosInPhrase = v.posInPhrase
	ref.PosOfPhrase = v.posOfPhrase
	ref.PosInText = v.posInText
	ref.WordDistance = v.Distance()
	return ref
}
