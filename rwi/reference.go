package rwi

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/hupe1980/termdex/internal/column"
	"github.com/hupe1980/termdex/model"
)

// Schema is the column layout of a reference row.
var Schema = column.MustRow(
	column.MustParse(`byte[] h-12 "urlhash"`),
	column.MustParse(`int a-2 {b256} "lastModified"`),
	column.MustParse(`int s-2 {b256} "freshUntil"`),
	column.MustParse(`byte u-1 "wordsInTitle"`),
	column.MustParse(`int w-2 "wordsInText"`),
	column.MustParse(`int p-2 "phrasesInText"`),
	column.MustParse(`byte[] d-1 "doctype"`),
	column.MustParse(`String l-2 "language"`),
	column.MustParse(`byte x-1 "llocal"`),
	column.MustParse(`byte y-1 "lother"`),
	column.MustParse(`byte m-1 "urlLength"`),
	column.MustParse(`byte n-1 "urlComps"`),
	column.MustParse(`byte[] g-1 "typeofword"`),
	column.MustParse(`Bitfield z-4 {bytes} "flags"`),
	column.MustParse(`byte c-1 "hitcount"`),
	column.MustParse(`int t-2 "posintext"`),
	column.MustParse(`byte r-1 "posinphrase"`),
	column.MustParse(`byte o-1 "posofphrase"`),
	column.MustParse(`byte i-1 "worddistance"`),
	column.MustParse(`byte k-1 "reserve"`),
	column.MustParse(`byte[] f-4 "score"`),
)

// column positions in Schema
const (
	colDoc = iota
	colLastModified
	colFreshUntil
	colWordsInTitle
	colWordsInText
	colPhrasesInText
	colDocType
	colLanguage
	colLocalLinks
	colOtherLinks
	colURLLength
	colURLComps
	colTypeOfWord
	colFlags
	colHitCount
	colPosInText
	colPosInPhrase
	colPosOfPhrase
	colWordDistance
	colReserve
	colScore
)

// RowSize is the encoded width of a reference.
const RowSize = 44

func init() {
	if Schema.Width() != RowSize {
		panic("rwi: schema width drifted from RowSize")
	}
}

// Flags is a bit vector of document and appearance attributes.
type Flags uint32

// Category flags describe what the document contains.
const (
	FlagIndexOf     Flags = 1 << 0
	FlagHasLocation Flags = 1 << 19
	FlagHasImage    Flags = 1 << 20
	FlagHasAudio    Flags = 1 << 21
	FlagHasVideo    Flags = 1 << 22
	FlagHasApp      Flags = 1 << 23
)

// Appearance flags describe where in the document the term occurs.
const (
	FlagInDescription Flags = 1 << 24
	FlagInTitle       Flags = 1 << 25
	FlagInCreator     Flags = 1 << 26
	FlagInSubject     Flags = 1 << 27
	FlagInIdentifier  Flags = 1 << 28
	FlagEmphasized    Flags = 1 << 29
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Reference holds the statistics of one term within one document.
// Integer fields saturate at their column width when encoded.
type Reference struct {
	Doc           model.Handle
	LastModified  time.Time
	FreshUntil    time.Time
	WordsInTitle  int
	WordsInText   int
	PhrasesInText int
	DocType       byte
	Language      string
	LocalLinks    int
	OtherLinks    int
	URLLength     int
	URLComps      int
	TypeOfWord    byte
	Flags         Flags
	HitCount      int
	PosInText     int
	PosInPhrase   int
	PosOfPhrase   int
	WordDistance  int
	Score         float32
}

// Row is an encoded reference.
type Row [RowSize]byte

// Doc returns the document handle of the row.
func (r *Row) Doc() model.Handle { return model.HandleFrom(r[:model.HandleSize]) }

// IsZero reports whether the row is all zero bytes, the cleared record form.
func (r *Row) IsZero() bool { return *r == Row{} }

// Reference decodes the row.
func (r *Row) Reference() Reference {
	e := r.entry()
	return Reference{
		Doc:           r.Doc(),
		LastModified:  fromDays(e.Int(colLastModified)),
		FreshUntil:    fromDays(e.Int(colFreshUntil)),
		WordsInTitle:  int(e.Int(colWordsInTitle)),
		WordsInText:   int(e.Int(colWordsInText)),
		PhrasesInText: int(e.Int(colPhrasesInText)),
		DocType:       e.Col(colDocType)[0],
		Language:      string(bytes.TrimRight(e.Col(colLanguage), "\x00")),
		LocalLinks:    int(e.Int(colLocalLinks)),
		OtherLinks:    int(e.Int(colOtherLinks)),
		URLLength:     int(e.Int(colURLLength)),
		URLComps:      int(e.Int(colURLComps)),
		TypeOfWord:    e.Col(colTypeOfWord)[0],
		Flags:         Flags(binary.BigEndian.Uint32(e.Col(colFlags))),
		HitCount:      int(e.Int(colHitCount)),
		PosInText:     int(e.Int(colPosInText)),
		PosInPhrase:   int(e.Int(colPosInPhrase)),
		PosOfPhrase:   int(e.Int(colPosOfPhrase)),
		WordDistance:  int(e.Int(colWordDistance)),
		Score:         math.Float32frombits(binary.BigEndian.Uint32(e.Col(colScore))),
	}
}

func (r *Row) entry() column.Entry {
	e, err := Schema.Wrap(r[:])
	if err != nil {
		panic(err)
	}
	return e
}

// Row encodes the reference.
func (ref Reference) Row() Row {
	var r Row
	e := r.entry()

	copy(e.Col(colDoc), ref.Doc[:])
	e.SetIntSaturated(colLastModified, toDays(ref.LastModified))
	e.SetIntSaturated(colFreshUntil, toDays(ref.FreshUntil))
	e.SetIntSaturated(colWordsInTitle, card(ref.WordsInTitle))
	e.SetIntSaturated(colWordsInText, card(ref.WordsInText))
	e.SetIntSaturated(colPhrasesInText, card(ref.PhrasesInText))
	e.Col(colDocType)[0] = ref.DocType
	_ = e.SetBytes(colLanguage, []byte(truncate(ref.Language, 2)))
	e.SetIntSaturated(colLocalLinks, card(ref.LocalLinks))
	e.SetIntSaturated(colOtherLinks, card(ref.OtherLinks))
	e.SetIntSaturated(colURLLength, card(ref.URLLength))
	e.SetIntSaturated(colURLComps, card(ref.URLComps))
	e.Col(colTypeOfWord)[0] = ref.TypeOfWord
	binary.BigEndian.PutUint32(e.Col(colFlags), uint32(ref.Flags))
	e.SetIntSaturated(colHitCount, card(ref.HitCount))
	e.SetIntSaturated(colPosInText, card(ref.PosInText))
	e.SetIntSaturated(colPosInPhrase, card(ref.PosInPhrase))
	e.SetIntSaturated(colPosOfPhrase, card(ref.PosOfPhrase))
	e.SetIntSaturated(colWordDistance, card(ref.WordDistance))
	binary.BigEndian.PutUint32(e.Col(colScore), math.Float32bits(ref.Score))

	return r
}

// TermFrequency is hits relative to the document size.
func (ref Reference) TermFrequency() float64 {
	return float64(ref.HitCount) / float64(ref.WordsInText+ref.WordsInTitle+1)
}

const day = 24 * time.Hour

// toDays maps t to whole days since the Unix epoch; the zero time and
// anything before the epoch map to 0.
func toDays(t time.Time) uint64 {
	if t.IsZero() || t.Unix() <= 0 {
		return 0
	}
	return uint64(t.Unix() / int64(day/time.Second))
}

func fromDays(d uint64) time.Time {
	if d == 0 {
		return time.Time{}
	}
	return time.Unix(int64(d)*int64(day/time.Second), 0).UTC()
}

func card(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
