package rwi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/termdex/model"
)

func sampleRef(url string) Reference {
	return Reference{
		Doc:           model.HashURL(url),
		LastModified:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		FreshUntil:    time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		WordsInTitle:  4,
		WordsInText:   812,
		PhrasesInText: 40,
		DocType:       't',
		Language:      "en",
		LocalLinks:    17,
		OtherLinks:    3,
		URLLength:     42,
		URLComps:      5,
		Flags:         FlagInTitle | FlagHasImage,
		HitCount:      6,
		PosInText:     12,
		PosInPhrase:   2,
		PosOfPhrase:   1,
		WordDistance:  3,
		Score:         0.75,
	}
}

func TestSchema_Width(t *testing.T) {
	assert.Equal(t, RowSize, Schema.Width())
	assert.Equal(t, 21, Schema.Len())

	i, ok := Schema.Index("t")
	require.True(t, ok)
	assert.Equal(t, "posintext", Schema.Column(i).Description)
}

func TestReference_RoundTrip(t *testing.T) {
	ref := sampleRef("https://example.org/a/b")
	r := ref.Row()

	assert.Equal(t, ref.Doc, r.Doc())
	assert.Equal(t, ref, r.Reference())
}

func TestReference_Saturates(t *testing.T) {
	ref := sampleRef("https://example.org/")
	ref.HitCount = 1000
	ref.WordsInText = 1 << 20
	ref.URLLength = -4
	ref.Language = "english"

	row := ref.Row()
	got := row.Reference()
	assert.Equal(t, 255, got.HitCount)
	assert.Equal(t, 65535, got.WordsInText)
	assert.Equal(t, 0, got.URLLength)
	assert.Equal(t, "en", got.Language)
}

func TestReference_ZeroTimes(t *testing.T) {
	ref := Reference{Doc: model.HashURL("https://example.org/")}
	row := ref.Row()
	got := row.Reference()
	assert.True(t, got.LastModified.IsZero())
	assert.True(t, got.FreshUntil.IsZero())
	assert.Empty(t, got.Language)
}

func TestRow_IsZero(t *testing.T) {
	var r Row
	assert.True(t, r.IsZero())
	r = sampleRef("https://example.org/").Row()
	assert.False(t, r.IsZero())
}

func TestFlags_Has(t *testing.T) {
	f := FlagInTitle | FlagEmphasized
	assert.True(t, f.Has(FlagInTitle))
	assert.True(t, f.Has(FlagInTitle|FlagEmphasized))
	assert.False(t, f.Has(FlagInTitle|FlagHasVideo))
}
