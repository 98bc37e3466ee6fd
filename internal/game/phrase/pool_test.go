package phrase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/finalsentence/server/internal/game/phrase"
)

type stubSource struct {
	vals []int
	i    int
}

func (s *stubSource) Intn(n int) int {
	v := s.vals[s.i%len(s.vals)] % n
	s.i++
	return v
}

func TestNewPool_FallbackWhenEmpty(t *testing.T) {
	pool := phrase.NewPool(nil, &stubSource{vals: []int{0}})
	assert.Equal(t, len(phrase.Fallback()), pool.Len())

	drawn := pool.Draw()
	assert.Equal(t, phrase.Fallback()[0].Text, drawn.Text)
}

func TestNewPool_StoredPhrasesComeFirst(t *testing.T) {
	stored := []phrase.Phrase{
		{ID: "db_1", Text: "El reloj marcó una hora que no existe.", Difficulty: "baja", Category: "terror"},
		{ID: "db_2", Text: "Nadie recordaba haber cerrado esa puerta.", Difficulty: "media", Category: "terror"},
	}
	pool := phrase.NewPool(stored, &stubSource{vals: []int{0, 1}})
	assert.Equal(t, len(stored)+len(phrase.Fallback()), pool.Len())

	assert.Equal(t, "db_1", pool.Draw().ID)
	assert.Equal(t, "db_2", pool.Draw().ID)
}

func TestNewPool_DedupesByTrimmedText(t *testing.T) {
	dup := phrase.Fallback()[2]
	stored := []phrase.Phrase{
		{ID: "db_9", Text: "  " + dup.Text + "\n", Difficulty: "alta", Category: "terror"},
	}
	pool := phrase.NewPool(stored, &stubSource{vals: []int{0}})
	assert.Equal(t, len(phrase.Fallback()), pool.Len(), "duplicate fallback text collapses")

	// The stored copy wins over the fallback one.
	assert.Equal(t, "db_9", pool.Draw().ID)
}

func TestDraw_ReturnsIndependentCopies(t *testing.T) {
	pool := phrase.NewPool(nil, &stubSource{vals: []int{3, 3}})
	first := pool.Draw()
	first.Text = "mutated"
	second := pool.Draw()
	assert.NotEqual(t, "mutated", second.Text)
}

func TestFallback_HasUsableEntries(t *testing.T) {
	fb := phrase.Fallback()
	require.NotEmpty(t, fb)
	seen := make(map[string]bool, len(fb))
	for _, p := range fb {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Text)
		assert.False(t, seen[p.Text], "duplicate fallback text %q", p.Text)
		seen[p.Text] = true
	}
}

func TestProperty_DrawAlwaysReturnsPoolMember(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var stored []phrase.Phrase
		n := rapid.IntRange(0, 5).Draw(rt, "stored")
		for i := 0; i < n; i++ {
			stored = append(stored, phrase.Phrase{
				ID:   rapid.StringMatching(`db_[0-9]{1,4}`).Draw(rt, "id"),
				Text: rapid.StringMatching(`[a-z]{8,30}`).Draw(rt, "text"),
			})
		}
		src := &stubSource{vals: []int{rapid.IntRange(0, 1000).Draw(rt, "pick")}}
		pool := phrase.NewPool(stored, src)

		texts := make(map[string]bool)
		for _, p := range stored {
			texts[p.Text] = true
		}
		for _, p := range phrase.Fallback() {
			texts[p.Text] = true
		}

		drawn := pool.Draw()
		if !texts[drawn.Text] {
			rt.Fatalf("drew %q which is in neither stored nor fallback set", drawn.Text)
		}
	})
}
