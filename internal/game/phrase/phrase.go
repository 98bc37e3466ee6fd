// Package phrase holds the target-phrase corpus and its random selection pool.
package phrase

import "fmt"

// Phrase is one target text players must reproduce exactly.
type Phrase struct {
	ID         string `json:"id" yaml:"id"`
	Text       string `json:"text" yaml:"text"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Category   string `json:"category" yaml:"category"`
}

// Fallback returns the built-in corpus used when the store has nothing to
// offer. The game ships with a Spanish horror set.
//
// Postcondition: Returns a non-empty, freshly allocated slice.
func Fallback() []Phrase {
	seed := []struct {
		text       string
		difficulty string
	}{
		{"La sombra avanzaba silenciosa por el pasillo.", "media"},
		{"El espejo reflejó una habitación que no era la mía.", "media"},
		{"Cada vez que parpadeaba, alguien estaba más cerca.", "alta"},
		{"Las luces titilaron y la figura estaba ya detrás de mí.", "alta"},
		{"Encontré una nota que decía: vuelve a dormir.", "baja"},
		{"El susurro decía mi nombre detrás de la puerta.", "media"},
		{"Al abrir la puerta, nadie respondió al llamado.", "baja"},
	}
	out := make([]Phrase, 0, len(seed))
	for i, s := range seed {
		out = append(out, Phrase{
			ID:         fmt.Sprintf("local_%d", i),
			Text:       s.text,
			Difficulty: s.difficulty,
			Category:   "terror",
		})
	}
	return out
}
