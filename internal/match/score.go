package match

import "unicode/utf8"

// Scorer compares normalized strings.
type Scorer struct {
	norm *Normalizer
}

// NewScorer returns a Scorer using norm. A nil norm means the default
// configuration.
func NewScorer(norm *Normalizer) Scorer {
	if norm == nil {
		norm = defaultNormalizer
	}
	return Scorer{norm: norm}
}

// Ratio is the edit distance between the normalized forms of x and y divided
// by the longer normalized length, with a floor of 1 so two empty strings
// score 0.
func (s Scorer) Ratio(x, y string) float64 {
	nx, ny := s.norm.Normalize(x), s.norm.Normalize(y)
	longest := max(utf8.RuneCountInString(nx), utf8.RuneCountInString(ny), 1)
	return float64(Distance(nx, ny)) / float64(longest)
}

// Score sums the artist and title ratios of a candidate against a query.
func (s Scorer) Score(candidateArtist, queryArtist, candidateTitle, queryTitle string) float64 {
	return s.Ratio(candidateArtist, queryArtist) + s.Ratio(candidateTitle, queryTitle)
}
