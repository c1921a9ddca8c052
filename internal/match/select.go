package match

import (
	"cmp"
	"slices"

	"github.com/gndm/catalogmatch/internal/catalog"
)

// Query is the artist and title a caller is looking for.
type Query struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// ScoredCandidate pairs a search hit with its score against a Query.
type ScoredCandidate struct {
	Score float64             `json:"score"`
	Track catalog.TrackRecord `json:"track"`
}

// Selector picks the best catalog hit for a Query.
type Selector struct {
	scorer Scorer
}

// NewSelector returns a Selector scoring with scorer.
func NewSelector(scorer Scorer) *Selector {
	return &Selector{scorer: scorer}
}

// DefaultSelector scores with the default normalizer.
func DefaultSelector() *Selector {
	return NewSelector(NewScorer(nil))
}

// Score rates a single hit against q.
func (s *Selector) Score(q Query, t catalog.TrackRecord) float64 {
	return s.scorer.Score(t.Artist, q.Artist, t.Title, q.Title)
}

// Rank scores every candidate and sorts them best first. Equal scores keep
// their original order.
func (s *Selector) Rank(q Query, candidates []catalog.TrackRecord) []ScoredCandidate {
	ranked := make([]ScoredCandidate, len(candidates))
	for i, t := range candidates {
		ranked[i] = ScoredCandidate{Score: s.Score(q, t), Track: t}
	}
	slices.SortStableFunc(ranked, func(a, b ScoredCandidate) int {
		return cmp.Compare(a.Score, b.Score)
	})
	return ranked
}

// Best returns the lowest-scoring candidate, or false when there are none.
func (s *Selector) Best(q Query, candidates []catalog.TrackRecord) (ScoredCandidate, bool) {
	if len(candidates) == 0 {
		return ScoredCandidate{}, false
	}
	return s.Rank(q, candidates)[0], true
}

// SelectBest returns the best matching track, or false when candidates is
// empty.
func (s *Selector) SelectBest(q Query, candidates []catalog.TrackRecord) (catalog.TrackRecord, bool) {
	best, ok := s.Best(q, candidates)
	return best.Track, ok
}
