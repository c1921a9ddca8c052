package match

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gndm/catalogmatch/internal/catalog"
)

func queenCandidates() []catalog.TrackRecord {
	return []catalog.TrackRecord{
		{Artist: "Queen", Album: "A Night at the Opera", Title: "Bohemian Rhapsody (Remastered 2011)", StoreID: "remaster"},
		{Artist: "Queen Tribute", Album: "Rhapsodies", Title: "Bohemian Rhapsody", StoreID: "tribute"},
	}
}

func TestSelectBest_Empty(t *testing.T) {
	sel := DefaultSelector()

	_, ok := sel.SelectBest(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, nil)
	assert.False(t, ok)

	_, ok = sel.SelectBest(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, []catalog.TrackRecord{})
	assert.False(t, ok)
}

func TestSelectBest_PrefersNoiseStrippedExactArtist(t *testing.T) {
	sel := DefaultSelector()

	got, ok := sel.SelectBest(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, queenCandidates())
	require.True(t, ok)
	assert.Equal(t, "remaster", got.StoreID)
}

func TestRank_SortedAscending(t *testing.T) {
	sel := DefaultSelector()
	candidates := append(queenCandidates(),
		catalog.TrackRecord{Artist: "Panic! At The Disco", Title: "Bohemian Rhapsody", StoreID: "panic"},
		catalog.TrackRecord{Artist: "Queen", Title: "Bohemian Rhapsody", StoreID: "exact"},
	)

	ranked := sel.Rank(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, candidates)
	require.Len(t, ranked, 4)
	assert.Equal(t, "exact", ranked[0].Track.StoreID)
	assert.Zero(t, ranked[0].Score)
	assert.Equal(t, "remaster", ranked[1].Track.StoreID)
	assert.InDelta(t, 0.2, ranked[1].Score, 1e-9)
	for i := 1; i < len(ranked); i++ {
		assert.LessOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	sel := DefaultSelector()
	candidates := []catalog.TrackRecord{
		{Artist: "Queen", Title: "Bohemian Rhapsody", StoreID: "first"},
		{Artist: "Muse", Title: "Uprising", StoreID: "other"},
		{Artist: "The Queen", Title: "Bohemian Rhapsody - Remastered", StoreID: "second"},
		{Artist: "QUEEN", Title: "bohemian rhapsody", StoreID: "third"},
	}

	ranked := sel.Rank(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, candidates)
	ids := []string{ranked[0].Track.StoreID, ranked[1].Track.StoreID, ranked[2].Track.StoreID}
	assert.Equal(t, []string{"first", "second", "third"}, ids)

	best, ok := sel.SelectBest(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, candidates)
	require.True(t, ok)
	assert.Equal(t, "first", best.StoreID)
}

func TestRank_DoesNotModifyInput(t *testing.T) {
	sel := DefaultSelector()
	candidates := queenCandidates()
	candidates[0], candidates[1] = candidates[1], candidates[0]
	before := append([]catalog.TrackRecord(nil), candidates...)

	sel.Rank(Query{Artist: "Queen", Title: "Bohemian Rhapsody"}, candidates)
	assert.Equal(t, before, candidates)
}

func TestSelector_ConcurrentUse(t *testing.T) {
	sel := DefaultSelector()
	q := Query{Artist: "Queen", Title: "Bohemian Rhapsody"}

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			best, _ := sel.SelectBest(q, queenCandidates())
			results[i] = best.StoreID
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, "remaster", id)
	}
}
