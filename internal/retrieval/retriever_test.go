package retrieval

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore returns canned hits per query substring, recording what was
// asked.
type fakeStore struct {
	hits    map[string][]ScoredDocument
	queries []string
	err     error
}

func (f *fakeStore) Query(ctx context.Context, text string, topK int) ([]ScoredDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, text)
	hits := f.hits[text]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.hits), nil
}

func doc(id string, distance float64, meta map[string]string) ScoredDocument {
	if meta == nil {
		meta = map[string]string{}
	}
	return ScoredDocument{
		Document: Document{ID: id, Text: "text of " + id, Metadata: meta},
		Distance: distance,
	}
}

func listing(id, number string, distance float64) ScoredDocument {
	return doc(id, distance, map[string]string{
		MetaListingNumber: number,
		MetaDocType:       DocTypeListing,
	})
}

func TestSearchIssuesRawQueryPlusSubQueries(t *testing.T) {
	store := &fakeStore{hits: map[string][]ScoredDocument{}}
	r := NewRetriever(store)

	_, err := r.Search(context.Background(), "diabetic retinopathy with hearing loss")
	require.NoError(t, err)

	// Raw findings first, then the vision, hearing and endocrine
	// sub-queries ("diabetic" triggers the endocrine rule).
	require.Len(t, store.queries, 4)
	assert.Equal(t, "diabetic retinopathy with hearing loss", store.queries[0])
}

func TestSearchDeduplicatesAcrossQueries(t *testing.T) {
	raw := "patient has diabetic retinopathy"
	shared := listing("listing_2.02", "2.02", 0.30)

	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: {shared, listing("listing_6.05", "6.05", 0.45)},
		"loss of central visual acuity visual field contraction visual efficiency impairment": {
			listing("listing_2.02", "2.02", 0.20),
			listing("listing_2.04", "2.04", 0.35),
		},
	}}
	r := NewRetriever(store)

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, res := range results {
		seen[res.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "document %s returned %d times", id, n)
	}

	// The duplicate keeps its minimum distance.
	for _, res := range results {
		if res.ID == "listing_2.02" {
			assert.InDelta(t, 0.20, res.Distance, 1e-9)
		}
	}
}

func TestSearchFiltersByDistanceCeiling(t *testing.T) {
	raw := "chronic pain of unknown etiology"
	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: {
			listing("close", "1.15", 0.40),
			listing("far", "1.16", 0.85),
		},
	}}
	r := NewRetriever(store)

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].ID)
}

func TestSearchSortedAscendingByDistance(t *testing.T) {
	raw := "lumbar disc herniation with radiculopathy"
	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: {
			listing("a", "1.15", 0.50),
			listing("b", "1.16", 0.10),
			listing("c", "1.17", 0.30),
		},
		"disorders of the spine nerve root compression lumbar cervical": {},
	}}
	r := NewRetriever(store)

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	}))
}

func TestSearchGuaranteesTopRankedPerQuery(t *testing.T) {
	// Fill the budget with many cheap hits from the raw query, then make
	// sure a sub-query's top hit still survives even though it is the
	// most distant result overall.
	raw := "extensive findings with hearing loss"

	var rawHits []ScoredDocument
	for i := 0; i < 25; i++ {
		rawHits = append(rawHits, listing(string(rune('a'+i)), "1.15", 0.10+float64(i)*0.01))
	}

	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: rawHits,
		"hearing loss audiometric cochlear implant speech recognition": {
			listing("hearing_hit", "2.10", 0.59),
		},
	}}
	r := NewRetriever(store, WithTopK(10))

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)

	found := false
	for _, res := range results {
		if res.ID == "hearing_hit" {
			found = true
		}
	}
	assert.True(t, found, "top-ranked sub-query hit was crowded out")
}

func TestSearchCapsTotalResults(t *testing.T) {
	raw := "diabetes with depression and anxiety"

	hitsFor := func(prefix string) []ScoredDocument {
		var hits []ScoredDocument
		for i := 0; i < 10; i++ {
			hits = append(hits, listing(prefix+string(rune('a'+i)), "1.15", 0.10+float64(i)*0.01))
		}
		return hits
	}

	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: hitsFor("raw_"),
		"endocrine disorders diabetes complications multiple body systems":  hitsFor("endo_"),
		"depressive disorders anxiety disorders mental disorders cognitive limitations": hitsFor("mental_"),
	}}
	r := NewRetriever(store, WithTopK(10))

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)

	// 30 unique candidates, 9 guaranteed (rank < 3 in each of 3 queries),
	// overflow budget fills the rest up to 2*topK.
	assert.Len(t, results, 20)
}

func TestSearchPropagatesStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("collection not loaded")}
	r := NewRetriever(store)

	_, err := r.Search(context.Background(), "diabetic retinopathy with neuropathy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector store query failed")
}

func TestSearchEmptyStoreReturnsEmpty(t *testing.T) {
	store := &fakeStore{hits: map[string][]ScoredDocument{}}
	r := NewRetriever(store)

	results, err := r.Search(context.Background(), "some findings matching nothing at all")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchMultiConditionMergesSystems(t *testing.T) {
	raw := "diabetes with retinopathy and chronic kidney disease"
	store := &fakeStore{hits: map[string][]ScoredDocument{
		raw: {listing("listing_9.00", "9.00", 0.30)},
		"loss of central visual acuity visual field contraction visual efficiency impairment": {
			listing("listing_2.02", "2.02", 0.25),
		},
		"endocrine disorders diabetes complications multiple body systems": {
			listing("listing_9.00", "9.00", 0.15),
		},
		"chronic kidney disease renal impairment genitourinary": {
			listing("listing_6.05", "6.05", 0.20),
		},
	}}
	r := NewRetriever(store)

	results, err := r.Search(context.Background(), raw)
	require.NoError(t, err)

	numbers := map[string]bool{}
	for _, res := range results {
		numbers[res.Metadata[MetaListingNumber]] = true
	}
	assert.True(t, numbers["2.02"])
	assert.True(t, numbers["6.05"])
	assert.True(t, numbers["9.00"])
}
