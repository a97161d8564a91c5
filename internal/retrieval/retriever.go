package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bluebook-agent/backend/internal/conditions"
	"github.com/bluebook-agent/backend/pkg/logger"
)

// Retriever runs the multi-query search: the raw findings text plus one
// focused sub-query per detected condition, merged with a rank guarantee
// so no single condition's strongest matches are crowded out.
type Retriever struct {
	store              Store
	topK               int
	maxDistance        float64
	guaranteedPerQuery int
}

type Option func(*Retriever)

func WithTopK(k int) Option {
	return func(r *Retriever) { r.topK = k }
}

func WithMaxDistance(d float64) Option {
	return func(r *Retriever) { r.maxDistance = d }
}

func WithGuaranteedPerQuery(n int) Option {
	return func(r *Retriever) { r.guaranteedPerQuery = n }
}

func NewRetriever(store Store, opts ...Option) *Retriever {
	r := &Retriever{
		store:              store,
		topK:               10,
		maxDistance:        0.6, // cosine distance; above this is noise
		guaranteedPerQuery: 3,   // top N from each sub-query always survive
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search issues the raw query plus all condition sub-queries against the
// store and merges the results. Store failures propagate to the caller so
// "index down" stays distinguishable from "legitimately no results".
//
// The merged set is deduplicated by document id (keeping the minimum
// distance and minimum rank seen), split into guaranteed (top-ranked in
// any sub-query) and overflow, filtered by the distance ceiling, capped at
// 2*topK total, and returned sorted ascending by distance.
func (r *Retriever) Search(ctx context.Context, query string) ([]ScoredDocument, error) {
	subQueries := conditions.ExtractQueries(query)

	// The full findings text is always the primary search.
	allQueries := append([]string{query}, subQueries...)

	docMap := make(map[string]ScoredDocument)
	for _, q := range allQueries {
		hits, err := r.store.Query(ctx, q, r.topK)
		if err != nil {
			return nil, fmt.Errorf("vector store query failed: %w", err)
		}

		for rank, hit := range hits {
			existing, seen := docMap[hit.ID]
			if !seen {
				hit.BestRank = rank
				docMap[hit.ID] = hit
				continue
			}
			// Keep the best (lowest) distance and rank across queries.
			if hit.Distance < existing.Distance {
				existing.Distance = hit.Distance
			}
			if rank < existing.BestRank {
				existing.BestRank = rank
			}
			docMap[hit.ID] = existing
		}
	}

	var guaranteed, overflow []ScoredDocument
	for _, doc := range docMap {
		if doc.Distance > r.maxDistance {
			continue
		}
		if doc.BestRank < r.guaranteedPerQuery {
			guaranteed = append(guaranteed, doc)
		} else {
			overflow = append(overflow, doc)
		}
	}

	sort.Slice(overflow, func(i, j int) bool {
		return overflow[i].Distance < overflow[j].Distance
	})

	maxTotal := r.topK * 2
	overflowBudget := maxTotal - len(guaranteed)
	if overflowBudget < 0 {
		overflowBudget = 0
	}
	if overflowBudget > len(overflow) {
		overflowBudget = len(overflow)
	}

	final := append(guaranteed, overflow[:overflowBudget]...)
	sort.Slice(final, func(i, j int) bool {
		return final[i].Distance < final[j].Distance
	})

	logger.Debug("Multi-query retrieval completed",
		zap.Int("sub_queries", len(subQueries)),
		zap.Int("merged", len(docMap)),
		zap.Int("guaranteed", len(guaranteed)),
		zap.Int("returned", len(final)),
	)

	return final, nil
}
