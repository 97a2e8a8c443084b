package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/salesmind/ragindex/internal/store"
)

// SearchOptions configures hybrid search behavior
type SearchOptions struct {
	TopK          int
	VectorWeight  float64
	KeywordWeight float64
}

// DefaultSearchOptions returns the default hybrid weighting
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:          3,
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
	}
}

// SearchHybrid combines vector similarity with bleve keyword matching. The
// vector side is authoritative: a missing or failed keyword index degrades
// the search to pure vector scoring instead of failing it.
func (e *Engine) SearchHybrid(ctx context.Context, tenantID int64, name, query string, opts SearchOptions) ([]Result, error) {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	totalWeight := opts.VectorWeight + opts.KeywordWeight
	if totalWeight == 0 {
		opts.VectorWeight = 1.0
		totalWeight = 1.0
	}
	opts.VectorWeight /= totalWeight
	opts.KeywordWeight /= totalWeight

	idx, err := e.indexes.GetActive(ctx, tenantID, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: tenant %d index %q", ErrNoIndex, tenantID, name)
	}
	if err != nil {
		return nil, err
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	// Overfetch both sides so the merged ranking has candidates beyond the
	// final cut.
	vectorResults, err := e.searchIndex(ctx, idx, queryVec, opts.TopK*2)
	if err != nil {
		return nil, err
	}

	keywordScores := e.keywordScores(ctx, tenantID, name, query, opts)
	if len(keywordScores) == 0 {
		if len(vectorResults) > opts.TopK {
			vectorResults = vectorResults[:opts.TopK]
		}
		return vectorResults, nil
	}

	merged := make(map[int64]*Result, len(vectorResults))
	for i := range vectorResults {
		r := vectorResults[i]
		r.Score = opts.VectorWeight * r.Score
		merged[r.EmbeddingID] = &r
	}
	for id, score := range keywordScores {
		if r, ok := merged[id]; ok {
			r.Score += opts.KeywordWeight * score
			continue
		}
		// Keyword-only hit: the chunk matched terms but was outside the
		// vector cut. Pull the row in with no vector contribution.
		rows, err := e.embeddings.GetByIDs(ctx, tenantID, []int64{id})
		if err != nil || rows[id] == nil {
			continue
		}
		emb := rows[id]
		merged[id] = &Result{
			EmbeddingID: emb.ID,
			DocumentID:  emb.DocumentID,
			ChunkIndex:  emb.ChunkIndex,
			ChunkText:   emb.ChunkText,
			Distance:    0,
			Score:       opts.KeywordWeight * score,
		}
	}

	results := make([]Result, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].EmbeddingID < results[j].EmbeddingID
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// keywordScores returns max-normalized bleve scores per embedding id, or nil
// when the keyword side cannot contribute.
func (e *Engine) keywordScores(ctx context.Context, tenantID int64, name, query string, opts SearchOptions) map[int64]float64 {
	if e.text == nil || opts.KeywordWeight == 0 {
		return nil
	}
	tenant, err := e.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil
	}
	hits, err := e.text.Search(tenant.PublicID, name, query, opts.TopK*2)
	if err != nil {
		log.Printf("keyword search failed for tenant %d: %v", tenantID, err)
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	maxScore := hits[0].Score
	for _, hit := range hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	scores := make(map[int64]float64, len(hits))
	for _, hit := range hits {
		scores[hit.EmbeddingID] = hit.Score / maxScore
	}
	return scores
}
