// Package retrieval answers queries against a tenant's active index. It
// embeds the query, searches the deserialized index snapshot, and maps
// result positions back to stored chunks.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/salesmind/ragindex/internal/embedding"
	"github.com/salesmind/ragindex/internal/store"
	"github.com/salesmind/ragindex/internal/textindex"
	"github.com/salesmind/ragindex/internal/vector"
)

// ErrNoIndex is returned when a tenant has no active index for the
// requested name. The caller decides whether that means "build one first"
// or an empty answer.
var ErrNoIndex = errors.New("no active index")

// ErrUnavailable is returned when retrieval cannot run because the
// embedding provider failed. It always wraps the underlying cause.
var ErrUnavailable = errors.New("retrieval unavailable")

// Result is one retrieved chunk with its provenance and scores
type Result struct {
	EmbeddingID int64
	DocumentID  int64
	ChunkIndex  int
	ChunkText   string
	Distance    float32 // squared L2, lower is closer
	Score       float64 // combined relevance, higher is better
}

// Engine runs similarity search over activated index snapshots
type Engine struct {
	tenants    *store.TenantStore
	indexes    *store.IndexStore
	embeddings *store.EmbeddingStore
	embedder   *embedding.Service
	text       *textindex.Manager
}

// NewEngine creates a retrieval engine. text may be nil to disable the
// keyword side of hybrid search.
func NewEngine(
	tenants *store.TenantStore,
	indexes *store.IndexStore,
	embeddings *store.EmbeddingStore,
	embedder *embedding.Service,
	text *textindex.Manager,
) *Engine {
	return &Engine{
		tenants:    tenants,
		indexes:    indexes,
		embeddings: embeddings,
		embedder:   embedder,
		text:       text,
	}
}

// Search embeds the query and returns the topK closest chunks from the
// tenant's active index, ordered by ascending distance. Results only ever
// come from the index snapshot that was active when the call started;
// documents added since the last rebuild are invisible until the next one.
func (e *Engine) Search(ctx context.Context, tenantID int64, name, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 3
	}

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

	return e.searchIndex(ctx, idx, queryVec, topK)
}

// searchIndex runs the vector search against one loaded index row and
// resolves positions to embedding rows.
func (e *Engine) searchIndex(ctx context.Context, idx *store.Index, queryVec []float32, topK int) ([]Result, error) {
	flat, err := vector.DeserializeFlatIndex(idx.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to load index %d: %w", idx.ID, err)
	}

	var meta store.IndexMetadata
	if err := json.Unmarshal([]byte(idx.Metadata), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata of index %d: %w", idx.ID, err)
	}
	if len(meta.EmbeddingIDs) != flat.Len() {
		return nil, fmt.Errorf("index %d metadata lists %d ids for %d vectors",
			idx.ID, len(meta.EmbeddingIDs), flat.Len())
	}

	positions, distances, err := flat.Search(queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("index search failed: %w", err)
	}
	if len(positions) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(positions))
	for i, pos := range positions {
		ids[i] = meta.EmbeddingIDs[pos]
	}
	rows, err := e.embeddings.GetByIDs(ctx, idx.TenantID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(positions))
	for i, pos := range positions {
		id := meta.EmbeddingIDs[pos]
		emb, ok := rows[id]
		if !ok {
			// Embedding deleted after the snapshot was built. Skip it;
			// the stale position disappears at the next rebuild.
			log.Printf("index %d references missing embedding %d, skipping", idx.ID, id)
			continue
		}
		results = append(results, Result{
			EmbeddingID: emb.ID,
			DocumentID:  emb.DocumentID,
			ChunkIndex:  emb.ChunkIndex,
			ChunkText:   emb.ChunkText,
			Distance:    distances[i],
			Score:       distanceScore(distances[i]),
		})
	}
	return results, nil
}

// distanceScore converts a squared L2 distance into a monotone relevance
// score in (0, 1], preserving the distance ordering.
func distanceScore(dist float32) float64 {
	return 1.0 / (1.0 + float64(dist))
}
