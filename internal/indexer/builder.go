package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/salesmind/ragindex/internal/events"
	"github.com/salesmind/ragindex/internal/store"
	"github.com/salesmind/ragindex/internal/textindex"
	"github.com/salesmind/ragindex/internal/vector"
)

// ErrNoEmbeddings is returned when a tenant has nothing to index. An
// existing active index is left untouched.
var ErrNoEmbeddings = errors.New("tenant has no embeddings")

// ErrDimensionMismatch is returned when a tenant's embeddings disagree on
// vector dimension, which indicates a partially migrated embedding model.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Builder assembles a tenant's embeddings into a versioned, activatable
// similarity index.
type Builder struct {
	tenants    *store.TenantStore
	embeddings *store.EmbeddingStore
	indexes    *store.IndexStore
	documents  *store.DocumentStore
	text       *textindex.Manager
	bus        *events.Bus

	chunkSize    int
	chunkOverlap int

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewBuilder creates an index builder. text may be nil to skip keyword
// indexing.
func NewBuilder(
	tenants *store.TenantStore,
	embeddings *store.EmbeddingStore,
	indexes *store.IndexStore,
	documents *store.DocumentStore,
	text *textindex.Manager,
	bus *events.Bus,
	chunkSize, chunkOverlap int,
) *Builder {
	return &Builder{
		tenants:      tenants,
		embeddings:   embeddings,
		indexes:      indexes,
		documents:    documents,
		text:         text,
		bus:          bus,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		locks:        map[int64]*sync.Mutex{},
	}
}

// tenantLock serializes rebuilds per tenant. Two concurrent rebuilds for the
// same tenant must not interleave their activate steps.
func (b *Builder) tenantLock(tenantID int64) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[tenantID] = lock
	}
	return lock
}

// BuildIndex rebuilds the named index from the tenant's complete current
// embedding set and atomically activates it. The index is always built
// fresh, never incrementally patched.
func (b *Builder) BuildIndex(ctx context.Context, tenantID int64, name string) (*store.Index, error) {
	lock := b.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	embeddings, err := b.embeddings.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: tenant %d", ErrNoEmbeddings, tenantID)
	}

	dim := embeddings[0].Dimension
	for _, emb := range embeddings {
		if emb.Dimension != dim {
			return nil, fmt.Errorf("%w: tenant %d has dimensions %d and %d",
				ErrDimensionMismatch, tenantID, dim, emb.Dimension)
		}
	}

	flat, err := vector.NewFlatIndex(dim)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(embeddings))
	for _, emb := range embeddings {
		vec, err := vector.DecodeVector(emb.Vector)
		if err != nil {
			return nil, fmt.Errorf("failed to decode vector for embedding %d: %w", emb.ID, err)
		}
		if err := flat.Add(vec); err != nil {
			return nil, fmt.Errorf("failed to add embedding %d to index: %w", emb.ID, err)
		}
		ids = append(ids, emb.ID)
	}

	data, err := flat.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize index: %w", err)
	}

	// The id list order must exactly match insertion order; search results
	// are positional and meaningless without it.
	metadata, err := json.Marshal(store.IndexMetadata{
		EmbeddingIDs: ids,
		Model:        embeddings[0].Model,
		ChunkSize:    b.chunkSize,
		ChunkOverlap: b.chunkOverlap,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index metadata: %w", err)
	}

	idx, err := b.indexes.Activate(ctx, &store.Index{
		TenantID:     tenantID,
		Name:         name,
		Data:         data,
		Metadata:     string(metadata),
		Dimension:    dim,
		TotalVectors: flat.Len(),
		IndexType:    "flat_l2",
	})
	if err != nil {
		return nil, err
	}

	if err := b.rebuildTextIndex(ctx, tenantID, name, embeddings); err != nil {
		// Keyword index failure degrades hybrid search but the activated
		// vector index stays authoritative.
		log.Printf("keyword index rebuild failed for tenant %d: %v", tenantID, err)
	}

	if b.bus != nil {
		b.bus.Publish(events.IndexBuilt{
			TenantID:     tenantID,
			IndexID:      idx.ID,
			Name:         name,
			Version:      idx.Version,
			TotalVectors: idx.TotalVectors,
			At:           time.Now().UTC(),
		})
	}

	log.Printf("built index %q v%d for tenant %d (%d vectors, dim %d)",
		name, idx.Version, tenantID, idx.TotalVectors, dim)
	return idx, nil
}

// BuildAll rebuilds the named index for every tenant that has embeddings
func (b *Builder) BuildAll(ctx context.Context, name string) (int, error) {
	tenants, err := b.tenants.List(ctx)
	if err != nil {
		return 0, err
	}

	built := 0
	for _, tenant := range tenants {
		_, err := b.BuildIndex(ctx, tenant.ID, name)
		if errors.Is(err, ErrNoEmbeddings) {
			continue
		}
		if err != nil {
			return built, fmt.Errorf("failed to build index for tenant %q: %w", tenant.Name, err)
		}
		built++
	}
	return built, nil
}

func (b *Builder) rebuildTextIndex(ctx context.Context, tenantID int64, name string, embeddings []*store.Embedding) error {
	if b.text == nil {
		return nil
	}
	tenant, err := b.tenants.Get(ctx, tenantID)
	if err != nil {
		return err
	}

	filenames := map[int64]string{}
	docs := make([]textindex.ChunkDoc, 0, len(embeddings))
	for _, emb := range embeddings {
		filename, ok := filenames[emb.DocumentID]
		if !ok {
			if doc, err := b.documents.GetByID(ctx, emb.DocumentID); err == nil {
				filename = doc.Filename
			}
			filenames[emb.DocumentID] = filename
		}
		docs = append(docs, textindex.ChunkDoc{
			EmbeddingID: emb.ID,
			Content:     emb.ChunkText,
			Filename:    filename,
			ChunkIndex:  emb.ChunkIndex,
		})
	}
	return b.text.Rebuild(tenant.PublicID, name, docs)
}
