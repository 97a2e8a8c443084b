// Package indexer turns stored documents into embeddings and assembles
// per-tenant similarity indexes.
package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/salesmind/ragindex/internal/chunker"
	"github.com/salesmind/ragindex/internal/embedding"
	"github.com/salesmind/ragindex/internal/events"
	"github.com/salesmind/ragindex/internal/store"
	"github.com/salesmind/ragindex/internal/vector"
)

// Pipeline creates embeddings for a document's chunks
type Pipeline struct {
	documents  *store.DocumentStore
	embeddings *store.EmbeddingStore
	embedder   *embedding.Service
	chunks     *chunker.Chunker
	bus        *events.Bus
	progress   ProgressReporter
}

// NewPipeline creates an embedding pipeline
func NewPipeline(
	documents *store.DocumentStore,
	embeddings *store.EmbeddingStore,
	embedder *embedding.Service,
	chunks *chunker.Chunker,
	bus *events.Bus,
) *Pipeline {
	return &Pipeline{
		documents:  documents,
		embeddings: embeddings,
		embedder:   embedder,
		chunks:     chunks,
		bus:        bus,
	}
}

// SetProgress attaches an optional progress reporter for interactive runs
func (p *Pipeline) SetProgress(progress ProgressReporter) {
	p.progress = progress
}

// EmbedDocument chunks a document's extracted text, embeds every chunk in
// order, and persists the whole batch in one transaction. The batch is
// all-or-nothing: if any chunk fails to embed, nothing is persisted for the
// document, because a partially embedded document degrades retrieval quality
// without any visible signal. A document with no extracted text yields no
// embeddings and no error.
func (p *Pipeline) EmbedDocument(ctx context.Context, documentID int64) ([]*store.Embedding, error) {
	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if doc.ExtractedText == "" {
		log.Printf("document %d (%s) has no extracted text, skipping", doc.ID, doc.Filename)
		return nil, nil
	}

	texts := p.chunks.Split(doc.ExtractedText)
	if len(texts) == 0 {
		log.Printf("document %d (%s) produced no chunks, skipping", doc.ID, doc.Filename)
		return nil, nil
	}

	if p.progress != nil {
		p.progress.Start(len(texts))
		defer p.progress.Finish()
	}

	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %d: %w", doc.ID, err)
	}

	model := p.embedder.Model()
	records := make([]*store.Embedding, 0, len(texts))
	for i, text := range texts {
		blob, err := vector.EncodeVector(vecs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode chunk %d vector: %w", i, err)
		}
		records = append(records, &store.Embedding{
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			ChunkText:  text,
			ChunkIndex: i,
			Vector:     blob,
			Dimension:  len(vecs[i]),
			Model:      model,
		})
		if p.progress != nil {
			p.progress.Increment()
		}
	}

	if err := p.embeddings.InsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to persist embeddings for document %d: %w", doc.ID, err)
	}

	if !doc.IsProcessed {
		if err := p.documents.MarkProcessed(ctx, doc.ID); err != nil {
			return nil, err
		}
	}

	if p.bus != nil {
		p.bus.Publish(events.EmbeddingsCreated{
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			Count:      len(records),
			At:         time.Now().UTC(),
		})
	}

	log.Printf("created %d embeddings for document %d (%s)", len(records), doc.ID, doc.Filename)
	return records, nil
}

// EmbedAllDocuments runs EmbedDocument for every processed document of a
// tenant that has no embeddings yet.
func (p *Pipeline) EmbedAllDocuments(ctx context.Context, tenantID int64) (int, error) {
	docs, err := p.documents.List(ctx, tenantID, true)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, doc := range docs {
		existing, err := p.embeddings.ListByDocument(ctx, doc.ID)
		if err != nil {
			return total, err
		}
		if len(existing) > 0 {
			continue
		}
		records, err := p.EmbedDocument(ctx, doc.ID)
		if err != nil {
			return total, err
		}
		total += len(records)
	}
	return total, nil
}
