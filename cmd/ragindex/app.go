package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/salesmind/ragindex/internal/chunker"
	"github.com/salesmind/ragindex/internal/config"
	"github.com/salesmind/ragindex/internal/docstore"
	"github.com/salesmind/ragindex/internal/embedding"
	"github.com/salesmind/ragindex/internal/events"
	"github.com/salesmind/ragindex/internal/extract"
	"github.com/salesmind/ragindex/internal/indexer"
	"github.com/salesmind/ragindex/internal/retrieval"
	"github.com/salesmind/ragindex/internal/store"
	"github.com/salesmind/ragindex/internal/tenant"
	"github.com/salesmind/ragindex/internal/textindex"
)

// app wires the storage layer and services for one CLI invocation
type app struct {
	cfg *config.Config
	db  *store.DB
	bus *events.Bus

	tenants    *store.TenantStore
	documents  *store.DocumentStore
	embeddings *store.EmbeddingStore
	indexes    *store.IndexStore

	registry *tenant.Registry
	docs     *docstore.Store
	pipeline *indexer.Pipeline
	builder  *indexer.Builder
	engine   *retrieval.Engine
}

func newApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	embedder, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := events.NewBus()
	bus.Subscribe("audit", func(ev events.Event) {
		log.Printf("event %s: %+v", ev.EventName(), ev)
	})

	tenants := store.NewTenantStore(db)
	documents := store.NewDocumentStore(db)
	embeddings := store.NewEmbeddingStore(db)
	indexes := store.NewIndexStore(db)
	text := textindex.NewManager(cfg.Database.DataDir)
	chunks := chunker.New(cfg.Chunking.MaxChars, cfg.Chunking.Overlap)

	a := &app{
		cfg:        cfg,
		db:         db,
		bus:        bus,
		tenants:    tenants,
		documents:  documents,
		embeddings: embeddings,
		indexes:    indexes,
		registry:   tenant.NewRegistry(tenants),
		docs:       docstore.New(documents, embeddings, extract.Default(), bus),
		pipeline:   indexer.NewPipeline(documents, embeddings, embedder, chunks, bus),
		builder: indexer.NewBuilder(tenants, embeddings, indexes, documents, text, bus,
			cfg.Chunking.MaxChars, cfg.Chunking.Overlap),
		engine: retrieval.NewEngine(tenants, indexes, embeddings, embedder, text),
	}
	return a, nil
}

func (a *app) Close() {
	a.bus.Close()
	if err := a.db.Close(); err != nil {
		log.Printf("failed to close database: %v", err)
	}
}
