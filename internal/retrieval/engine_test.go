package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/salesmind/ragindex/internal/config"
	"github.com/salesmind/ragindex/internal/embedding"
	"github.com/salesmind/ragindex/internal/store"
	"github.com/salesmind/ragindex/internal/textindex"
	"github.com/salesmind/ragindex/internal/vector"
)

// fixedClient always returns the same query vector, or fails when told to.
type fixedClient struct {
	vec  []float32
	fail bool
}

func (f *fixedClient) Embed(context.Context, string) ([]float32, error) {
	if f.fail {
		return nil, fmt.Errorf("%w: provider down", embedding.ErrProvider)
	}
	return f.vec, nil
}

func (f *fixedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fixedClient) Dimensions() int { return len(f.vec) }
func (f *fixedClient) Model() string   { return "fake-model" }

type testEnv struct {
	db         *store.DB
	tenants    *store.TenantStore
	documents  *store.DocumentStore
	embeddings *store.EmbeddingStore
	indexes    *store.IndexStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &testEnv{
		db:         db,
		tenants:    store.NewTenantStore(db),
		documents:  store.NewDocumentStore(db),
		embeddings: store.NewEmbeddingStore(db),
		indexes:    store.NewIndexStore(db),
	}
}

func (e *testEnv) newEngine(t *testing.T, client embedding.Client, text *textindex.Manager) *Engine {
	t.Helper()
	svc := embedding.NewServiceWithClient(
		&config.EmbeddingConfig{Provider: "openai", Model: "fake-model", Dimensions: client.Dimensions()},
		client,
	)
	return NewEngine(e.tenants, e.indexes, e.embeddings, svc, text)
}

// seedTenant creates a tenant with one embedding per chunk vector and an
// activated flat index over them, returning the tenant and embedding ids.
func (e *testEnv) seedTenant(t *testing.T, name string, chunks []string, vecs [][]float32) (*store.Tenant, []int64) {
	t.Helper()
	ctx := context.Background()

	tenant, err := e.tenants.Create(ctx, "pub-"+name, name)
	if err != nil {
		t.Fatalf("Create tenant error = %v", err)
	}
	doc, err := e.documents.Create(ctx, &store.Document{
		TenantID: tenant.ID, Filename: name + ".txt", FileType: "txt",
		Content: []byte(name), ContentHash: "hash-" + name, IsProcessed: true,
	})
	if err != nil {
		t.Fatalf("Create document error = %v", err)
	}

	records := make([]*store.Embedding, len(chunks))
	for i := range chunks {
		blob, err := vector.EncodeVector(vecs[i])
		if err != nil {
			t.Fatalf("EncodeVector() error = %v", err)
		}
		records[i] = &store.Embedding{
			TenantID: tenant.ID, DocumentID: doc.ID,
			ChunkText: chunks[i], ChunkIndex: i,
			Vector: blob, Dimension: len(vecs[i]), Model: "fake-model",
		}
	}
	if err := e.embeddings.InsertBatch(ctx, records); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	flat, err := vector.NewFlatIndex(len(vecs[0]))
	if err != nil {
		t.Fatalf("NewFlatIndex() error = %v", err)
	}
	ids := make([]int64, len(records))
	for i, rec := range records {
		if err := flat.Add(vecs[i]); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		ids[i] = rec.ID
	}
	data, err := flat.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	meta, err := json.Marshal(store.IndexMetadata{EmbeddingIDs: ids, Model: "fake-model"})
	if err != nil {
		t.Fatalf("Marshal metadata error = %v", err)
	}
	_, err = e.indexes.Activate(ctx, &store.Index{
		TenantID: tenant.ID, Name: "main_index", Data: data,
		Metadata: string(meta), Dimension: len(vecs[0]), TotalVectors: flat.Len(),
	})
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	return tenant, ids
}

func TestSearchTopHit(t *testing.T) {
	env := newTestEnv(t)
	tenant, ids := env.seedTenant(t, "acme",
		[]string{"pool villa", "downtown flat", "mountain cabin"},
		[][]float32{{1, 0}, {0, 1}, {10, 10}},
	)

	engine := env.newEngine(t, &fixedClient{vec: []float32{0.9, 0.1}}, nil)
	results, err := engine.Search(context.Background(), tenant.ID, "main_index", "pool", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].EmbeddingID != ids[0] {
		t.Errorf("top hit id = %d, want %d", results[0].EmbeddingID, ids[0])
	}
	if results[0].ChunkText != "pool villa" {
		t.Errorf("top hit text = %q", results[0].ChunkText)
	}
	if results[0].Distance > results[1].Distance {
		t.Error("results not ordered by ascending distance")
	}
	if results[0].Score < results[1].Score {
		t.Error("scores not descending with distance")
	}
}

func TestSearchDeterministic(t *testing.T) {
	env := newTestEnv(t)
	tenant, _ := env.seedTenant(t, "acme",
		[]string{"a", "b", "c", "d"},
		[][]float32{{1, 1}, {2, 2}, {3, 3}, {4, 4}},
	)

	engine := env.newEngine(t, &fixedClient{vec: []float32{2.5, 2.5}}, nil)
	first, err := engine.Search(context.Background(), tenant.ID, "main_index", "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := engine.Search(context.Background(), tenant.ID, "main_index", "q", 3)
	if err != nil {
		t.Fatalf("Search() repeat error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].EmbeddingID != second[i].EmbeddingID {
			t.Errorf("position %d: ids differ %d vs %d", i, first[i].EmbeddingID, second[i].EmbeddingID)
		}
	}
}

func TestSearchTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	tenantA, idsA := env.seedTenant(t, "a",
		[]string{"alpha secret"}, [][]float32{{1, 0}})
	env.seedTenant(t, "b",
		[]string{"beta secret"}, [][]float32{{1, 0}})

	engine := env.newEngine(t, &fixedClient{vec: []float32{1, 0}}, nil)
	results, err := engine.Search(context.Background(), tenantA.ID, "main_index", "secret", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].EmbeddingID != idsA[0] || results[0].ChunkText != "alpha secret" {
		t.Errorf("got foreign tenant's chunk: %+v", results[0])
	}
}

func TestSearchNoIndex(t *testing.T) {
	env := newTestEnv(t)
	tenant, err := env.tenants.Create(context.Background(), "pub-x", "x")
	if err != nil {
		t.Fatalf("Create tenant error = %v", err)
	}

	engine := env.newEngine(t, &fixedClient{vec: []float32{1, 0}}, nil)
	_, err = engine.Search(context.Background(), tenant.ID, "main_index", "q", 3)
	if !errors.Is(err, ErrNoIndex) {
		t.Errorf("Search() error = %v, want ErrNoIndex", err)
	}
}

func TestSearchProviderDown(t *testing.T) {
	env := newTestEnv(t)
	tenant, _ := env.seedTenant(t, "acme", []string{"a"}, [][]float32{{1, 0}})

	engine := env.newEngine(t, &fixedClient{vec: []float32{1, 0}, fail: true}, nil)
	_, err := engine.Search(context.Background(), tenant.ID, "main_index", "q", 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Search() error = %v, want ErrUnavailable", err)
	}
	if !errors.Is(err, embedding.ErrProvider) {
		t.Errorf("Search() error = %v, want wrapped ErrProvider cause", err)
	}
}

func TestSearchSkipsDeletedEmbeddings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tenant, ids := env.seedTenant(t, "acme",
		[]string{"keep", "gone"},
		[][]float32{{1, 0}, {0.9, 0}},
	)

	// Delete the second embedding directly so the snapshot still
	// references its id.
	if _, err := env.db.SQLDB().ExecContext(ctx, `DELETE FROM embeddings WHERE id = ?`, ids[1]); err != nil {
		t.Fatalf("delete embedding error = %v", err)
	}

	engine := env.newEngine(t, &fixedClient{vec: []float32{0.95, 0}}, nil)
	results, err := engine.Search(ctx, tenant.ID, "main_index", "q", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 after skip", len(results))
	}
	if results[0].EmbeddingID != ids[0] {
		t.Errorf("surviving hit id = %d, want %d", results[0].EmbeddingID, ids[0])
	}
}

func TestSearchHybridKeywordBoost(t *testing.T) {
	env := newTestEnv(t)
	text := textindex.NewManager(t.TempDir())
	tenant, ids := env.seedTenant(t, "acme",
		[]string{"generic description of a house", "villa with private swimming pool"},
		[][]float32{{1, 0}, {0, 1}},
	)
	err := text.Rebuild(tenant.PublicID, "main_index", []textindex.ChunkDoc{
		{EmbeddingID: ids[0], Content: "generic description of a house", ChunkIndex: 0},
		{EmbeddingID: ids[1], Content: "villa with private swimming pool", ChunkIndex: 1},
	})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	// The query vector favors the generic chunk; the keyword match favors
	// the pool chunk. With keyword weight high, the pool chunk must win.
	engine := env.newEngine(t, &fixedClient{vec: []float32{1, 0}}, text)
	results, err := engine.SearchHybrid(context.Background(), tenant.ID, "main_index", "swimming pool",
		SearchOptions{TopK: 2, VectorWeight: 0.1, KeywordWeight: 0.9})
	if err != nil {
		t.Fatalf("SearchHybrid() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].EmbeddingID != ids[1] {
		t.Errorf("top hybrid hit id = %d, want keyword-matched %d", results[0].EmbeddingID, ids[1])
	}
}

func TestSearchHybridDegradesWithoutKeywordIndex(t *testing.T) {
	env := newTestEnv(t)
	text := textindex.NewManager(t.TempDir())
	tenant, ids := env.seedTenant(t, "acme",
		[]string{"close", "far"},
		[][]float32{{1, 0}, {5, 5}},
	)

	engine := env.newEngine(t, &fixedClient{vec: []float32{1, 0}}, text)
	results, err := engine.SearchHybrid(context.Background(), tenant.ID, "main_index", "anything",
		DefaultSearchOptions())
	if err != nil {
		t.Fatalf("SearchHybrid() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].EmbeddingID != ids[0] {
		t.Errorf("top hit id = %d, want vector-closest %d", results[0].EmbeddingID, ids[0])
	}
}
