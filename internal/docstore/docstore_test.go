package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/salesmind/ragindex/internal/extract"
	"github.com/salesmind/ragindex/internal/store"
)

func newTestStore(t *testing.T) (*Store, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(
		store.NewDocumentStore(db),
		store.NewEmbeddingStore(db),
		extract.NewDispatcher(extract.NewPlain()),
		nil,
	)
	return s, db
}

func newTestTenant(t *testing.T, db *store.DB, name string) *store.Tenant {
	t.Helper()
	tenant, err := store.NewTenantStore(db).Create(context.Background(), "pub-"+name, name)
	if err != nil {
		t.Fatalf("Create tenant error = %v", err)
	}
	return tenant
}

func TestAddDocumentDedup(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, db, "acme")

	content := []byte("Casa Aurora $250,000. Casa Diamante $180,000.")

	first, created, err := s.AddDocument(ctx, tenant.ID, "catalog.txt", content)
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}
	if !created {
		t.Error("first upload should create a document")
	}
	if !first.IsProcessed {
		t.Error("document with extractable text should be processed")
	}

	second, created, err := s.AddDocument(ctx, tenant.ID, "catalog-copy.txt", content)
	if err != nil {
		t.Fatalf("AddDocument() duplicate error = %v", err)
	}
	if created {
		t.Error("identical bytes should dedup, not create")
	}
	if second.ID != first.ID {
		t.Errorf("dedup returned id %d, want existing id %d", second.ID, first.ID)
	}

	docs, err := s.Documents(ctx, tenant.ID, false)
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("documents after duplicate upload = %d, want 1", len(docs))
	}
}

func TestAddDocumentDedupPerTenant(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	tenantA := newTestTenant(t, db, "a")
	tenantB := newTestTenant(t, db, "b")

	content := []byte("shared catalog text")

	_, createdA, err := s.AddDocument(ctx, tenantA.ID, "doc.txt", content)
	if err != nil {
		t.Fatalf("AddDocument() tenant A error = %v", err)
	}
	_, createdB, err := s.AddDocument(ctx, tenantB.ID, "doc.txt", content)
	if err != nil {
		t.Fatalf("AddDocument() tenant B error = %v", err)
	}
	if !createdA || !createdB {
		t.Error("identical bytes for different tenants must create two documents")
	}
}

func TestAddDocumentUnextractable(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, db, "acme")

	// Unsupported type extracts to empty text
	doc, created, err := s.AddDocument(ctx, tenant.ID, "image.bin", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}
	if !created {
		t.Error("unextractable document should still be stored")
	}
	if doc.IsProcessed {
		t.Error("document without text must stay unprocessed")
	}

	processed, err := s.Documents(ctx, tenant.ID, true)
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(processed) != 0 {
		t.Errorf("processed documents = %d, want 0", len(processed))
	}
}

func TestDeleteDocumentOwnership(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	owner := newTestTenant(t, db, "owner")
	other := newTestTenant(t, db, "other")

	doc, _, err := s.AddDocument(ctx, owner.ID, "doc.txt", []byte("confidential"))
	if err != nil {
		t.Fatalf("AddDocument() error = %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID, other.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cross-tenant delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteDocument(ctx, doc.ID, owner.ID); err != nil {
		t.Errorf("owner delete error = %v", err)
	}
}

func TestAddFromFolder(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, db, "acme")

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":          "first document",
		"sub/b.txt":      "second document",
		"sub/skip.log":   "not matched",
		"excluded/c.txt": "excluded",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	docs, err := s.AddFromFolder(ctx, tenant.ID, dir, []string{"**/*.txt"}, []string{"excluded/**"})
	if err != nil {
		t.Fatalf("AddFromFolder() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("ingested documents = %d, want 2", len(docs))
	}
}
