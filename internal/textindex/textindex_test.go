package textindex

import "testing"

func TestRebuildAndSearch(t *testing.T) {
	m := NewManager(t.TempDir())

	docs := []ChunkDoc{
		{EmbeddingID: 1, Content: "Casa Aurora costs 250000 dollars", Filename: "catalog.txt", ChunkIndex: 0},
		{EmbeddingID: 2, Content: "Casa Diamante costs 180000 dollars", Filename: "catalog.txt", ChunkIndex: 1},
		{EmbeddingID: 3, Content: "apartment rental downtown", Filename: "rentals.txt", ChunkIndex: 0},
	}
	if err := m.Rebuild("tenant-pub", "main_index", docs); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	hits, err := m.Search("tenant-pub", "main_index", "apartment", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].EmbeddingID != 3 {
		t.Errorf("hit id = %d, want 3", hits[0].EmbeddingID)
	}
	if hits[0].Score <= 0 {
		t.Errorf("hit score = %v, want > 0", hits[0].Score)
	}
}

func TestRebuildReplacesPrevious(t *testing.T) {
	m := NewManager(t.TempDir())

	if err := m.Rebuild("tenant-pub", "main_index", []ChunkDoc{
		{EmbeddingID: 1, Content: "old content about boats"},
	}); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if err := m.Rebuild("tenant-pub", "main_index", []ChunkDoc{
		{EmbeddingID: 2, Content: "new content about houses"},
	}); err != nil {
		t.Fatalf("Rebuild() replacement error = %v", err)
	}

	hits, err := m.Search("tenant-pub", "main_index", "boats", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("stale hits after rebuild = %d, want 0", len(hits))
	}
}

func TestSearchMissingIndex(t *testing.T) {
	m := NewManager(t.TempDir())

	hits, err := m.Search("nobody", "main_index", "anything", 5)
	if err != nil {
		t.Fatalf("Search() on missing index error = %v", err)
	}
	if hits != nil {
		t.Errorf("hits = %v, want nil for missing index", hits)
	}
}
