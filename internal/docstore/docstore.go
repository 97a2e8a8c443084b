// Package docstore owns raw document bytes, extracted text, and the
// per-tenant content-hash dedup guarantee.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/salesmind/ragindex/internal/events"
	"github.com/salesmind/ragindex/internal/extract"
	"github.com/salesmind/ragindex/internal/store"
)

// Store manages document ingest, listing, and deletion for tenants
type Store struct {
	documents  *store.DocumentStore
	embeddings *store.EmbeddingStore
	extractor  *extract.Dispatcher
	bus        *events.Bus
}

// New creates a document store
func New(documents *store.DocumentStore, embeddings *store.EmbeddingStore, extractor *extract.Dispatcher, bus *events.Bus) *Store {
	return &Store{
		documents:  documents,
		embeddings: embeddings,
		extractor:  extractor,
		bus:        bus,
	}
}

// HashContent computes the dedup hash over raw document bytes
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// AddDocument stores a document for a tenant. If the same bytes were already
// uploaded by this tenant the existing document is returned with created
// false; that is a dedup hit, not an error. Text is extracted immediately and
// the document is marked processed only when extraction yields non-empty
// text.
func (s *Store) AddDocument(ctx context.Context, tenantID int64, filename string, content []byte) (*store.Document, bool, error) {
	if len(content) == 0 {
		return nil, false, fmt.Errorf("document %q is empty", filename)
	}

	hash := HashContent(content)
	existing, err := s.documents.GetByHash(ctx, tenantID, hash)
	if err == nil {
		log.Printf("document %q already stored for tenant %d (id=%d)", filename, tenantID, existing.ID)
		s.publish(events.DocumentAdded{
			TenantID:   tenantID,
			DocumentID: existing.ID,
			Filename:   existing.Filename,
			Duplicate:  true,
			At:         time.Now().UTC(),
		})
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	fileType := extract.FileType(filename)
	text, err := s.extractor.Extract(content, fileType)
	if err != nil {
		return nil, false, fmt.Errorf("failed to extract text from %q: %w", filename, err)
	}

	doc := &store.Document{
		TenantID:      tenantID,
		Filename:      filepath.Base(filename),
		FileType:      fileType,
		FileSize:      int64(len(content)),
		Content:       content,
		ExtractedText: text,
		ContentHash:   hash,
	}
	if text != "" {
		now := time.Now().UTC()
		doc.IsProcessed = true
		doc.ProcessedAt = &now
	} else {
		log.Printf("document %q yielded no text, stored unprocessed", filename)
	}

	doc, err = s.documents.Create(ctx, doc)
	if err != nil {
		return nil, false, err
	}

	s.publish(events.DocumentAdded{
		TenantID:   tenantID,
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		At:         time.Now().UTC(),
	})
	return doc, true, nil
}

// AddFromFolder ingests every file under dir matching one of the doublestar
// patterns and none of the exclude patterns. Returns the stored documents,
// dedup hits included.
func (s *Store) AddFromFolder(ctx context.Context, tenantID int64, dir string, patterns, exclude []string) ([]*store.Document, error) {
	if len(patterns) == 0 {
		patterns = []string{"**/*"}
	}

	var docs []*store.Document
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchAny(patterns, rel) || matchAny(exclude, rel) {
			return nil
		}
		if !s.extractor.Supports(extract.FileType(rel)) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", path, err)
		}
		doc, _, err := s.AddDocument(ctx, tenantID, rel, content)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ingest folder %q: %w", dir, err)
	}
	return docs, nil
}

// Documents lists a tenant's documents
func (s *Store) Documents(ctx context.Context, tenantID int64, processedOnly bool) ([]*store.Document, error) {
	return s.documents.List(ctx, tenantID, processedOnly)
}

// DeleteDocument removes a tenant-owned document and all its embeddings.
// The ownership check happens in the delete itself; a document under another
// tenant produces the same ErrNotFound as a missing one.
func (s *Store) DeleteDocument(ctx context.Context, documentID, tenantID int64) error {
	if err := s.documents.Delete(ctx, documentID, tenantID); err != nil {
		return err
	}
	// Embeddings cascade with the document row; the explicit delete covers
	// databases opened without foreign_keys.
	if err := s.embeddings.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}

	s.publish(events.DocumentDeleted{
		TenantID:   tenantID,
		DocumentID: documentID,
		At:         time.Now().UTC(),
	})
	return nil
}

func (s *Store) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
