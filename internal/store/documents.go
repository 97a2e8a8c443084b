package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentStore provides document persistence
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a new document store
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, tenant_id, filename, file_type, file_size, content,
	COALESCE(extracted_text, ''), content_hash, is_processed, processed_at, created_at`

// Create inserts a document row
func (s *DocumentStore) Create(ctx context.Context, doc *Document) (*Document, error) {
	now := time.Now().UTC()
	doc.CreatedAt = now

	var processedAt any
	if doc.ProcessedAt != nil {
		processedAt = formatTime(*doc.ProcessedAt)
	}

	res, err := s.db.sqlDB.ExecContext(ctx,
		`INSERT INTO documents
		 (tenant_id, filename, file_type, file_size, content, extracted_text,
		  content_hash, is_processed, processed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.TenantID, doc.Filename, doc.FileType, doc.FileSize, doc.Content,
		doc.ExtractedText, doc.ContentHash, doc.IsProcessed, processedAt, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if doc.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get document id: %w", err)
	}
	return doc, nil
}

// GetByHash retrieves a tenant's document by content hash; used for dedup
func (s *DocumentStore) GetByHash(ctx context.Context, tenantID int64, hash string) (*Document, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE tenant_id = ? AND content_hash = ?`,
		tenantID, hash)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// Get retrieves a document by id, verifying tenant ownership. A document
// belonging to a different tenant yields the same ErrNotFound as a missing
// one.
func (s *DocumentStore) Get(ctx context.Context, documentID, tenantID int64) (*Document, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND tenant_id = ?`,
		documentID, tenantID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// GetByID retrieves a document by id alone; internal pipeline use only, the
// tenant scope travels with the returned row.
func (s *DocumentStore) GetByID(ctx context.Context, documentID int64) (*Document, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

// List returns a tenant's documents, optionally only processed ones
func (s *DocumentStore) List(ctx context.Context, tenantID int64, processedOnly bool) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = ?`
	if processedOnly {
		query += ` AND is_processed = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.sqlDB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// MarkProcessed records the processed timestamp on a document
func (s *DocumentStore) MarkProcessed(ctx context.Context, documentID int64) error {
	now := formatTime(time.Now().UTC())
	_, err := s.db.sqlDB.ExecContext(ctx,
		`UPDATE documents SET is_processed = 1, processed_at = ? WHERE id = ?`,
		now, documentID)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	return nil
}

// Delete removes a document owned by the given tenant; embeddings cascade.
// Returns ErrNotFound whether the document is missing or owned by another
// tenant.
func (s *DocumentStore) Delete(ctx context.Context, documentID, tenantID int64) error {
	res, err := s.db.sqlDB.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND tenant_id = ?`, documentID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of documents for a tenant
func (s *DocumentStore) Count(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE tenant_id = ?`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var processedAt *string
	var createdAt string
	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.Filename, &doc.FileType, &doc.FileSize,
		&doc.Content, &doc.ExtractedText, &doc.ContentHash, &doc.IsProcessed,
		&processedAt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if doc.ProcessedAt, err = parseNullableTime(processedAt); err != nil {
		return nil, err
	}
	if doc.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}
