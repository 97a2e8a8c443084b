package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EmbeddingStore provides chunk embedding persistence
type EmbeddingStore struct {
	db *DB
}

// NewEmbeddingStore creates a new embedding store
func NewEmbeddingStore(db *DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

const embeddingColumns = `id, tenant_id, document_id, chunk_text, chunk_index,
	vector, dimension, model, created_at`

// InsertBatch persists a document's embeddings in one transaction. The batch
// is all-or-nothing: any failure rolls back every row so a partially embedded
// document is never observable.
func (s *EmbeddingStore) InsertBatch(ctx context.Context, embeddings []*Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings
		 (tenant_id, document_id, chunk_text, chunk_index, vector, dimension, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, emb := range embeddings {
		if len(emb.Vector) == 0 {
			return fmt.Errorf("embedding %d has an empty vector", i)
		}
		res, err := stmt.ExecContext(ctx,
			emb.TenantID, emb.DocumentID, emb.ChunkText, emb.ChunkIndex,
			emb.Vector, emb.Dimension, emb.Model, formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("failed to insert embedding %d: %w", i, err)
		}
		if emb.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get embedding id: %w", err)
		}
		emb.CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

// ListByTenant returns all of a tenant's embeddings ordered by
// (document_id, chunk_index); index construction relies on this stable order.
func (s *EmbeddingStore) ListByTenant(ctx context.Context, tenantID int64) ([]*Embedding, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT `+embeddingColumns+` FROM embeddings
		 WHERE tenant_id = ? ORDER BY document_id, chunk_index`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()
	return scanEmbeddings(rows)
}

// ListByDocument returns a document's embeddings in chunk order
func (s *EmbeddingStore) ListByDocument(ctx context.Context, documentID int64) ([]*Embedding, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT `+embeddingColumns+` FROM embeddings
		 WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()
	return scanEmbeddings(rows)
}

// GetByIDs fetches embeddings by id within one tenant, returned keyed by id.
// Ids missing from the table are simply absent from the result.
func (s *EmbeddingStore) GetByIDs(ctx context.Context, tenantID int64, ids []int64) (map[int64]*Embedding, error) {
	if len(ids) == 0 {
		return map[int64]*Embedding{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, tenantID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT `+embeddingColumns+` FROM embeddings
		 WHERE tenant_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings: %w", err)
	}
	defer rows.Close()

	embeddings, err := scanEmbeddings(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*Embedding, len(embeddings))
	for _, emb := range embeddings {
		byID[emb.ID] = emb
	}
	return byID, nil
}

// DeleteByDocument removes all embeddings for a document
func (s *EmbeddingStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := s.db.sqlDB.ExecContext(ctx,
		`DELETE FROM embeddings WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// CountByTenant returns the number of embeddings for a tenant
func (s *EmbeddingStore) CountByTenant(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE tenant_id = ?`, tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

func scanEmbeddings(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*Embedding, error) {
	var embeddings []*Embedding
	for rows.Next() {
		var emb Embedding
		var createdAt string
		if err := rows.Scan(
			&emb.ID, &emb.TenantID, &emb.DocumentID, &emb.ChunkText, &emb.ChunkIndex,
			&emb.Vector, &emb.Dimension, &emb.Model, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		var err error
		if emb.CreatedAt, err = parseTimeString(createdAt); err != nil {
			return nil, err
		}
		embeddings = append(embeddings, &emb)
	}
	return embeddings, rows.Err()
}
