package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// IndexStore provides serialized similarity index persistence
type IndexStore struct {
	db *DB
}

// NewIndexStore creates a new index store
func NewIndexStore(db *DB) *IndexStore {
	return &IndexStore{db: db}
}

const indexColumns = `id, tenant_id, name, data, COALESCE(metadata, ''), dimension,
	total_vectors, index_type, is_active, version, created_at, updated_at`

// Activate atomically retires the current active index of the same
// (tenant, name) lineage and inserts idx as the new active row. The new
// version is one past the highest version ever recorded for the lineage, so
// the active row's version counts successful rebuilds. Runs in a single
// transaction: there is never a window with zero or two active rows.
func (s *IndexStore) Activate(ctx context.Context, idx *Index) (*Index, error) {
	tx, err := s.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var maxVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM indexes WHERE tenant_id = ? AND name = ?`,
		idx.TenantID, idx.Name).Scan(&maxVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to read index lineage: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE indexes SET is_active = 0, updated_at = ?
		 WHERE tenant_id = ? AND name = ? AND is_active = 1`,
		formatTime(now), idx.TenantID, idx.Name); err != nil {
		return nil, fmt.Errorf("failed to deactivate previous index: %w", err)
	}

	idx.IsActive = true
	idx.Version = maxVersion + 1
	idx.CreatedAt = now
	idx.UpdatedAt = now
	if idx.IndexType == "" {
		idx.IndexType = "flat_l2"
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO indexes
		 (tenant_id, name, data, metadata, dimension, total_vectors, index_type,
		  is_active, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
		idx.TenantID, idx.Name, idx.Data, idx.Metadata, idx.Dimension,
		idx.TotalVectors, idx.IndexType, idx.Version, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert index: %w", err)
	}
	if idx.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get index id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit index activation: %w", err)
	}
	return idx, nil
}

// GetActive retrieves the single active index for (tenant, name)
func (s *IndexStore) GetActive(ctx context.Context, tenantID int64, name string) (*Index, error) {
	row := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT `+indexColumns+` FROM indexes
		 WHERE tenant_id = ? AND name = ? AND is_active = 1`, tenantID, name)
	idx, err := scanIndex(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return idx, err
}

// ListVersions returns every index version for a lineage, newest first
func (s *IndexStore) ListVersions(ctx context.Context, tenantID int64, name string) ([]*Index, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT `+indexColumns+` FROM indexes
		 WHERE tenant_id = ? AND name = ? ORDER BY version DESC`, tenantID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list index versions: %w", err)
	}
	defer rows.Close()

	var indexes []*Index
	for rows.Next() {
		idx, err := scanIndex(rows)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// CountActive returns the number of active rows for a lineage; the invariant
// is that this never exceeds one.
func (s *IndexStore) CountActive(ctx context.Context, tenantID int64, name string) (int, error) {
	var count int
	err := s.db.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM indexes WHERE tenant_id = ? AND name = ? AND is_active = 1`,
		tenantID, name).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active indexes: %w", err)
	}
	return count, nil
}

// PruneInactive deletes retired index versions beyond the newest keep rows.
// The active row is never pruned.
func (s *IndexStore) PruneInactive(ctx context.Context, tenantID int64, name string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.sqlDB.ExecContext(ctx,
		`DELETE FROM indexes
		 WHERE tenant_id = ? AND name = ? AND is_active = 0 AND id NOT IN (
		     SELECT id FROM indexes
		     WHERE tenant_id = ? AND name = ? AND is_active = 0
		     ORDER BY version DESC LIMIT ?
		 )`, tenantID, name, tenantID, name, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune indexes: %w", err)
	}
	return res.RowsAffected()
}

func scanIndex(row rowScanner) (*Index, error) {
	var idx Index
	var createdAt, updatedAt string
	err := row.Scan(
		&idx.ID, &idx.TenantID, &idx.Name, &idx.Data, &idx.Metadata, &idx.Dimension,
		&idx.TotalVectors, &idx.IndexType, &idx.IsActive, &idx.Version,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan index: %w", err)
	}
	if idx.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, err
	}
	if idx.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, err
	}
	return &idx, nil
}
