package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TenantStore provides tenant persistence
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a new tenant store
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

// Create inserts a tenant with the given name and opaque public id
func (s *TenantStore) Create(ctx context.Context, publicID, name string) (*Tenant, error) {
	now := time.Now().UTC()
	res, err := s.db.sqlDB.ExecContext(ctx,
		`INSERT INTO tenants (public_id, name, created_at) VALUES (?, ?, ?)`,
		publicID, name, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant id: %w", err)
	}
	return &Tenant{ID: id, PublicID: publicID, Name: name, CreatedAt: now}, nil
}

// Get retrieves a tenant by internal id
func (s *TenantStore) Get(ctx context.Context, id int64) (*Tenant, error) {
	return s.scanOne(s.db.sqlDB.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at FROM tenants WHERE id = ?`, id))
}

// GetByPublicID retrieves a tenant by its opaque public identifier
func (s *TenantStore) GetByPublicID(ctx context.Context, publicID string) (*Tenant, error) {
	return s.scanOne(s.db.sqlDB.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at FROM tenants WHERE public_id = ?`, publicID))
}

// GetByName retrieves a tenant by its unique name
func (s *TenantStore) GetByName(ctx context.Context, name string) (*Tenant, error) {
	return s.scanOne(s.db.sqlDB.QueryRowContext(ctx,
		`SELECT id, public_id, name, created_at FROM tenants WHERE name = ?`, name))
}

// List returns all tenants ordered by creation time
func (s *TenantStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.sqlDB.QueryContext(ctx,
		`SELECT id, public_id, name, created_at FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		var t Tenant
		var createdAt string
		if err := rows.Scan(&t.ID, &t.PublicID, &t.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		if t.CreatedAt, err = parseTimeString(createdAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

func (s *TenantStore) scanOne(row *sql.Row) (*Tenant, error) {
	var t Tenant
	var createdAt string
	err := row.Scan(&t.ID, &t.PublicID, &t.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if t.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}
