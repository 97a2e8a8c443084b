// Package tenant maps opaque public identifiers to internal tenant records.
// Every other component is scoped by the internal id; the public id is the
// only identifier that crosses system boundaries.
package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/salesmind/ragindex/internal/store"
)

// Registry provides tenant onboarding and lookup
type Registry struct {
	tenants *store.TenantStore
}

// NewRegistry creates a registry over the tenant store
func NewRegistry(tenants *store.TenantStore) *Registry {
	return &Registry{tenants: tenants}
}

// Create onboards a tenant under a fresh public id. Names are unique; a
// second Create with the same name fails.
func (r *Registry) Create(ctx context.Context, name string) (*store.Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}
	publicID := uuid.NewString()
	tenant, err := r.tenants.Create(ctx, publicID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant %q: %w", name, err)
	}
	return tenant, nil
}

// Resolve maps a public identifier to its tenant record
func (r *Registry) Resolve(ctx context.Context, publicID string) (*store.Tenant, error) {
	return r.tenants.GetByPublicID(ctx, publicID)
}

// ResolveName looks a tenant up by its unique name
func (r *Registry) ResolveName(ctx context.Context, name string) (*store.Tenant, error) {
	return r.tenants.GetByName(ctx, name)
}

// Get retrieves a tenant by internal id
func (r *Registry) Get(ctx context.Context, id int64) (*store.Tenant, error) {
	return r.tenants.Get(ctx, id)
}

// List returns all tenants
func (r *Registry) List(ctx context.Context) ([]*store.Tenant, error) {
	return r.tenants.List(ctx)
}
