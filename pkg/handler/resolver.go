package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/savaki/nutricoach-relay/pkg/models"
)

// ErrTenantNotFound means the webhook names a tenant that is not configured
var ErrTenantNotFound = errors.New("tenant not found")

// TenantStore loads tenant configuration
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// TenantResolver maps a webhook destination to its tenant. Every call goes to
// the store; nothing is cached between requests.
type TenantResolver struct {
	store TenantStore
}

// NewTenantResolver creates a new tenant resolver
func NewTenantResolver(store TenantStore) *TenantResolver {
	return &TenantResolver{store: store}
}

// Resolve returns the tenant, ErrTenantNotFound, or a wrapped store error
func (r *TenantResolver) Resolve(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := r.store.GetTenant(ctx, tenantID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}
	return tenant, nil
}
