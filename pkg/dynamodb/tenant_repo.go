package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

// TenantRepository reads tenant configuration. Tenants are written by the
// dashboard; this service never modifies them.
type TenantRepository struct {
	client    API
	tableName string
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(client API, tableName string) *TenantRepository {
	return &TenantRepository{
		client:    client,
		tableName: tableName,
	}
}

// GetTenant retrieves a tenant by ID. A missing tenant yields models.ErrNotFound.
func (r *TenantRepository) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
		},
		ConsistentRead: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("tenant %s: %w", tenantID, models.ErrNotFound)
	}

	var tenant models.Tenant
	if err := attributevalue.UnmarshalMap(result.Item, &tenant); err != nil {
		return nil, fmt.Errorf("unmarshal tenant: %w", err)
	}

	return &tenant, nil
}
