package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

// UserRepository handles per-tenant user records
type UserRepository struct {
	client    API
	tableName string
}

// NewUserRepository creates a new user repository
func NewUserRepository(client API, tableName string) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
	}
}

// TouchUser upserts a user's presence. Only the fields named here are written,
// so profile data maintained elsewhere survives. An existing display name is
// kept; displayName is used only when the record has none.
func (r *UserRepository) TouchUser(ctx context.Context, tenantID, userID, displayName string, at time.Time) error {
	updateExpr := "SET display_name = if_not_exists(display_name, :name), last_message_at = :now"
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"user_id":   &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: &updateExpr,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: displayName},
			":now":  &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by tenant and user ID
func (r *UserRepository) GetUser(ctx context.Context, tenantID, userID string) (*models.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"tenant_id": &types.AttributeValueMemberS{Value: tenantID},
			"user_id":   &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("user %s/%s: %w", tenantID, userID, models.ErrNotFound)
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}

	return &user, nil
}
