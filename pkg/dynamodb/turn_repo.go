package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

// TurnRepository stores the append-only turn log. The table is keyed by
// conversation_key (partition) and turn_id (sort); turn IDs are ULIDs so the
// sort key follows creation time.
type TurnRepository struct {
	client    API
	tableName string
}

// NewTurnRepository creates a new turn repository
func NewTurnRepository(client API, tableName string) *TurnRepository {
	return &TurnRepository{
		client:    client,
		tableName: tableName,
	}
}

// SaveTurn appends a turn. The write is conditional so an existing turn is never overwritten.
func (r *TurnRepository) SaveTurn(ctx context.Context, turn *models.Turn) error {
	item, err := attributevalue.MarshalMap(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.tableName,
		Item:                item,
		ConditionExpression: stringPtr("attribute_not_exists(turn_id)"),
	})
	if err != nil {
		return fmt.Errorf("put turn: %w", err)
	}

	return nil
}

// RecentTurns retrieves up to limit turns for a user, most recent first
func (r *TurnRepository) RecentTurns(ctx context.Context, tenantID, userID string, limit int) ([]models.Turn, error) {
	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.tableName,
		KeyConditionExpression: stringPtr("conversation_key = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: models.ConversationKey(tenantID, userID)},
		},
		ScanIndexForward: boolPtr(false), // Most recent first
		Limit:            int32Ptr(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}

	var turns []models.Turn
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns: %w", err)
	}

	return turns, nil
}
