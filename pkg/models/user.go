package models

import "time"

// User is a chat-platform user scoped to a tenant
type User struct {
	TenantID      string    `dynamodbav:"tenant_id"`
	UserID        string    `dynamodbav:"user_id"`
	DisplayName   string    `dynamodbav:"display_name"`
	PictureURL    string    `dynamodbav:"picture_url,omitempty"`
	LastMessageAt time.Time `dynamodbav:"last_message_at"`
}

// DefaultDisplayName derives a display name from the user ID when no profile is available
func DefaultDisplayName(userID string) string {
	runes := []rune(userID)
	if len(runes) > 5 {
		runes = runes[:5]
	}
	return "User " + string(runes)
}
