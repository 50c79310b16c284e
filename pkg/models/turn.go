package models

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sender constants
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Kind constants
const (
	KindText  = "text"
	KindImage = "image"
)

// ImagePlaceholder is stored in place of image bytes for inbound image turns
const ImagePlaceholder = "[Image data]"

// Turn is a single persisted message in a (tenant, user) conversation.
// Turns are append-only; TurnID is a ULID so sort order matches creation order.
type Turn struct {
	ConversationKey string    `dynamodbav:"conversation_key"`
	TurnID          string    `dynamodbav:"turn_id"`
	TenantID        string    `dynamodbav:"tenant_id"`
	UserID          string    `dynamodbav:"user_id"`
	Sender          string    `dynamodbav:"sender"` // "user" or "assistant"
	Kind            string    `dynamodbav:"kind"`   // "text" or "image"
	Content         string    `dynamodbav:"content"`
	CreatedAt       time.Time `dynamodbav:"created_at"`
}

// ConversationKey is the partition key shared by all turns of one user within a tenant
func ConversationKey(tenantID, userID string) string {
	return tenantID + "#" + userID
}

// NewTurn creates a turn stamped with the current time and a fresh ULID
func NewTurn(tenantID, userID, sender, kind, content string) *Turn {
	id, now := generateULID()
	return &Turn{
		ConversationKey: ConversationKey(tenantID, userID),
		TurnID:          id,
		TenantID:        tenantID,
		UserID:          userID,
		Sender:          sender,
		Kind:            kind,
		Content:         content,
		CreatedAt:       now,
	}
}

// NewTextTurn records text sent by the user
func NewTextTurn(tenantID, userID, text string) *Turn {
	return NewTurn(tenantID, userID, SenderUser, KindText, text)
}

// NewImageTurn records that the user sent an image. The image itself is never stored.
func NewImageTurn(tenantID, userID string) *Turn {
	return NewTurn(tenantID, userID, SenderUser, KindImage, ImagePlaceholder)
}

// NewAssistantTurn records generated reply text
func NewAssistantTurn(tenantID, userID, text string) *Turn {
	return NewTurn(tenantID, userID, SenderAssistant, KindText, text)
}

// IsText reports whether the turn can be replayed as generation history
func (t Turn) IsText() bool {
	return t.Kind == KindText
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID returns a ULID that sorts after every previous ULID from this
// process, together with the timestamp it encodes
func generateULID() (string, time.Time) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	now := time.Now()
	id, _ := ulid.New(ulid.Timestamp(now), entropy)
	return id.String(), now
}
