package line

import (
	"encoding/json"
	"fmt"
)

// Webhook event and message type values used by the platform
const (
	eventTypeMessage = "message"
	messageTypeText  = "text"
	messageTypeImage = "image"
)

// Envelope is the outer webhook payload. Events are kept raw so that each one
// is decoded independently and one malformed element cannot reject the rest.
type Envelope struct {
	Destination string            `json:"destination"`
	Events      []json.RawMessage `json:"events"`
}

// DecodeEnvelope parses the outer webhook payload
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Event is one decoded inbound event. The concrete type is one of
// TextEvent, ImageEvent or UnsupportedEvent.
type Event interface {
	// Meta returns the fields common to every event variant
	Meta() EventMeta
}

// EventMeta holds routing data shared by all variants
type EventMeta struct {
	EventID    string
	EventType  string
	UserID     string
	ReplyToken string
	Timestamp  int64
}

// TextEvent is a text message from a user
type TextEvent struct {
	EventMeta
	MessageID string
	Text      string
}

// ImageEvent is an image message from a user. The bytes live on the platform
// and are fetched by MessageID.
type ImageEvent struct {
	EventMeta
	MessageID string
}

// UnsupportedEvent is anything the relay does not answer
type UnsupportedEvent struct {
	EventMeta
	Reason string
}

func (e TextEvent) Meta() EventMeta        { return e.EventMeta }
func (e ImageEvent) Meta() EventMeta       { return e.EventMeta }
func (e UnsupportedEvent) Meta() EventMeta { return e.EventMeta }

// rawEvent mirrors the platform JSON for a single event
type rawEvent struct {
	Type           string `json:"type"`
	ReplyToken     string `json:"replyToken"`
	Timestamp      int64  `json:"timestamp"`
	WebhookEventID string `json:"webhookEventId"`
	Source         struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"message"`
}

// DecodeEvent turns one raw event into a typed variant. It never fails:
// anything that cannot be answered becomes an UnsupportedEvent with a reason.
func DecodeEvent(raw json.RawMessage) Event {
	var re rawEvent
	if err := json.Unmarshal(raw, &re); err != nil {
		return UnsupportedEvent{Reason: fmt.Sprintf("malformed event: %v", err)}
	}

	meta := EventMeta{
		EventID:    re.WebhookEventID,
		EventType:  re.Type,
		UserID:     re.Source.UserID,
		ReplyToken: re.ReplyToken,
		Timestamp:  re.Timestamp,
	}

	if re.Type != eventTypeMessage {
		return UnsupportedEvent{EventMeta: meta, Reason: "event type " + re.Type}
	}
	if re.Message == nil {
		return UnsupportedEvent{EventMeta: meta, Reason: "message event without message"}
	}
	if meta.UserID == "" {
		return UnsupportedEvent{EventMeta: meta, Reason: "message event without sender"}
	}

	switch re.Message.Type {
	case messageTypeText:
		if re.Message.Text == "" {
			return UnsupportedEvent{EventMeta: meta, Reason: "empty text"}
		}
		return TextEvent{EventMeta: meta, MessageID: re.Message.ID, Text: re.Message.Text}
	case messageTypeImage:
		if re.Message.ID == "" {
			return UnsupportedEvent{EventMeta: meta, Reason: "image message without id"}
		}
		return ImageEvent{EventMeta: meta, MessageID: re.Message.ID}
	default:
		return UnsupportedEvent{EventMeta: meta, Reason: "message type " + re.Message.Type}
	}
}

// Variant names returned by Kind
const (
	KindText        = "text"
	KindImage       = "image"
	KindUnsupported = "unsupported"
)

// Kind names the variant for logs and metrics
func Kind(e Event) string {
	switch e.(type) {
	case TextEvent:
		return KindText
	case ImageEvent:
		return KindImage
	default:
		return KindUnsupported
	}
}
