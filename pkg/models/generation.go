package models

// Part is one piece of the current prompt: either text or an inline image
type Part struct {
	Text  string
	Image *InlineImage
}

// InlineImage carries base64-encoded image bytes for the generation backend
type InlineImage struct {
	MIMEType string
	Data     string
}

// TextPart builds a text prompt part
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image prompt part
func ImagePart(mimeType, data string) Part {
	return Part{Image: &InlineImage{MIMEType: mimeType, Data: data}}
}

// GenerationRequest is everything the backend needs for one reply
type GenerationRequest struct {
	SystemPrompt string
	History      []Turn
	Parts        []Part
	MaxTokens    int
}

// EventFailure describes one inbound event that could not be processed
type EventFailure struct {
	TenantID string
	UserID   string
	EventID  string
	Kind     string
	Err      error
}
