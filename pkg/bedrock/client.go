package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

const (
	// Default Bedrock model ID for Claude 3.5 Haiku
	DefaultModelID = "anthropic.claude-3-5-haiku-20241022-v1:0"

	// DefaultMaxTokens caps the length of every generated reply
	DefaultMaxTokens = 1024

	anthropicVersion = "bedrock-2023-05-31"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used here
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Client is a client for AWS Bedrock Runtime (Claude models)
type Client struct {
	client  InvokeModelAPI
	modelID string
}

// NewClient creates a new Bedrock client
func NewClient(cfg aws.Config) *Client {
	return NewClientWithAPI(bedrockruntime.NewFromConfig(cfg))
}

// NewClientWithAPI creates a Bedrock client around an existing runtime API
func NewClientWithAPI(api InvokeModelAPI) *Client {
	return &Client{
		client:  api,
		modelID: DefaultModelID,
	}
}

// SetModel allows overriding the default model ID
func (c *Client) SetModel(modelID string) {
	if modelID != "" {
		c.modelID = modelID
	}
}

// ContentBlock is one element of a Claude message body
type ContentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries inline base64 image data
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// Message is a single Claude Messages API entry
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// BedrockRequest represents a request to Bedrock (Claude Messages API format)
type BedrockRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Messages         []Message `json:"messages"`
	System           string    `json:"system,omitempty"`
}

// BedrockResponse represents a response from Bedrock
type BedrockResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ChatSession is a conversation seeded with a system prompt and prior turns.
// Each SendMessage appends the prompt and the reply, so a session can be used
// for several exchanges.
type ChatSession struct {
	client    *Client
	system    string
	maxTokens int
	history   []Message
}

// StartChat opens a session seeded with history. Non-positive maxTokens uses DefaultMaxTokens.
func (c *Client) StartChat(systemPrompt string, history []models.Turn, maxTokens int) *ChatSession {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	s := &ChatSession{
		client:    c,
		system:    systemPrompt,
		maxTokens: maxTokens,
	}
	for _, t := range history {
		s.history = appendMessage(s.history, roleFor(t.Sender), []ContentBlock{{Type: "text", Text: t.Content}})
	}
	return s
}

// SendMessage sends the user's prompt parts and returns the generated text
func (s *ChatSession) SendMessage(ctx context.Context, parts []models.Part) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("parts cannot be empty")
	}

	messages := appendMessage(cloneMessages(s.history), models.SenderUser, contentBlocks(parts))
	text, err := s.client.invoke(ctx, BedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        s.maxTokens,
		Messages:         messages,
		System:           s.system,
	})
	if err != nil {
		return "", err
	}

	s.history = appendMessage(messages, models.SenderAssistant, []ContentBlock{{Type: "text", Text: text}})
	return text, nil
}

// Generate runs a one-shot session for req
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	return c.StartChat(req.SystemPrompt, req.History, req.MaxTokens).SendMessage(ctx, req.Parts)
}

func (c *Client) invoke(ctx context.Context, req BedrockRequest) (string, error) {
	// Marshal request body
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	// Invoke Bedrock model
	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("invoke bedrock model: %w", err)
	}

	// Parse response
	var response BedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty response from Bedrock")
	}

	return text, nil
}

// appendMessage adds a message, merging into the previous one when the role
// repeats. Claude requires strictly alternating roles on the wire.
func appendMessage(messages []Message, role string, blocks []ContentBlock) []Message {
	if n := len(messages); n > 0 && messages[n-1].Role == role {
		merged := append(append([]ContentBlock(nil), messages[n-1].Content...), blocks...)
		messages[n-1] = Message{Role: role, Content: merged}
		return messages
	}
	return append(messages, Message{Role: role, Content: blocks})
}

func cloneMessages(messages []Message) []Message {
	return append([]Message(nil), messages...)
}

func contentBlocks(parts []models.Part) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(parts))
	for _, p := range parts {
		if p.Image != nil {
			blocks = append(blocks, ContentBlock{
				Type: "image",
				Source: &ImageSource{
					Type:      "base64",
					MediaType: p.Image.MIMEType,
					Data:      p.Image.Data,
				},
			})
			continue
		}
		blocks = append(blocks, ContentBlock{Type: "text", Text: p.Text})
	}
	return blocks
}

func roleFor(sender string) string {
	if sender == models.SenderAssistant {
		return models.SenderAssistant
	}
	return models.SenderUser
}
