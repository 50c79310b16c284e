package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/savaki/nutricoach-relay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockInvokeModel struct {
	InvokeModelFunc func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
	requests        []BedrockRequest
	modelIDs        []string
}

var _ InvokeModelAPI = (*MockInvokeModel)(nil)

func (m *MockInvokeModel) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	var req BedrockRequest
	if err := json.Unmarshal(params.Body, &req); err != nil {
		return nil, err
	}
	m.requests = append(m.requests, req)
	m.modelIDs = append(m.modelIDs, *params.ModelId)
	if m.InvokeModelFunc != nil {
		return m.InvokeModelFunc(ctx, params)
	}
	return textOutput("ok"), nil
}

func textOutput(text string) *bedrockruntime.InvokeModelOutput {
	body, _ := json.Marshal(map[string]any{
		"role":    "assistant",
		"content": []map[string]string{{"type": "text", "text": text}},
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}
}

func TestGenerateBuildsRequest(t *testing.T) {
	api := &MockInvokeModel{}
	c := NewClientWithAPI(api)

	text, err := c.Generate(context.Background(), models.GenerationRequest{
		SystemPrompt: "You are a nutrition coach.",
		History: []models.Turn{
			{Sender: models.SenderUser, Kind: models.KindText, Content: "hi"},
			{Sender: models.SenderAssistant, Kind: models.KindText, Content: "hello!"},
		},
		Parts:     []models.Part{models.TextPart("what about lunch?")},
		MaxTokens: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, DefaultModelID, api.modelIDs[0])
	assert.Equal(t, "bedrock-2023-05-31", req.AnthropicVersion)
	assert.Equal(t, 1024, req.MaxTokens)
	assert.Equal(t, "You are a nutrition coach.", req.System)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "what about lunch?", req.Messages[2].Content[0].Text)
}

func TestGenerateImagePart(t *testing.T) {
	api := &MockInvokeModel{}
	c := NewClientWithAPI(api)

	_, err := c.Generate(context.Background(), models.GenerationRequest{
		Parts: []models.Part{
			models.TextPart("evaluate this meal"),
			models.ImagePart("image/jpeg", "aGVsbG8="),
		},
	})
	require.NoError(t, err)

	req := api.requests[0]
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	blocks := req.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0].Type)
	assert.Equal(t, "image", blocks[1].Type)
	require.NotNil(t, blocks[1].Source)
	assert.Equal(t, "base64", blocks[1].Source.Type)
	assert.Equal(t, "image/jpeg", blocks[1].Source.MediaType)
	assert.Equal(t, "aGVsbG8=", blocks[1].Source.Data)
}

func TestSendMessageMergesTrailingUserTurn(t *testing.T) {
	api := &MockInvokeModel{}
	c := NewClientWithAPI(api)

	session := c.StartChat("", []models.Turn{
		{Sender: models.SenderUser, Content: "first"},
		{Sender: models.SenderAssistant, Content: "reply"},
		{Sender: models.SenderUser, Content: "unanswered"},
	}, 0)
	_, err := session.SendMessage(context.Background(), []models.Part{models.TextPart("again")})
	require.NoError(t, err)

	msgs := api.requests[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, "unanswered", msgs[2].Content[0].Text)
	assert.Equal(t, "again", msgs[2].Content[1].Text)
}

func TestChatSessionKeepsState(t *testing.T) {
	replies := []string{"one", "two"}
	api := &MockInvokeModel{}
	api.InvokeModelFunc = func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
		return textOutput(replies[len(api.requests)-1]), nil
	}
	c := NewClientWithAPI(api)

	session := c.StartChat("sys", nil, 256)
	first, err := session.SendMessage(context.Background(), []models.Part{models.TextPart("a")})
	require.NoError(t, err)
	second, err := session.SendMessage(context.Background(), []models.Part{models.TextPart("b")})
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
	require.Len(t, api.requests[1].Messages, 3)
	assert.Equal(t, "one", api.requests[1].Messages[1].Content[0].Text)
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name   string
		parts  []models.Part
		invoke func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
	}{
		{
			name:  "empty parts",
			parts: nil,
		},
		{
			name:  "invoke fails",
			parts: []models.Part{models.TextPart("x")},
			invoke: func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
				return nil, errors.New("throttling")
			},
		},
		{
			name:  "empty content",
			parts: []models.Part{models.TextPart("x")},
			invoke: func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
				return &bedrockruntime.InvokeModelOutput{Body: []byte(`{"content":[]}`)}, nil
			},
		},
		{
			name:  "invalid json",
			parts: []models.Part{models.TextPart("x")},
			invoke: func(ctx context.Context, params *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
				return &bedrockruntime.InvokeModelOutput{Body: []byte(`not json`)}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClientWithAPI(&MockInvokeModel{InvokeModelFunc: tt.invoke})
			_, err := c.StartChat("", nil, 0).SendMessage(context.Background(), tt.parts)
			assert.Error(t, err)
		})
	}
}

func TestSetModel(t *testing.T) {
	api := &MockInvokeModel{}
	c := NewClientWithAPI(api)
	c.SetModel("anthropic.claude-3-haiku-20240307-v1:0")
	c.SetModel("")

	_, err := c.Generate(context.Background(), models.GenerationRequest{Parts: []models.Part{models.TextPart("x")}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", api.modelIDs[0])
}
