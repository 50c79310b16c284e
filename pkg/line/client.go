package line

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIEndpoint serves the reply API
	DefaultAPIEndpoint = "https://api.line.me"
	// DefaultDataEndpoint serves message content downloads
	DefaultDataEndpoint = "https://api-data.line.me"
	// DefaultTestToken is the access token that switches replies to log-only mode
	DefaultTestToken = "token123"

	defaultImageMIMEType = "image/jpeg"
	maxContentBytes      = 10 << 20 // 10 MiB
)

// Content is a downloaded message attachment
type Content struct {
	MIMEType string
	Data     []byte
}

// Client talks to the LINE Messaging API on behalf of any tenant. The access
// token is supplied per call because every tenant has its own channel.
type Client struct {
	apiEndpoint  string
	dataEndpoint string
	testToken    string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithEndpoints overrides the API and content endpoints
func WithEndpoints(apiEndpoint, dataEndpoint string) Option {
	return func(c *Client) {
		if apiEndpoint != "" {
			c.apiEndpoint = apiEndpoint
		}
		if dataEndpoint != "" {
			c.dataEndpoint = dataEndpoint
		}
	}
}

// WithTestToken sets the access token that suppresses real reply calls.
// An empty token disables test mode.
func WithTestToken(token string) Option {
	return func(c *Client) {
		c.testToken = token
	}
}

// WithHTTPClient sets the HTTP client used for every call
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new LINE client
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiEndpoint:  DefaultAPIEndpoint,
		dataEndpoint: DefaultDataEndpoint,
		testToken:    DefaultTestToken,
		httpClient:   &http.Client{Timeout: 20 * time.Second},
		logger:       logger.With().Str("component", "line").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reply sends text back to the user addressed by replyToken
func (c *Client) Reply(ctx context.Context, replyToken, text, accessToken string) error {
	if c.testToken != "" && accessToken == c.testToken {
		c.logger.Info().Str("reply_token", replyToken).Str("text", text).Msg("test mode, reply skipped")
		return nil
	}

	api, err := messaging_api.NewMessagingApiAPI(accessToken,
		messaging_api.WithEndpoint(c.apiEndpoint),
		messaging_api.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return fmt.Errorf("create messaging client: %w", err)
	}

	_, err = api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}

	return nil
}

// FetchContent downloads the binary content of a message
func (c *Client) FetchContent(ctx context.Context, messageID, accessToken string) (*Content, error) {
	blob, err := messaging_api.NewMessagingApiBlobAPI(accessToken,
		messaging_api.WithBlobEndpoint(c.dataEndpoint),
		messaging_api.WithBlobHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	resp, err := blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read message content: %w", err)
	}
	if len(data) > maxContentBytes {
		return nil, fmt.Errorf("message content exceeds %d bytes", maxContentBytes)
	}

	return &Content{
		MIMEType: imageMIMEType(resp.Header.Get("Content-Type")),
		Data:     data,
	}, nil
}

// imageMIMEType keeps the server-declared media type when it names an image
func imageMIMEType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return defaultImageMIMEType
	}
	return mediaType
}
