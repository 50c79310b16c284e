package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/app"
	appconfig "github.com/savaki/nutricoach-relay/pkg/config"
	"github.com/savaki/nutricoach-relay/pkg/handler"
	"github.com/savaki/nutricoach-relay/pkg/logging"
)

// Webhook is the subset of the gateway the Lambda handler calls
type Webhook interface {
	Handle(ctx context.Context, req handler.Request) handler.Response
}

// NewHandler adapts API Gateway proxy requests to the webhook gateway
func NewHandler(gw Webhook, logger zerolog.Logger) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		body := []byte(request.Body)
		if request.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(request.Body)
			if err != nil {
				logger.Info().Err(err).Msg("failed to decode base64 body")
				return textResponse(http.StatusBadRequest, http.StatusText(http.StatusBadRequest)), nil
			}
			body = decoded
		}
		if len(body) > handler.MaxBodyBytes {
			return textResponse(http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge)), nil
		}

		resp := gw.Handle(ctx, handler.Request{
			Method:    request.HTTPMethod,
			Signature: header(request.Headers, handler.SignatureHeader),
			Body:      body,
		})
		return textResponse(resp.StatusCode, resp.Body), nil
	}
}

// header looks up name case-insensitively; API Gateway may lowercase header names
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		logger := logging.New("")
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Environment)

	gw, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gateway")
	}

	lambda.Start(NewHandler(gw, logger))
}
