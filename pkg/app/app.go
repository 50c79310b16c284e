// Package app wires configuration into a ready webhook gateway. Both the
// Lambda entry point and the standalone server build through here.
package app

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/bedrock"
	"github.com/savaki/nutricoach-relay/pkg/config"
	"github.com/savaki/nutricoach-relay/pkg/dynamodb"
	"github.com/savaki/nutricoach-relay/pkg/handler"
	"github.com/savaki/nutricoach-relay/pkg/history"
	"github.com/savaki/nutricoach-relay/pkg/line"
	"github.com/savaki/nutricoach-relay/pkg/memstore"
	"github.com/savaki/nutricoach-relay/pkg/models"
	"github.com/savaki/nutricoach-relay/pkg/slack"
)

// TurnLog is read and appended by the processor and history assembler
type TurnLog interface {
	handler.TurnStore
	history.TurnReader
}

// Stores groups the persistence dependencies of the relay
type Stores struct {
	Tenants handler.TenantStore
	Users   handler.UserStore
	Turns   TurnLog
}

// Build loads AWS configuration and returns the gateway
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*handler.Gateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	stores := NewStores(cfg, awsCfg, logger)
	generator := bedrock.NewClient(awsCfg)
	generator.SetModel(cfg.BedrockModelID)

	return NewGateway(cfg, stores, generator, logger), nil
}

// NewStores selects the storage backend named by STORE_BACKEND
func NewStores(cfg *config.Config, awsCfg aws.Config, logger zerolog.Logger) Stores {
	if cfg.StoreBackend == config.BackendMemory {
		store := memstore.New()
		if cfg.SeedTenantID != "" {
			store.PutTenant(models.Tenant{
				TenantID:      cfg.SeedTenantID,
				ChannelSecret: cfg.SeedChannelSecret,
				AccessToken:   cfg.SeedAccessToken,
				SystemPrompt:  cfg.SeedSystemPrompt,
			})
			logger.Info().Str("tenant_id", cfg.SeedTenantID).Msg("seeded memory store")
		}
		return Stores{Tenants: store, Users: store, Turns: store}
	}

	client := dynamodb.NewClientWithConfig(awsCfg)
	return Stores{
		Tenants: dynamodb.NewTenantRepository(client, cfg.TenantsTable),
		Users:   dynamodb.NewUserRepository(client, cfg.UsersTable),
		Turns:   dynamodb.NewTurnRepository(client, cfg.TurnsTable),
	}
}

// NewGateway assembles the processor and gateway around the given stores and generator
func NewGateway(cfg *config.Config, stores Stores, generator handler.Generator, logger zerolog.Logger) *handler.Gateway {
	lineClient := line.NewClient(logger,
		line.WithEndpoints(cfg.LineAPIEndpoint, cfg.LineDataEndpoint),
		line.WithTestToken(cfg.LineTestToken),
	)

	processor := handler.NewProcessor(handler.ProcessorDeps{
		Users:     stores.Users,
		Turns:     stores.Turns,
		History:   history.NewAssembler(stores.Turns, cfg.HistoryLimit, logger),
		Generator: generator,
		Content:   lineClient,
		Replies:   lineClient,
	}, handler.ProcessorConfig{
		MaxOutputTokens: cfg.MaxOutputTokens,
		ReplyRetryDelay: cfg.GetReplyRetryDelay(),
	}, logger)

	var notifier handler.FailureNotifier
	if cfg.AlertsEnabled() {
		notifier = slack.NewNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	}

	return handler.NewGateway(handler.NewTenantResolver(stores.Tenants), processor, notifier, handler.GatewayConfig{
		EventTimeout:        cfg.GetEventTimeout(),
		MaxConcurrentEvents: cfg.MaxConcurrentEvents,
	}, logger)
}
