package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/line"
	"github.com/savaki/nutricoach-relay/pkg/metrics"
	"github.com/savaki/nutricoach-relay/pkg/models"
)

// UserStore records user presence
type UserStore interface {
	TouchUser(ctx context.Context, tenantID, userID, displayName string, at time.Time) error
}

// TurnStore appends turns to the conversation log
type TurnStore interface {
	SaveTurn(ctx context.Context, turn *models.Turn) error
}

// HistoryAssembler builds the conversation window, leaving out the turn being answered
type HistoryAssembler interface {
	AssembleExcluding(ctx context.Context, tenantID, userID, currentTurnID string) ([]models.Turn, error)
}

// Generator produces reply text from a generation request
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

// ContentFetcher downloads message attachments from the chat platform
type ContentFetcher interface {
	FetchContent(ctx context.Context, messageID, accessToken string) (*line.Content, error)
}

// ReplyChannel delivers reply text for an inbound event
type ReplyChannel interface {
	Reply(ctx context.Context, replyToken, text, accessToken string) error
}

// ProcessorDeps are the collaborators of a Processor
type ProcessorDeps struct {
	Users     UserStore
	Turns     TurnStore
	History   HistoryAssembler
	Generator Generator
	Content   ContentFetcher
	Replies   ReplyChannel
}

// ProcessorConfig tunes a Processor
type ProcessorConfig struct {
	MaxOutputTokens int
	ReplyRetryDelay time.Duration
}

// Processor runs the pipeline for one inbound event: presence update, prompt
// extraction, inbound turn, history, generation, outbound turn, reply.
type Processor struct {
	deps   ProcessorDeps
	cfg    ProcessorConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewProcessor creates a new event processor
func NewProcessor(deps ProcessorDeps, cfg ProcessorConfig, logger zerolog.Logger) *Processor {
	return &Processor{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With().Str("component", "processor").Logger(),
		now:    time.Now,
	}
}

// Process handles a single event. Unsupported events are logged and ignored.
// Every step runs in order; the first failure ends the event and is returned.
func (p *Processor) Process(ctx context.Context, tenant *models.Tenant, event line.Event) error {
	meta := event.Meta()
	log := p.logger.With().
		Str("tenant_id", tenant.TenantID).
		Str("user_id", meta.UserID).
		Str("event_id", meta.EventID).
		Str("kind", line.Kind(event)).
		Logger()

	if u, ok := event.(line.UnsupportedEvent); ok {
		log.Info().Str("event_type", meta.EventType).Str("reason", u.Reason).Msg("ignoring unsupported event")
		return nil
	}

	// Downstream records key off the user, so presence must land first
	if err := p.deps.Users.TouchUser(ctx, tenant.TenantID, meta.UserID, models.DefaultDisplayName(meta.UserID), p.now()); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}

	parts, inbound, err := p.buildPrompt(ctx, tenant, event, log)
	if err != nil {
		return err
	}

	if err := p.deps.Turns.SaveTurn(ctx, inbound); err != nil {
		return fmt.Errorf("save inbound turn: %w", err)
	}

	history, err := p.deps.History.AssembleExcluding(ctx, tenant.TenantID, meta.UserID, inbound.TurnID)
	if err != nil {
		return fmt.Errorf("assemble history: %w", err)
	}
	log.Debug().Int("history_len", len(history)).Msg("assembled context")

	start := time.Now()
	text, err := p.deps.Generator.Generate(ctx, models.GenerationRequest{
		SystemPrompt: tenant.SystemPrompt,
		History:      history,
		Parts:        parts,
		MaxTokens:    p.cfg.MaxOutputTokens,
	})
	metrics.GenerationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}

	if err := p.deps.Turns.SaveTurn(ctx, models.NewAssistantTurn(tenant.TenantID, meta.UserID, text)); err != nil {
		return fmt.Errorf("save assistant turn: %w", err)
	}

	if err := p.dispatchReply(ctx, meta.ReplyToken, text, tenant.AccessToken, log); err != nil {
		return err
	}

	log.Info().Int("history_len", len(history)).Int("reply_len", len(text)).Msg("event processed")
	return nil
}

// buildPrompt returns the prompt parts for the backend and the turn to persist
func (p *Processor) buildPrompt(ctx context.Context, tenant *models.Tenant, event line.Event, log zerolog.Logger) ([]models.Part, *models.Turn, error) {
	userID := event.Meta().UserID

	switch e := event.(type) {
	case line.TextEvent:
		log.Info().Msg("received text")
		return []models.Part{models.TextPart(e.Text)},
			models.NewTextTurn(tenant.TenantID, userID, e.Text),
			nil

	case line.ImageEvent:
		log.Info().Str("message_id", e.MessageID).Msg("received image")
		content, err := p.deps.Content.FetchContent(ctx, e.MessageID, tenant.AccessToken)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch image content: %w", err)
		}
		encoded := base64.StdEncoding.EncodeToString(content.Data)
		return []models.Part{models.TextPart(mealEvaluationPrompt), models.ImagePart(content.MIMEType, encoded)},
			models.NewImageTurn(tenant.TenantID, userID),
			nil

	default:
		return nil, nil, fmt.Errorf("unexpected event type %T", event)
	}
}

// dispatchReply sends the reply, retrying once after ReplyRetryDelay
func (p *Processor) dispatchReply(ctx context.Context, replyToken, text, accessToken string, log zerolog.Logger) error {
	err := p.deps.Replies.Reply(ctx, replyToken, text, accessToken)
	if err == nil {
		return nil
	}

	metrics.ReplyRetries.Inc()
	log.Warn().Err(err).Dur("delay", p.cfg.ReplyRetryDelay).Msg("reply failed, retrying once")

	timer := time.NewTimer(p.cfg.ReplyRetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("reply message: %w", err)
	case <-timer.C:
	}

	if err := p.deps.Replies.Reply(ctx, replyToken, text, accessToken); err != nil {
		return fmt.Errorf("reply message after retry: %w", err)
	}
	return nil
}
