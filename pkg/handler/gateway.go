package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/savaki/nutricoach-relay/pkg/line"
	"github.com/savaki/nutricoach-relay/pkg/metrics"
	"github.com/savaki/nutricoach-relay/pkg/models"
	"golang.org/x/sync/errgroup"
)

// MaxBodyBytes caps the size of an inbound webhook body
const MaxBodyBytes = 1 << 20

// Resolver looks up the tenant a webhook is addressed to
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (*models.Tenant, error)
}

// EventProcessor handles one decoded event for a tenant
type EventProcessor interface {
	Process(ctx context.Context, tenant *models.Tenant, event line.Event) error
}

// FailureNotifier is told about every event that failed
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, f models.EventFailure)
}

// GatewayConfig tunes the fan-out
type GatewayConfig struct {
	EventTimeout        time.Duration
	MaxConcurrentEvents int
}

// Request is a transport-neutral webhook request
type Request struct {
	Method    string
	Signature string
	Body      []byte
}

// Response is the status reported back to the platform
type Response struct {
	StatusCode int
	Body       string
}

// Gateway authenticates webhook requests and fans their events out to the
// processor. Once a request is authenticated it is always acknowledged with
// 200, whatever happens to the individual events.
type Gateway struct {
	resolver  Resolver
	processor EventProcessor
	notifier  FailureNotifier
	cfg       GatewayConfig
	logger    zerolog.Logger
}

// NewGateway creates a new webhook gateway. notifier may be nil.
func NewGateway(resolver Resolver, processor EventProcessor, notifier FailureNotifier, cfg GatewayConfig, logger zerolog.Logger) *Gateway {
	return &Gateway{
		resolver:  resolver,
		processor: processor,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger.With().Str("component", "gateway").Logger(),
	}
}

// Handle runs the request through method check, tenant resolution, signature
// verification and event fan-out, in that order.
func (g *Gateway) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Msg("webhook handler panicked")
			resp = respond(http.StatusInternalServerError)
		}
		metrics.WebhookRequests.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	}()

	if req.Method != http.MethodPost {
		return respond(http.StatusMethodNotAllowed)
	}
	if req.Signature == "" {
		g.logger.Info().Msg("rejecting webhook without signature")
		return respond(http.StatusBadRequest)
	}

	envelope, err := line.DecodeEnvelope(req.Body)
	if err != nil {
		g.logger.Info().Err(err).Msg("rejecting unreadable webhook body")
		return respond(http.StatusBadRequest)
	}
	if envelope.Destination == "" {
		g.logger.Info().Msg("rejecting webhook without destination")
		return respond(http.StatusBadRequest)
	}

	log := g.logger.With().Str("tenant_id", envelope.Destination).Logger()

	tenant, err := g.resolver.Resolve(ctx, envelope.Destination)
	if errors.Is(err, ErrTenantNotFound) {
		log.Info().Msg("unknown tenant")
		return respond(http.StatusNotFound)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve tenant")
		return respond(http.StatusInternalServerError)
	}

	if !ValidateSignature(req.Body, req.Signature, tenant.ChannelSecret) {
		metrics.SignatureFailures.Inc()
		log.Warn().Bool("security", true).Msg("signature mismatch")
		return respond(http.StatusUnauthorized)
	}

	log.Info().Int("events", len(envelope.Events)).Msg("webhook accepted")
	g.dispatch(ctx, tenant, envelope.Events)

	return respond(http.StatusOK)
}

// ServeHTTP adapts Handle to net/http
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResponse(w, g.Handle(r.Context(), Request{Method: r.Method}))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		g.logger.Info().Err(err).Msg("failed to read webhook body")
		writeResponse(w, respond(http.StatusBadRequest))
		return
	}
	if len(body) > MaxBodyBytes {
		metrics.WebhookRequests.WithLabelValues(strconv.Itoa(http.StatusRequestEntityTooLarge)).Inc()
		writeResponse(w, respond(http.StatusRequestEntityTooLarge))
		return
	}

	writeResponse(w, g.Handle(r.Context(), Request{
		Method:    r.Method,
		Signature: r.Header.Get(SignatureHeader),
		Body:      body,
	}))
}

// dispatch processes every event concurrently and waits for all of them.
// Events run detached from the request context so a dropped connection does
// not cancel work already accepted.
func (g *Gateway) dispatch(ctx context.Context, tenant *models.Tenant, raw []json.RawMessage) {
	base := context.WithoutCancel(ctx)

	var grp errgroup.Group
	if g.cfg.MaxConcurrentEvents > 0 {
		grp.SetLimit(g.cfg.MaxConcurrentEvents)
	}
	for i, r := range raw {
		i := i // per-iteration copy; go.mod targets go1.21 loop semantics
		event := line.DecodeEvent(r)
		grp.Go(func() error {
			g.runEvent(base, tenant, i, event)
			return nil
		})
	}
	_ = grp.Wait()
}

func (g *Gateway) runEvent(ctx context.Context, tenant *models.Tenant, index int, event line.Event) {
	if g.cfg.EventTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.EventTimeout)
		defer cancel()
	}

	meta := event.Meta()
	kind := line.Kind(event)
	start := time.Now()

	err := g.safeProcess(ctx, tenant, event)
	metrics.EventDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	switch {
	case err == nil && kind == line.KindUnsupported:
		metrics.EventsProcessed.WithLabelValues(kind, "skipped").Inc()
		return
	case err == nil:
		metrics.EventsProcessed.WithLabelValues(kind, "ok").Inc()
		return
	}

	metrics.EventsProcessed.WithLabelValues(kind, "failed").Inc()
	g.logger.Error().
		Err(err).
		Str("tenant_id", tenant.TenantID).
		Str("user_id", meta.UserID).
		Str("event_id", meta.EventID).
		Str("kind", kind).
		Int("index", index).
		Msg("event failed")

	if g.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		g.notifier.NotifyFailure(notifyCtx, models.EventFailure{
			TenantID: tenant.TenantID,
			UserID:   meta.UserID,
			EventID:  meta.EventID,
			Kind:     kind,
			Err:      err,
		})
	}
}

func (g *Gateway) safeProcess(ctx context.Context, tenant *models.Tenant, event line.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return g.processor.Process(ctx, tenant, event)
}

func respond(status int) Response {
	return Response{StatusCode: status, Body: http.StatusText(status)}
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}
