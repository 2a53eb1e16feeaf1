package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/appointmint/apptbot/internal/logger"
	"github.com/appointmint/apptbot/internal/metrics"
	"github.com/appointmint/apptbot/internal/model"
	"github.com/appointmint/apptbot/internal/repository"
	"github.com/appointmint/apptbot/internal/util"
)

type Config struct {
	MaxAttempts  int           // per send, e.g. 2
	RetryBackoff time.Duration // pause between attempts
	ButtonLimit  int           // max choices per message
}

// ErrProviderNotReady means the breaker refused the call; nothing was sent.
var ErrProviderNotReady = fmt.Errorf("provider not ready")

// Dispatcher is the single outbound path. Every reply, button menu, reminder
// and follow-up goes through Send or SendChoice; callers never talk to the
// provider directly.
type Dispatcher struct {
	provider     Provider
	deliveries   repository.DeliveriesRepository
	maxAttempts  int
	retryBackoff time.Duration
	buttonLimit  int
}

// NewDispatcher wires a provider and an optional delivery audit repository
// (nil disables auditing, used by tests).
func NewDispatcher(p Provider, deliveries repository.DeliveriesRepository, cfg Config) *Dispatcher {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 2
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.ButtonLimit < 1 {
		cfg.ButtonLimit = 3
	}

	return &Dispatcher{
		provider:     p,
		deliveries:   deliveries,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
		buttonLimit:  cfg.ButtonLimit,
	}
}

// Send delivers a plain text message, retrying up to the configured attempt
// count. It returns the provider message id of the successful send.
func (d *Dispatcher) Send(ctx context.Context, kind model.DeliveryKind, to, body string) (string, error) {
	return d.send(ctx, kind, to, body, nil)
}

// SendChoice delivers body plus tappable choices. Choices beyond the button
// limit are dropped, never split across extra messages.
func (d *Dispatcher) SendChoice(ctx context.Context, to, body string, choices []model.Choice) (string, error) {
	if len(choices) > d.buttonLimit {
		logger.Log.Warn("dropping choices over button limit",
			zap.Int("given", len(choices)), zap.Int("limit", d.buttonLimit))
		choices = choices[:d.buttonLimit]
	}

	return d.send(ctx, model.KindButtons, to, body, choices)
}

func (d *Dispatcher) send(ctx context.Context, kind model.DeliveryKind, to, body string, choices []model.Choice) (string, error) {
	var (
		sid  string
		last error
	)

attempts:
	for i := 0; i < d.maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				last = ctx.Err()
				break attempts
			case <-time.After(d.retryBackoff):
			}
		}

		sid, last = d.tryOnce(ctx, to, body, choices)
		if last == nil {
			break
		}
	}

	status := model.DeliverySent
	if last != nil {
		status = model.DeliveryFailed
		logger.Log.Error("dispatch failed",
			zap.String("kind", kind.String()), zap.String("to", to), zap.Error(last))
	}

	metrics.MessagesTotal.WithLabelValues(kind.String(), status.String()).Inc()
	d.record(ctx, model.Delivery{
		ID:          util.New(),
		Recipient:   to,
		Kind:        kind,
		Body:        body,
		Status:      status,
		ProviderSID: sid,
	})

	if last != nil {
		return "", fmt.Errorf("send %s: %w", kind, last)
	}

	return sid, nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, to, body string, choices []model.Choice) (string, error) {
	if !d.provider.Acquire() {
		return "", ErrProviderNotReady
	}

	if len(choices) > 0 {
		return d.provider.SendButtons(ctx, to, body, choices)
	}

	return d.provider.SendText(ctx, to, body)
}

// record is best effort; a broken audit table must not block messaging.
func (d *Dispatcher) record(ctx context.Context, dl model.Delivery) {
	if d.deliveries == nil {
		return
	}
	if err := d.deliveries.Insert(ctx, dl); err != nil {
		logger.Log.Warn("delivery audit insert failed", zap.Error(err))
	}
}
