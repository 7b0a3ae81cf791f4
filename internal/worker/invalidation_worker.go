// Package worker runs background consumers of ledger events.
package worker

import (
	"context"
	"errors"
	"time"

	"creatorfin/internal/amqp"
	"creatorfin/internal/log"
)

// Invalidator drops cached tax totals for a user.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string, years ...int)
}

// Consumer delivers ledger events until ctx is done or the subscription
// breaks.
type Consumer interface {
	ConsumeLedgerEvents(ctx context.Context, handler amqp.LedgerHandler) error
}

// InvalidationWorker keeps a process-local totals cache coherent with writes
// made by other instances.
type InvalidationWorker struct {
	consumer    Consumer
	invalidator Invalidator
	origin      string
	logger      *log.Logger

	// retryDelay is the pause before resubscribing after a broken consumer.
	retryDelay time.Duration
}

func NewInvalidationWorker(consumer Consumer, invalidator Invalidator, origin string, logger *log.Logger) *InvalidationWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InvalidationWorker{
		consumer:    consumer,
		invalidator: invalidator,
		origin:      origin,
		logger:      logger.WithComponent(log.ComponentWorker),
		retryDelay:  5 * time.Second,
	}
}

// HandleLedgerEvent invalidates the years named by ev. Events published by
// this process were already applied locally and are skipped.
func (w *InvalidationWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.UserID == "" {
		w.logger.WarnContext(ctx, "Dropping ledger event without user", "event_id", ev.ID)
		return nil
	}
	// Connection events carry no years and change no totals.
	if len(ev.Years) == 0 || (w.origin != "" && ev.Origin == w.origin) {
		return nil
	}
	w.invalidator.Invalidate(ctx, ev.UserID, ev.Years...)

	w.logger.DebugContext(ctx, "Applied remote ledger event",
		"event_id", ev.ID,
		"event_type", ev.Type,
		log.FieldUserID, ev.UserID)
	return nil
}

// Run consumes until ctx is cancelled, resubscribing after failures.
func (w *InvalidationWorker) Run(ctx context.Context) error {
	for {
		err := w.consumer.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Ledger event consumption failed", log.FieldError, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}
