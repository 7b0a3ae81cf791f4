package services

import (
	"context"

	"creatorfin/internal/amqp"
	"creatorfin/internal/log"
)

// publish sends a ledger event when a publisher is configured. Failures are
// logged and never surface to the caller.
func publish(ctx context.Context, events amqp.Publisher, eventType, userID string, count int, years ...int) {
	if events == nil {
		return
	}
	ev := amqp.NewLedgerEvent(eventType, userID, count, years...)
	if err := events.PublishLedgerEvent(ctx, ev); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to publish ledger event",
			"event_id", ev.ID,
			"event_type", eventType,
			log.FieldUserID, userID,
			log.FieldError, err.Error())
	}
}
