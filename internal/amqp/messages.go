package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types double as routing keys on the ledger exchange.
const (
	EventEarningCreated   = "earning.created"
	EventExpenseCreated   = "expense.created"
	EventEarningsSynced   = "earnings.synced"
	EventAccountConnected = "account.connected"
)

// LedgerEvent is a lightweight notification that a user's ledger changed.
// Consumers re-read the ledger rather than trusting a payload.
type LedgerEvent struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Count  int    `json:"count"`
	// Years lists the tax years whose totals changed.
	Years []int `json:"years,omitempty"`
	// Origin identifies the publishing process. Set by Client.
	Origin     string    `json:"origin,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewLedgerEvent(eventType, userID string, count int, years ...int) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		Count:      count,
		Years:      years,
		OccurredAt: time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
