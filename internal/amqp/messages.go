package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by a LedgerEvent.
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// LedgerEvent describes a single ledger mutation. It carries the full record
// because consumers have no access to the per-user ledger files.
type LedgerEvent struct {
	Action      string    `json:"action"`
	Username    string    `json:"username"`
	Date        string    `json:"date"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Note        string    `json:"note"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event stamped with the current time.
func NewLedgerEvent(action, username, date, kind, category string, amountCents int64, note string) *LedgerEvent {
	return &LedgerEvent{
		Action:      action,
		Username:    username,
		Date:        date,
		Kind:        kind,
		Category:    category,
		AmountCents: amountCents,
		Note:        note,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON creates an event from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
