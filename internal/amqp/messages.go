package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind says what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// TransactionEvent is a lightweight notification about a transaction write.
// It carries only identifiers; the worker loads the current row itself.
type TransactionEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      EventKind `json:"kind"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionEvent stamps a new event with the current time.
func NewTransactionEvent(id, userID int64, kind EventKind, version int64) *TransactionEvent {
	return &TransactionEvent{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.ID <= 0 || e.UserID <= 0 {
		return nil, fmt.Errorf("event without transaction or user id")
	}
	return &e, nil
}
