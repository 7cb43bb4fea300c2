package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry represents a pending event in the outbox table.
// It is written in the same transaction as the state change it describes.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // "declaration", "certificate"
	AggregateID   string
	EventType     string // e.g. "declaration.sent_to_hospital"
	Payload       []byte // JSON
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil = pending
}

// IsPending returns true if this entry has not been processed yet.
func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry creates a new outbox entry with a generated UUID.
func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, now time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}

// NewJSONEntry marshals payload and wraps it in an entry.
func NewJSONEntry(aggregateType, aggregateID, eventType string, payload any, now time.Time) (*Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return NewEntry(aggregateType, aggregateID, eventType, raw, now), nil
}
