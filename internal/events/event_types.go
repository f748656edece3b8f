package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventWorkOrderSubmittedForAcceptance = EventType(domain.EventSubmittedForAcceptance)
	EventWorkOrderAccepted               = EventType(domain.EventAcceptedByCustomer)
	EventWorkOrderRejected               = EventType(domain.EventRejectedByCustomer)
	EventWorkOrderClientSigned           = EventType(domain.EventClientSigned)
	EventWorkOrderSlaBreached            = EventType(domain.EventSlaBreached)
	EventWorkOrderReopened               = EventType(domain.EventReopened)
)

// AllEventTypes lists every type the aggregate can raise.
var AllEventTypes = []EventType{
	EventWorkOrderSubmittedForAcceptance,
	EventWorkOrderAccepted,
	EventWorkOrderRejected,
	EventWorkOrderClientSigned,
	EventWorkOrderSlaBreached,
	EventWorkOrderReopened,
}

// Event is the envelope handed to subscribers and brokers.
type Event struct {
	ID              string    `json:"id"`
	Type            EventType `json:"type"`
	WorkOrderID     string    `json:"work_order_id"`
	WorkOrderNumber string    `json:"wo_number"`
	Timestamp       time.Time `json:"timestamp"`
	Payload         any       `json:"payload,omitempty"`
}

// FromDomain wraps an aggregate event in a fresh envelope.
func FromDomain(ev domain.DomainEvent) Event {
	return Event{
		ID:              uuid.NewString(),
		Type:            EventType(ev.Name),
		WorkOrderID:     ev.WorkOrderID,
		WorkOrderNumber: ev.WorkOrderNumber,
		Timestamp:       ev.OccurredAt.UTC(),
		Payload:         ev.Payload,
	}
}

// Encode serializes an event for brokers.
func Encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}
