package domain

import "time"

// EventName identifies a work-order domain event.
type EventName string

const (
	EventSubmittedForAcceptance EventName = "work_order.submitted_for_acceptance"
	EventAcceptedByCustomer     EventName = "work_order.accepted"
	EventRejectedByCustomer     EventName = "work_order.rejected"
	EventClientSigned           EventName = "work_order.client_signed"
	EventSlaBreached            EventName = "work_order.sla_breached"
	EventReopened               EventName = "work_order.reopened"
)

// DomainEvent is a plain value appended by the aggregate and dispatched after a successful save.
type DomainEvent struct {
	Name            EventName
	WorkOrderID     string
	WorkOrderNumber string
	OccurredAt      time.Time
	Payload         any
}

// AcceptedPayload payload.
type AcceptedPayload struct {
	AcceptedBy string `json:"accepted_by"`
}

// RejectedPayload payload.
type RejectedPayload struct {
	Reason string `json:"reason"`
}

// ReopenedPayload payload.
type ReopenedPayload struct {
	Reason string `json:"reason"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	SlaClass           SlaClass  `json:"sla_class"`
	ResolutionDeadline time.Time `json:"resolution_deadline"`
	EvaluatedAt        time.Time `json:"evaluated_at"`
}
