package events

import (
	"time"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketEngineerAssigned EventType = "ticket_engineer_assigned"
	EventTicketReportSaved      EventType = "ticket_report_saved"
)

// Event represents a domain event emitted by services. Ticket is a snapshot
// taken after the change was persisted.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	TicketID  string         `json:"ticket_id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Ticket    *domain.Ticket `json:"-"`
	Payload   interface{}    `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ref      string                `json:"ref"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketEngineerAssignedPayload payload.
type TicketEngineerAssignedPayload struct {
	OldEngineerID *string `json:"old_engineer_id,omitempty"`
	NewEngineerID *string `json:"new_engineer_id,omitempty"`
}

// TicketReportSavedPayload payload.
type TicketReportSavedPayload struct {
	Fields []string `json:"fields"`
}
