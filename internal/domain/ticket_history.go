package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "STATUS_CHANGE"
	ChangeTypeEngineer TicketChangeType = "ENGINEER_CHANGE"
	ChangeTypeReport   TicketChangeType = "REPORT_UPDATE"
	ChangeTypeVideo    TicketChangeType = "VIDEO_UPLOAD"
	ChangeTypeCost     TicketChangeType = "COST_CHANGE"
)

// TicketHistory is an immutable audit trail entry. ChangedByName is resolved
// on read and is nil once the staff account is gone.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByID   *string
	ChangedByName *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
