package domain

import "time"

// TicketStatus enumerates repair lifecycle states.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "OPEN"
	TicketStatusInProgress  TicketStatus = "IN_PROGRESS"
	TicketStatusRepaired    TicketStatus = "REPAIRED"
	TicketStatusNotRepaired TicketStatus = "NOT_REPAIRED"
	TicketStatusOnHold      TicketStatus = "ON_HOLD"
)

// TicketStatuses lists every accepted status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusRepaired,
	TicketStatusNotRepaired,
	TicketStatusOnHold,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label returns the customer-facing Arabic label.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "مفتوح"
	case TicketStatusInProgress:
		return "قيد المعالجة"
	case TicketStatusRepaired:
		return "تم الإصلاح"
	case TicketStatusNotRepaired:
		return "لم يتم الإصلاح"
	case TicketStatusOnHold:
		return "معلق"
	}
	return string(s)
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p == TicketPriorityNormal || p == TicketPriorityUrgent
}

// Ticket is a customer's fault report for one device.
type Ticket struct {
	ID                       string
	Ref                      string
	CustomerName             string
	CustomerPhone            string
	CustomerEmail            *string
	CustomerAddress          string
	DeviceType               string
	SerialNumber             *string
	FaultDescription         string
	Priority                 TicketPriority
	Status                   TicketStatus
	AttachmentURL            *string
	AssignedEngineerID       *string
	EngineerName             *string
	TechnicalInspectionNotes *string
	RepairNotes              *string
	HandoverNotes            *string
	BeforeRepairVideoURL     *string
	RepairVideoURL           *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// TicketReport holds the technician's free-text report fields.
type TicketReport struct {
	TechnicalInspectionNotes *string
	RepairNotes              *string
	HandoverNotes            *string
}

// CustomerInfo is the contact card shown on a customer's history page.
type CustomerInfo struct {
	Name    string
	Phone   string
	Email   string
	Address string
}
