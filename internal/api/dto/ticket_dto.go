package dto

import (
	"time"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// CreateTicketRequest payload. It is accepted as JSON or multipart form data;
// the multipart variant may carry an "attachment" file.
type CreateTicketRequest struct {
	CustomerName     string `json:"customer_name" form:"customer_name" validate:"required,max=200"`
	CustomerPhone    string `json:"customer_phone" form:"customer_phone" validate:"required,max=40"`
	CustomerEmail    string `json:"customer_email" form:"customer_email" validate:"omitempty,email"`
	CustomerAddress  string `json:"customer_address" form:"customer_address" validate:"required,max=500"`
	DeviceType       string `json:"device_type" form:"device_type" validate:"required,max=200"`
	SerialNumber     string `json:"serial_number" form:"serial_number" validate:"max=200"`
	FaultDescription string `json:"fault_description" form:"fault_description" validate:"required"`
	Priority         string `json:"priority" form:"priority" validate:"omitempty,oneof=NORMAL URGENT"`
}

// UpdateStatusRequest is sent as multipart form data so that a repair video
// can accompany the REPAIRED status.
type UpdateStatusRequest struct {
	Status string `json:"status" form:"status" validate:"required,oneof=OPEN IN_PROGRESS REPAIRED NOT_REPAIRED ON_HOLD"`
}

// AssignEngineerRequest payload. A null engineer_id unassigns the ticket.
type AssignEngineerRequest struct {
	EngineerID *string `json:"engineer_id"`
}

// SaveReportRequest payload.
type SaveReportRequest struct {
	TechnicalInspectionNotes *string `json:"technical_inspection_notes"`
	RepairNotes              *string `json:"repair_notes"`
	HandoverNotes            *string `json:"handover_notes"`
}

// SendWhatsAppRequest payload.
type SendWhatsAppRequest struct {
	VideoType string `json:"video_type" validate:"required,oneof=before after"`
}

// TicketResponse describes a ticket.
type TicketResponse struct {
	ID                       string                `json:"id"`
	Ref                      string                `json:"ticket_ref"`
	CustomerName             string                `json:"customer_name"`
	CustomerPhone            string                `json:"customer_phone"`
	CustomerEmail            *string               `json:"customer_email"`
	CustomerAddress          string                `json:"customer_address"`
	DeviceType               string                `json:"device_type"`
	SerialNumber             *string               `json:"serial_number"`
	FaultDescription         string                `json:"fault_description"`
	Priority                 domain.TicketPriority `json:"priority"`
	Status                   domain.TicketStatus   `json:"status"`
	StatusLabel              string                `json:"status_label"`
	AttachmentURL            *string               `json:"attachment_url"`
	AssignedEngineerID       *string               `json:"assigned_engineer_id"`
	EngineerName             *string               `json:"engineer_name"`
	TechnicalInspectionNotes *string               `json:"technical_inspection_notes"`
	RepairNotes              *string               `json:"repair_notes"`
	HandoverNotes            *string               `json:"handover_notes"`
	BeforeRepairVideoURL     *string               `json:"before_repair_video_url"`
	RepairVideoURL           *string               `json:"repair_video_url"`
	CreatedAt                time.Time             `json:"created_at"`
	UpdatedAt                time.Time             `json:"updated_at"`
}

// TicketDetailResponse adds cost lines to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	Costs     []CostResponse `json:"costs"`
	TotalCost float64        `json:"total_cost"`
}

// CustomerHistoryResponse lists a customer's tickets.
type CustomerHistoryResponse struct {
	Customer CustomerResponse `json:"customer"`
	Tickets  []TicketResponse `json:"tickets"`
}

// CustomerResponse is the customer's contact card.
type CustomerResponse struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// TicketHistoryResponse describes an audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	ChangedByName *string                 `json:"changed_by_name"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                       t.ID,
		Ref:                      t.Ref,
		CustomerName:             t.CustomerName,
		CustomerPhone:            t.CustomerPhone,
		CustomerEmail:            t.CustomerEmail,
		CustomerAddress:          t.CustomerAddress,
		DeviceType:               t.DeviceType,
		SerialNumber:             t.SerialNumber,
		FaultDescription:         t.FaultDescription,
		Priority:                 t.Priority,
		Status:                   t.Status,
		StatusLabel:              t.Status.Label(),
		AttachmentURL:            t.AttachmentURL,
		AssignedEngineerID:       t.AssignedEngineerID,
		EngineerName:             t.EngineerName,
		TechnicalInspectionNotes: t.TechnicalInspectionNotes,
		RepairNotes:              t.RepairNotes,
		HandoverNotes:            t.HandoverNotes,
		BeforeRepairVideoURL:     t.BeforeRepairVideoURL,
		RepairVideoURL:           t.RepairVideoURL,
		CreatedAt:                t.CreatedAt,
		UpdatedAt:                t.UpdatedAt,
	}
}

// NewTicketResponses maps a slice of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewHistoryResponses maps audit entries.
func NewHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	items := make([]TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByID:   entry.ChangedByID,
			ChangedByName: entry.ChangedByName,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return items
}
