package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/events"
	"github.com/spec-kit/repair-desk/internal/report"
	"github.com/spec-kit/repair-desk/internal/repository"
	"github.com/spec-kit/repair-desk/internal/storage"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	engineers  repository.EngineerRepository
	costs      repository.CostRepository
	history    repository.TicketHistoryRepository
	files      storage.Store
	printer    *report.Printer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	EngineerRepo repository.EngineerRepository
	CostRepo     repository.CostRepository
	HistoryRepo  repository.TicketHistoryRepository
	Files        storage.Store
	Printer      *report.Printer
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// Upload is a file received with a request.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CustomerName     string
	CustomerPhone    string
	CustomerEmail    *string
	CustomerAddress  string
	DeviceType       string
	SerialNumber     *string
	FaultDescription string
	Priority         domain.TicketPriority
	Attachment       *Upload
}

// TicketListFilter describes staff listing filters.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	EngineerID *string
	SearchTerm *string
	Page       int
	PageSize   int
}

// TicketPage is one page of a ticket listing. PageSize is the size actually applied.
type TicketPage struct {
	Tickets  []domain.Ticket
	Page     int
	PageSize int
}

// TicketDetail is a ticket with its cost lines.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Costs     []domain.MaintenanceCost
	TotalCost float64
}

// CustomerHistory lists every ticket filed under one email address.
type CustomerHistory struct {
	Customer domain.CustomerInfo
	Tickets  []domain.Ticket
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		engineers:  deps.EngineerRepo,
		costs:      deps.CostRepo,
		history:    deps.HistoryRepo,
		files:      deps.Files,
		printer:    deps.Printer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTicket files a new customer ticket. It is the only unauthenticated write.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Ref:              generateTicketRef(),
		CustomerName:     strings.TrimSpace(input.CustomerName),
		CustomerPhone:    strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:    trimmedOrNil(input.CustomerEmail),
		CustomerAddress:  strings.TrimSpace(input.CustomerAddress),
		DeviceType:       strings.TrimSpace(input.DeviceType),
		SerialNumber:     trimmedOrNil(input.SerialNumber),
		FaultDescription: strings.TrimSpace(input.FaultDescription),
		Priority:         input.Priority,
		Status:           domain.TicketStatusOpen,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityNormal
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	if ticket.CustomerEmail != nil {
		lowered := strings.ToLower(*ticket.CustomerEmail)
		ticket.CustomerEmail = &lowered
	}

	missing := missingFields(map[string]string{
		"customer_name":     ticket.CustomerName,
		"customer_phone":    ticket.CustomerPhone,
		"customer_address":  ticket.CustomerAddress,
		"device_type":       ticket.DeviceType,
		"fault_description": ticket.FaultDescription,
	})
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}

	var stored *storage.Object
	if input.Attachment != nil {
		obj, err := s.store(ctx, storage.PrefixAttachments, *input.Attachment)
		if err != nil {
			return nil, err
		}
		stored = obj
		ticket.AttachmentURL = &obj.URL
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Ticket:   ticket,
		Payload: events.TicketCreatedPayload{
			Ref:      ticket.Ref,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) (*TicketPage, error) {
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
		}
	}
	page := max(filter.Page, 1)
	size := clampLimit(filter.PageSize)
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		EngineerID: filter.EngineerID,
		SearchTerm: trimmedOrNil(filter.SearchTerm),
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Page: page, PageSize: size}, nil
}

// GetTicket returns a ticket with its cost lines and total.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	costs, err := s.costs.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Costs: costs, TotalCost: domain.TotalCost(costs)}, nil
}

// UpdateStatus moves a ticket to newStatus. REPAIRED requires the repair video
// to be uploaded with the same request.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.StaffMember, ticketID string, newStatus domain.TicketStatus, repairVideo *Upload) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	if newStatus == domain.TicketStatusRepaired && repairVideo == nil {
		return nil, apperrors.NewValidationError("a repair video is required to mark the ticket repaired", map[string]any{"field": "repair_video"})
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status

	var stored *storage.Object
	if newStatus == domain.TicketStatusRepaired {
		obj, err := s.store(ctx, storage.PrefixRepairVideos, *repairVideo)
		if err != nil {
			return nil, err
		}
		stored = obj
		ticket.RepairVideoURL = &obj.URL
	}

	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	newValue := map[string]any{"status": newStatus}
	if stored != nil {
		newValue["repair_video_url"] = stored.URL
	}
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus, map[string]any{"status": oldStatus}, newValue)

	if oldStatus != newStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  actorID(actor),
			Ticket:   ticket,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: newStatus,
			},
		})
	}
	return ticket, nil
}

// UploadBeforeRepairVideo stores the pre-repair video and links it on the ticket.
func (s *TicketService) UploadBeforeRepairVideo(ctx context.Context, actor *domain.StaffMember, ticketID string, video Upload) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store(ctx, storage.PrefixBeforeVideos, video)
	if err != nil {
		return nil, err
	}
	old := ticket.BeforeRepairVideoURL
	ticket.BeforeRepairVideoURL = &obj.URL
	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.discard(ctx, obj)
		return nil, err
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeVideo,
		map[string]any{"before_repair_video_url": old},
		map[string]any{"before_repair_video_url": obj.URL})
	return ticket, nil
}

// AssignEngineer sets or clears the ticket's engineer.
func (s *TicketService) AssignEngineer(ctx context.Context, actor *domain.StaffMember, ticketID string, engineerID *string) (*domain.Ticket, error) {
	engineerID = trimmedOrNil(engineerID)
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if engineerID != nil {
		engineer, err := s.engineers.GetByID(ctx, *engineerID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("engineer", map[string]any{"engineer_id": *engineerID})
			}
			return nil, err
		}
		ticket.EngineerName = &engineer.Name
	} else {
		ticket.EngineerName = nil
	}

	old := ticket.AssignedEngineerID
	ticket.AssignedEngineerID = engineerID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeEngineer,
		map[string]any{"assigned_engineer_id": old},
		map[string]any{"assigned_engineer_id": engineerID})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEngineerAssigned,
		TicketID: ticket.ID,
		ActorID:  actorID(actor),
		Ticket:   ticket,
		Payload: events.TicketEngineerAssignedPayload{
			OldEngineerID: old,
			NewEngineerID: engineerID,
		},
	})
	return ticket, nil
}

// SaveReport overwrites the three report note fields.
func (s *TicketService) SaveReport(ctx context.Context, actor *domain.StaffMember, ticketID string, input domain.TicketReport) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldValue := reportValues(ticket.TechnicalInspectionNotes, ticket.RepairNotes, ticket.HandoverNotes)
	ticket.TechnicalInspectionNotes = trimmedOrNil(input.TechnicalInspectionNotes)
	ticket.RepairNotes = trimmedOrNil(input.RepairNotes)
	ticket.HandoverNotes = trimmedOrNil(input.HandoverNotes)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	newValue := reportValues(ticket.TechnicalInspectionNotes, ticket.RepairNotes, ticket.HandoverNotes)
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeReport, oldValue, newValue)

	changed := make([]string, 0, 3)
	for _, field := range []string{"technical_inspection_notes", "repair_notes", "handover_notes"} {
		if oldValue[field] != newValue[field] {
			changed = append(changed, field)
		}
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReportSaved,
		TicketID: ticket.ID,
		ActorID:  actorID(actor),
		Ticket:   ticket,
		Payload:  events.TicketReportSavedPayload{Fields: changed},
	})
	return ticket, nil
}

// CustomerHistory lists a customer's tickets newest first, taking contact
// details from the most recent one.
func (s *TicketService) CustomerHistory(ctx context.Context, email string) (*CustomerHistory, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{CustomerEmail: &email, Limit: -1})
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, apperrors.NewNotFound("customer", map[string]any{"email": email})
	}

	latest := tickets[0]
	return &CustomerHistory{
		Customer: domain.CustomerInfo{
			Name:    latest.CustomerName,
			Phone:   latest.CustomerPhone,
			Email:   email,
			Address: latest.CustomerAddress,
		},
		Tickets: tickets,
	}, nil
}

// PrintTicket renders the printable HTML report for a ticket.
func (s *TicketService) PrintTicket(ctx context.Context, ticketID string) (string, error) {
	detail, err := s.GetTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if s.printer == nil {
		return "", apperrors.NewConfigError("report printer not configured")
	}
	out, err := s.printer.RenderTicket(detail.Ticket, detail.Costs)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return out, nil
}

// History returns the ticket's audit trail oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.loadTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, ticketID)
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) store(ctx context.Context, prefix string, upload Upload) (*storage.Object, error) {
	if s.files == nil {
		return nil, apperrors.NewConfigError("file storage not configured")
	}
	key := storage.BuildKey(prefix, upload.Filename, s.now())
	obj, err := s.files.Put(ctx, key, upload.Body, upload.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.NewDomainError("PAYLOAD_TOO_LARGE", "uploaded file is too large", http.StatusRequestEntityTooLarge, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return obj, nil
}

func (s *TicketService) discard(ctx context.Context, obj *storage.Object) {
	if obj == nil || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, obj.Key); err != nil {
		s.logger.Warn("failed to remove orphaned upload", zap.String("key", obj.Key), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (s *TicketService) recordHistory(ctx context.Context, actor *domain.StaffMember, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID(actor),
		ChangeType:  changeType,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func generateTicketRef() string {
	return "MT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func actorID(actor *domain.StaffMember) *string {
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}

func reportValues(inspection, repair, handover *string) map[string]any {
	return map[string]any{
		"technical_inspection_notes": derefOrEmpty(inspection),
		"repair_notes":               derefOrEmpty(repair),
		"handover_notes":             derefOrEmpty(handover),
	}
}
