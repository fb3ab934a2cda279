package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/api/dto"
	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/messaging"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service  *service.TicketService
	whatsapp *service.WhatsAppService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, whatsappService *service.WhatsAppService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, whatsapp: whatsappService}
}

// CreateTicket POST /tickets. Public; accepts JSON or multipart with an optional "attachment" file.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	attachment, closeAttachment, err := formUpload(c, "attachment")
	if err != nil {
		return err
	}
	defer closeAttachment()

	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    optionalString(req.CustomerEmail),
		CustomerAddress:  req.CustomerAddress,
		DeviceType:       req.DeviceType,
		SerialNumber:     optionalString(req.SerialNumber),
		FaultDescription: req.FaultDescription,
		Priority:         domain.TicketPriority(req.Priority),
		Attachment:       attachment,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := service.TicketListFilter{
		EngineerID: optionalString(c.Query("engineer_id")),
		SearchTerm: optionalString(c.Query("q")),
		Page:       parseIntQuery(c, "page", 1),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}
	for _, s := range splitQuery(c, "status") {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range splitQuery(c, "priority") {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	result, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewTicketResponses(result.Tickets),
		"meta": fiber.Map{"page": result.Page, "page_size": result.PageSize},
	})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: dto.NewTicketResponse(detail.Ticket),
		Costs:          dto.NewCostResponses(detail.Costs),
		TotalCost:      detail.TotalCost,
	}})
}

// UpdateStatus PATCH /tickets/:id/status. Multipart with an optional "repair_video" file.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	video, closeVideo, err := formUpload(c, "repair_video")
	if err != nil {
		return err
	}
	defer closeVideo()

	ticket, err := h.service.UpdateStatus(c.UserContext(), staff, c.Params("id"), domain.TicketStatus(req.Status), video)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UploadBeforeRepairVideo POST /tickets/:id/before-video. Multipart field "video".
func (h *TicketsHandler) UploadBeforeRepairVideo(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	video, closeVideo, err := formUpload(c, "video")
	if err != nil {
		return err
	}
	defer closeVideo()
	if video == nil {
		return apperrors.NewValidationError("video file is required", map[string]any{"field": "video"})
	}

	ticket, err := h.service.UploadBeforeRepairVideo(c.UserContext(), staff, c.Params("id"), *video)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// AssignEngineer PUT /tickets/:id/engineer.
func (h *TicketsHandler) AssignEngineer(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignEngineerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignEngineer(c.UserContext(), staff, c.Params("id"), req.EngineerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// SaveReport PUT /tickets/:id/report.
func (h *TicketsHandler) SaveReport(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SaveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SaveReport(c.UserContext(), staff, c.Params("id"), domain.TicketReport{
		TechnicalInspectionNotes: req.TechnicalInspectionNotes,
		RepairNotes:              req.RepairNotes,
		HandoverNotes:            req.HandoverNotes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CustomerHistory GET /customers/history?email=.
func (h *TicketsHandler) CustomerHistory(c *fiber.Ctx) error {
	history, err := h.service.CustomerHistory(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CustomerHistoryResponse{
		Customer: dto.CustomerResponse{
			Name:    history.Customer.Name,
			Phone:   history.Customer.Phone,
			Email:   history.Customer.Email,
			Address: history.Customer.Address,
		},
		Tickets: dto.NewTicketResponses(history.Tickets),
	}})
}

// PrintTicket GET /tickets/:id/print.
func (h *TicketsHandler) PrintTicket(c *fiber.Ctx) error {
	page, err := h.service.PrintTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponses(entries)})
}

// SendWhatsAppVideo POST /tickets/:id/whatsapp.
func (h *TicketsHandler) SendWhatsAppVideo(c *fiber.Ctx) error {
	var req dto.SendWhatsAppRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	sid, err := h.whatsapp.SendVideo(c.UserContext(), c.Params("id"), messaging.VideoType(req.VideoType))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"success": true, "message_sid": sid}})
}
