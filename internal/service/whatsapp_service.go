package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/messaging"
	"github.com/spec-kit/repair-desk/internal/observability"
	"github.com/spec-kit/repair-desk/internal/repository"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// WhatsAppService sends ticket videos to customers over WhatsApp.
type WhatsAppService struct {
	tickets repository.TicketRepository
	sender  messaging.WhatsAppSender
	cfg     config.TwilioConfig
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWhatsAppService constructs the service.
func NewWhatsAppService(tickets repository.TicketRepository, sender messaging.WhatsAppSender, cfg config.TwilioConfig, metrics *observability.Metrics, logger *zap.Logger) *WhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppService{tickets: tickets, sender: sender, cfg: cfg, metrics: metrics, logger: logger}
}

// SendVideo messages the ticket's customer a link to the chosen video and
// returns the provider message SID.
func (s *WhatsAppService) SendVideo(ctx context.Context, ticketID string, videoType messaging.VideoType) (string, error) {
	if strings.TrimSpace(ticketID) == "" || videoType == "" {
		return "", apperrors.NewValidationError("ticket_id and video_type are required", nil)
	}
	if !videoType.Valid() {
		return "", apperrors.NewValidationError("video_type must be before or after", map[string]any{"video_type": videoType})
	}
	if !s.cfg.Enabled() || s.sender == nil {
		return "", apperrors.NewConfigError("Twilio credentials are not set")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return "", notFoundOr(err, "ticket", ticketID)
	}

	videoURL := ticket.BeforeRepairVideoURL
	if videoType == messaging.VideoAfter {
		videoURL = ticket.RepairVideoURL
	}
	if videoURL == nil || *videoURL == "" {
		return "", apperrors.NewNotFound("video", map[string]any{"ticket_id": ticketID, "video_type": videoType})
	}

	sid, err := s.sender.Send(ctx, messaging.WhatsAppMessage{
		To:       messaging.FormatWhatsAppNumber(ticket.CustomerPhone, s.cfg.CountryPrefix),
		Body:     messaging.VideoMessageBody(ticket.CustomerName, videoType, ticket.Ref),
		MediaURL: *videoURL,
	})
	s.metrics.RecordWhatsApp(err == nil)
	if err != nil {
		s.logger.Warn("whatsapp send failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		if errors.Is(err, messaging.ErrNotConfigured) {
			return "", apperrors.NewConfigError("Twilio credentials are not set")
		}
		var apiErr *messaging.APIError
		if errors.As(err, &apiErr) {
			return "", apperrors.NewUpstreamError(apiErr.Message, err)
		}
		return "", apperrors.NewUpstreamError("failed to send message via Twilio", err)
	}

	s.logger.Info("whatsapp video sent",
		zap.String("ticket_id", ticket.ID),
		zap.String("video_type", string(videoType)),
		zap.String("sid", sid))
	return sid, nil
}
