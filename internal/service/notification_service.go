package service

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/events"
	"github.com/spec-kit/repair-desk/internal/messaging"
)

// NotificationService emails customers about their tickets in response to domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     messaging.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil mailer disables email.
// Delivery outcomes are recorded by the mailer, not here.
func NewNotificationService(dispatcher events.Dispatcher, mailer messaging.Mailer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketEngineerAssigned, n.logEvent)
	n.dispatcher.Subscribe(events.EventTicketReportSaved, n.logEvent)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	ticket := event.Ticket
	if ticket == nil {
		return nil
	}
	subject := fmt.Sprintf("تم استلام طلب الصيانة %s", ticket.Ref)
	plain := fmt.Sprintf("مرحباً %s،\n\nتم تسجيل طلب الصيانة الخاص بجهاز %s برقم %s. سنتواصل معك قريباً.",
		ticket.CustomerName, ticket.DeviceType, ticket.Ref)
	return n.sendToCustomer(ctx, event, ticket, subject, plain)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	ticket := event.Ticket
	if ticket == nil {
		return nil
	}
	subject := fmt.Sprintf("تحديث حالة طلب الصيانة %s", ticket.Ref)
	plain := fmt.Sprintf("مرحباً %s،\n\nأصبحت حالة طلب الصيانة رقم %s: %s.",
		ticket.CustomerName, ticket.Ref, ticket.Status.Label())
	return n.sendToCustomer(ctx, event, ticket, subject, plain)
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendToCustomer(ctx context.Context, event events.Event, ticket *domain.Ticket, subject, plain string) error {
	if n.mailer == nil || ticket.CustomerEmail == nil || *ticket.CustomerEmail == "" {
		return nil
	}
	err := n.mailer.Send(ctx, messaging.Email{
		Kind:      string(event.Type),
		To:        *ticket.CustomerEmail,
		Subject:   subject,
		PlainBody: plain,
		HTMLBody:  fmt.Sprintf(`<html><body dir="rtl"><p>%s</p></body></html>`, html.EscapeString(plain)),
	})
	if err != nil {
		n.logger.Warn("customer email failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
