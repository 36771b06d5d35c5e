package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/notification"
)

const emailChannel = "email"

// Notifier accepts notifications without blocking.
type Notifier interface {
	Notify(n notification.Notification) bool
}

// NotificationService turns ticket events into notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     loggerOrNop(logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.send(payload.OwnerEmail, "Ticket created", fmt.Sprintf("Your ticket %q created.", payload.Title))
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.send(payload.AgentEmail, "New Ticket Assigned",
		fmt.Sprintf("Ticket %q has been assigned to you by the Admin.", payload.Title))
	n.send(payload.OwnerEmail, "Agent Assigned",
		fmt.Sprintf("Your ticket %q has been assigned to Agent %s.", payload.Title, payload.AgentName))
	return nil
}

func (n *NotificationService) handleTicketUpdated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.send(payload.OwnerEmail, fmt.Sprintf("Ticket %s updated", payload.Title),
		fmt.Sprintf("Status: %s", payload.NewStatus))
	return nil
}

func (n *NotificationService) send(to, subject, message string) {
	if to == "" {
		n.logger.Debug("notification skipped, no recipient", zap.String("subject", subject))
		return
	}
	n.notifier.Notify(notification.Notification{
		To:      to,
		Channel: emailChannel,
		Subject: subject,
		Message: message,
	})
}
