package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MohamadAlaskari/EventHub/internal/events"
	"github.com/MohamadAlaskari/EventHub/internal/mail"
)

// NotificationService renders account emails for notification events and
// hands them to the mailer.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer mail.Mailer, logger *zap.Logger) *NotificationService {
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
	n.dispatcher.Subscribe(events.EventVerificationEmailRequested, n.handleVerificationEmail)
	n.dispatcher.Subscribe(events.EventWelcomeEmailRequested, n.handleWelcomeEmail)
}

func (n *NotificationService) handleVerificationEmail(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VerificationEmailPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	n.logger.Debug("VerificationEmailRequested", zap.String("event_id", event.ID), zap.String("email", payload.Email))

	return n.mailer.Send(ctx, mail.Message{
		To:      payload.Email,
		Subject: "Verify your EventHub email",
		Body: fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link expires soon. If you did not sign up for EventHub you can ignore this message.\n",
			payload.Name, payload.Link),
	})
}

func (n *NotificationService) handleWelcomeEmail(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.WelcomeEmailPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	n.logger.Debug("WelcomeEmailRequested", zap.String("event_id", event.ID), zap.String("email", payload.Email))

	return n.mailer.Send(ctx, mail.Message{
		To:      payload.Email,
		Subject: "Welcome to EventHub",
		Body:    fmt.Sprintf("Hi %s,\n\nWelcome back to EventHub. Discover what's happening near you.\n", payload.Name),
	})
}
