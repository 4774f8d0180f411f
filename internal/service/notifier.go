package service

import (
	"context"
	"net/url"

	"github.com/MohamadAlaskari/EventHub/internal/events"
)

// Notifier sends account emails.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, name, token, baseURL string) error
	SendWelcomeEmail(ctx context.Context, email, name string) error
}

// EmailNotifier turns notification requests into events handled by the
// NotificationService.
type EmailNotifier struct {
	dispatcher events.Dispatcher
}

// NewEmailNotifier constructs a notifier publishing on dispatcher.
func NewEmailNotifier(dispatcher events.Dispatcher) *EmailNotifier {
	return &EmailNotifier{dispatcher: dispatcher}
}

func (n *EmailNotifier) SendVerificationEmail(ctx context.Context, email, name, token, baseURL string) error {
	return n.dispatcher.Publish(ctx, events.New(events.EventVerificationEmailRequested, events.VerificationEmailPayload{
		Email: email,
		Name:  name,
		Token: token,
		Link:  VerificationLink(baseURL, token),
	}))
}

func (n *EmailNotifier) SendWelcomeEmail(ctx context.Context, email, name string) error {
	return n.dispatcher.Publish(ctx, events.New(events.EventWelcomeEmailRequested, events.WelcomeEmailPayload{
		Email: email,
		Name:  name,
	}))
}

// VerificationLink builds the URL a user follows to verify their email.
func VerificationLink(baseURL, token string) string {
	return baseURL + "/auth/verify-email?token=" + url.QueryEscape(token)
}
