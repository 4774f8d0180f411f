package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventWelcomeEmailRequested, func(_ context.Context, e Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventWelcomeEmailRequested, func(_ context.Context, e Event) error {
		calls = append(calls, "second")
		return nil
	})

	err := d.Publish(context.Background(), New(EventWelcomeEmailRequested, WelcomeEmailPayload{Email: "a@x.com"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	err := d.Publish(context.Background(), New(EventVerificationEmailRequested, nil))
	assert.ErrorIs(t, err, ErrNoHandlers)
}

func TestNewEvent(t *testing.T) {
	e := New(EventVerificationEmailRequested, VerificationEmailPayload{Email: "a@x.com"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, EventVerificationEmailRequested, e.Type)
}
