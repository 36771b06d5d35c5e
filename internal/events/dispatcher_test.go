package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	var calls []string

	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		calls = append(calls, "first:"+event.TicketID)
		return errors.New("sink down")
	})
	dispatcher.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		calls = append(calls, "second:"+event.TicketID)
		return nil
	})
	dispatcher.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		calls = append(calls, "unrelated")
		return nil
	})

	err := dispatcher.Publish(context.Background(), NewEvent(EventTicketCreated, "t1", "u1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Equal(t, []string{"first:t1", "second:t1"}, calls)
}

func TestDispatcher_PublishWithoutListeners(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	event := NewEvent(EventTicketAssigned, "t1", "admin", TicketAssignedPayload{Title: "x"})
	assert.NotEmpty(t, event.ID)
	assert.NoError(t, dispatcher.Publish(context.Background(), event))
}
