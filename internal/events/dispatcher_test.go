package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idzvilla/vin-car/internal/domain"
)

func TestDispatcherDeliversToSubscribersInOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var order []string
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		order = append(order, "first")
		return nil
	})
	dispatcher.Subscribe(EventTicketCreated, func(ctx context.Context, e Event) error {
		order = append(order, "second")
		return nil
	})
	dispatcher.Subscribe(EventTicketCompleted, func(ctx context.Context, e Event) error {
		order = append(order, "wrong type")
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatcherHandlerErrorDoesNotStopDelivery(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var delivered int
	dispatcher.Subscribe(EventTicketAssigned, func(ctx context.Context, e Event) error {
		delivered++
		return errors.New("handler failed")
	})
	dispatcher.Subscribe(EventTicketAssigned, func(ctx context.Context, e Event) error {
		delivered++
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{Type: EventTicketAssigned})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)
}

func TestDispatcherPublishWithoutSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	assert.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventTicketCreated}))
}

func TestEventArtifactRef(t *testing.T) {
	ref := "report.pdf"
	completed := Event{
		Type:   EventTicketCompleted,
		Ticket: domain.TicketSnapshot{ArtifactRef: &ref},
	}
	assert.Equal(t, "report.pdf", completed.ArtifactRef())

	created := Event{Type: EventTicketCreated, Ticket: domain.TicketSnapshot{ArtifactRef: &ref}}
	assert.Empty(t, created.ArtifactRef())

	bare := Event{Type: EventTicketCompleted}
	assert.Empty(t, bare.ArtifactRef())
}
