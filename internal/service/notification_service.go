package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/idzvilla/vin-car/internal/config"
	"github.com/idzvilla/vin-car/internal/events"
)

// NotificationService is the dispatch side of the engine boundary: it
// forwards new tickets to the operator channel and completed artifacts
// back to requesters. Delivery is fire-and-forget; the engine never
// retries.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCompleted, n.handleTicketCompleted)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated",
		zap.Int64("ticket_id", event.Ticket.ID),
		zap.String("vin", event.Ticket.VIN),
		zap.String("requester_id", event.Ticket.RequesterID))
	n.sendOperatorChannelStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned",
		zap.Int64("ticket_id", event.Ticket.ID),
		zap.Stringp("assignee_id", event.Ticket.AssigneeID))
	n.sendOperatorChannelStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCompleted",
		zap.Int64("ticket_id", event.Ticket.ID),
		zap.String("requester_id", event.Ticket.RequesterID),
		zap.String("artifact_ref", event.ArtifactRef()))
	n.sendRequesterWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendOperatorChannelStub(ctx context.Context, event events.Event) {
	if n.cfg.OperatorWebhookURL == "" {
		return
	}
	n.logger.Debug("sendOperatorChannelStub",
		zap.String("url", n.cfg.OperatorWebhookURL),
		zap.Int64("ticket_id", event.Ticket.ID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendRequesterWebhookStub(ctx context.Context, event events.Event) {
	if n.cfg.RequesterWebhookURL == "" {
		return
	}
	n.logger.Debug("sendRequesterWebhookStub",
		zap.String("url", n.cfg.RequesterWebhookURL),
		zap.Int64("ticket_id", event.Ticket.ID),
		zap.String("artifact_ref", event.ArtifactRef()))
}
