package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/events"
	"github.com/idzvilla/vin-car/internal/repository"
	"github.com/idzvilla/vin-car/internal/vin"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

// LifecycleService enforces the ticket state machine NEW -> TAKEN -> DONE.
// All mutation goes through the store's conditional-update primitive, so
// the engine itself needs no locks.
type LifecycleService struct {
	tickets    repository.TicketStore
	operators  repository.OperatorStore
	quota      *QuotaService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the engine.
type LifecycleDependencies struct {
	TicketStore   repository.TicketStore
	OperatorStore repository.OperatorStore
	// Quota is optional; nil means submissions are unmetered.
	Quota      *QuotaService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewLifecycleService constructs the engine.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		tickets:    deps.TicketStore,
		operators:  deps.OperatorStore,
		quota:      deps.Quota,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SubmitIdentifier validates a raw VIN and opens a ticket for the
// requester. When the requester already has an open ticket for the same
// VIN, that ticket is returned unchanged and no event is emitted.
func (s *LifecycleService) SubmitIdentifier(ctx context.Context, raw, requesterID string) (*domain.TicketSnapshot, error) {
	normalized, err := vin.Validate(raw)
	if err != nil {
		return nil, validationToDomainError(err)
	}

	if existing, err := s.tickets.FindOpenDuplicate(ctx, normalized, requesterID); err == nil {
		snapshot := existing.Snapshot()
		return &snapshot, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	if s.quota != nil {
		if err := s.quota.Consume(ctx, requesterID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		VIN:         normalized,
		RequesterID: requesterID,
		Status:      domain.TicketStatusNew,
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenTicket) {
			// Lost the insert race; the winner's ticket is the answer.
			// The consumed report goes back on the balance.
			if s.quota != nil {
				s.quota.Refund(ctx, requesterID)
			}
			winner, findErr := s.tickets.FindOpenDuplicate(ctx, normalized, requesterID)
			if findErr != nil {
				return nil, apperrors.MapError(findErr)
			}
			snapshot := winner.Snapshot()
			return &snapshot, nil
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("vin", ticket.VIN),
		zap.String("requester_id", requesterID))

	snapshot := ticket.Snapshot()
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketCreated,
		Ticket: snapshot,
		Actor:  requesterActor(requesterID),
	})
	return &snapshot, nil
}

// Claim assigns a NEW ticket to the operator. Of two concurrent claims on
// the same ticket exactly one succeeds; the loser gets ALREADY_TAKEN so
// the dispatch layer can tell the operator their claim lost the race.
func (s *LifecycleService) Claim(ctx context.Context, ticketID int64, operatorID string) (*domain.TicketSnapshot, error) {
	operator, err := s.authorizeOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	if _, err := s.tickets.FindByID(ctx, ticketID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	updated, err := s.tickets.UpdateStatus(ctx, ticketID, repository.StatusUpdate{
		Expected:   domain.TicketStatusNew,
		Next:       domain.TicketStatusTaken,
		AssigneeID: &operator.ID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			return nil, apperrors.NewAlreadyTaken(map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket assigned",
		zap.Int64("ticket_id", updated.ID),
		zap.String("operator_id", operator.ID))

	snapshot := updated.Snapshot()
	s.publishEvent(ctx, events.Event{
		Type:   events.EventTicketAssigned,
		Ticket: snapshot,
		Actor:  operatorActor(operator.ID),
	})
	return &snapshot, nil
}

// Complete finishes a ticket and records the artifact reference for
// delivery to the requester. A ticket may be completed straight from NEW
// without a prior claim; the completing operator becomes the assignee if
// none is set.
func (s *LifecycleService) Complete(ctx context.Context, ticketID int64, artifactRef, operatorID string) (*domain.TicketSnapshot, error) {
	operator, err := s.authorizeOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if artifactRef == "" {
		return nil, apperrors.NewValidationError("artifact_ref required", nil)
	}

	// Status only moves forward, so a CAS lost to a concurrent claim is
	// retried from the newly observed status; the loop ends at DONE.
	for {
		ticket, err := s.tickets.FindByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return nil, apperrors.MapError(err)
		}
		if !ticket.CanBeCompleted() {
			return nil, apperrors.NewAlreadyCompleted(map[string]any{"ticket_id": ticketID})
		}

		updated, err := s.tickets.UpdateStatus(ctx, ticketID, repository.StatusUpdate{
			Expected:    ticket.Status,
			Next:        domain.TicketStatusDone,
			AssigneeID:  &operator.ID,
			ArtifactRef: &artifactRef,
		})
		if err != nil {
			if errors.Is(err, repository.ErrPreconditionFailed) {
				continue
			}
			return nil, apperrors.MapError(err)
		}

		s.logger.Info("ticket completed",
			zap.Int64("ticket_id", updated.ID),
			zap.String("operator_id", operator.ID),
			zap.String("artifact_ref", artifactRef))

		snapshot := updated.Snapshot()
		s.publishEvent(ctx, events.Event{
			Type:   events.EventTicketCompleted,
			Ticket: snapshot,
			Actor:  operatorActor(operator.ID),
		})
		return &snapshot, nil
	}
}

// GetTicket returns a snapshot by id.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID int64) (*domain.TicketSnapshot, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	snapshot := ticket.Snapshot()
	return &snapshot, nil
}

// authorizeOperator runs before any state check: only an active operator
// on the roster may claim or complete.
func (s *LifecycleService) authorizeOperator(ctx context.Context, operatorID string) (*domain.Operator, error) {
	if operatorID == "" {
		return nil, apperrors.NewForbidden("operator required")
	}
	operator, err := s.operators.GetByID(ctx, operatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewForbidden("operator not on roster")
		}
		return nil, apperrors.MapError(err)
	}
	if !operator.Active {
		return nil, apperrors.NewForbidden("operator deactivated")
	}
	return operator, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validationToDomainError(err error) error {
	var verr *vin.ValidationError
	if !errors.As(err, &verr) {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	details := map[string]any{"kind": string(verr.Kind)}
	if len(verr.Forbidden) > 0 {
		details["forbidden"] = string(verr.Forbidden)
	}
	return apperrors.NewValidationError(verr.Error(), details)
}

func requesterActor(requesterID string) events.Actor {
	return events.Actor{
		Type:        domain.SubjectTypeRequester,
		RequesterID: &requesterID,
	}
}

func operatorActor(operatorID string) events.Actor {
	return events.Actor{
		Type:       domain.SubjectTypeOperator,
		OperatorID: &operatorID,
	}
}
