package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/events"
	"github.com/idzvilla/vin-car/internal/repository"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

const testVIN = "1HGBH41JXMN109186"

type engineFixture struct {
	engine        *LifecycleService
	tickets       *repository.MemoryTicketStore
	operators     *repository.MemoryOperatorStore
	subscriptions *repository.MemorySubscriptionStore
	dispatcher    events.Dispatcher

	mu     sync.Mutex
	events []events.Event
}

func newEngineFixture(t *testing.T, withQuota bool) *engineFixture {
	t.Helper()

	f := &engineFixture{
		tickets:       repository.NewMemoryTicketStore(),
		operators:     repository.NewMemoryOperatorStore(),
		subscriptions: repository.NewMemorySubscriptionStore(),
		dispatcher:    events.NewInMemoryDispatcher(),
	}

	record := func(ctx context.Context, event events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, event)
		return nil
	}
	f.dispatcher.Subscribe(events.EventTicketCreated, record)
	f.dispatcher.Subscribe(events.EventTicketAssigned, record)
	f.dispatcher.Subscribe(events.EventTicketCompleted, record)

	deps := LifecycleDependencies{
		TicketStore:   f.tickets,
		OperatorStore: f.operators,
		Dispatcher:    f.dispatcher,
	}
	if withQuota {
		deps.Quota = NewQuotaService(f.subscriptions, nil)
	}
	f.engine = NewLifecycleService(deps)
	return f
}

func (f *engineFixture) addOperator(t *testing.T, id string, active bool) {
	t.Helper()
	err := f.operators.Create(context.Background(), &domain.Operator{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: id,
		Active:      active,
	})
	require.NoError(t, err)
}

func (f *engineFixture) recordedEvents() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event{}, f.events...)
}

func requireDomainCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
	return domainErr
}

func TestSubmitIdentifierCreatesNewTicket(t *testing.T) {
	f := newEngineFixture(t, false)

	snapshot, err := f.engine.SubmitIdentifier(context.Background(), "  1hgbh41jxmn109186 ", "req-1")
	require.NoError(t, err)

	assert.Equal(t, testVIN, snapshot.VIN)
	assert.Equal(t, "req-1", snapshot.RequesterID)
	assert.Equal(t, domain.TicketStatusNew, snapshot.Status)
	assert.Nil(t, snapshot.AssigneeID)
	assert.Nil(t, snapshot.ArtifactRef)
	assert.False(t, snapshot.CreatedAt.IsZero())
	assert.Equal(t, snapshot.CreatedAt, snapshot.UpdatedAt)

	recorded := f.recordedEvents()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.EventTicketCreated, recorded[0].Type)
	assert.Equal(t, snapshot.ID, recorded[0].Ticket.ID)
	assert.Equal(t, domain.SubjectTypeRequester, recorded[0].Actor.Type)
	require.NotNil(t, recorded[0].Actor.RequesterID)
	assert.Equal(t, "req-1", *recorded[0].Actor.RequesterID)
	assert.NotEmpty(t, recorded[0].ID)
	assert.False(t, recorded[0].Timestamp.IsZero())
}

func TestSubmitIdentifierRejectsInvalidVIN(t *testing.T) {
	f := newEngineFixture(t, false)

	_, err := f.engine.SubmitIdentifier(context.Background(), "1HGBH41JXMN10918I", "req-1")
	domainErr := requireDomainCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, "FORBIDDEN_CHARACTER", domainErr.Details["kind"])
	assert.Empty(t, f.recordedEvents())
}

func TestSubmitIdentifierDuplicateReturnsExistingTicket(t *testing.T) {
	f := newEngineFixture(t, false)

	first, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	// Same VIN after normalization maps onto the open ticket.
	second, err := f.engine.SubmitIdentifier(context.Background(), " 1hgbh41jxmn109186", "req-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	require.Len(t, f.recordedEvents(), 1, "duplicate submission must not emit a second event")
}

func TestSubmitIdentifierDuplicateScopedPerRequester(t *testing.T) {
	f := newEngineFixture(t, false)

	first, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	second, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-2")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestSubmitIdentifierAllowedAgainAfterCompletion(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	first, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	_, err = f.engine.Complete(context.Background(), first.ID, "report-1.pdf", "op-1")
	require.NoError(t, err)

	second, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.TicketStatusNew, second.Status)
}

func TestSubmitIdentifierConsumesQuota(t *testing.T) {
	f := newEngineFixture(t, true)
	ctx := context.Background()

	_, err := f.subscriptions.Grant(ctx, "req-1", 1)
	require.NoError(t, err)

	_, err = f.engine.SubmitIdentifier(ctx, testVIN, "req-1")
	require.NoError(t, err)

	sub, err := f.subscriptions.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sub.ReportsRemaining)

	// Balance is spent; a different VIN is refused.
	_, err = f.engine.SubmitIdentifier(ctx, "5YJSA1DN5CFP01657", "req-1")
	requireDomainCode(t, err, "QUOTA_EXHAUSTED")

	// Resubmitting the open VIN is a duplicate and spends nothing.
	_, err = f.engine.SubmitIdentifier(ctx, testVIN, "req-1")
	require.NoError(t, err)
	sub, err = f.subscriptions.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 0, sub.ReportsRemaining)
}

func TestSubmitIdentifierWithoutSubscriptionIsRefused(t *testing.T) {
	f := newEngineFixture(t, true)

	_, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	requireDomainCode(t, err, "QUOTA_EXHAUSTED")
	assert.Empty(t, f.recordedEvents())
}

func TestClaimAssignsTicket(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	claimed, err := f.engine.Claim(context.Background(), created.ID, "op-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusTaken, claimed.Status)
	require.NotNil(t, claimed.AssigneeID)
	assert.Equal(t, "op-1", *claimed.AssigneeID)
	assert.True(t, !claimed.UpdatedAt.Before(claimed.CreatedAt))

	recorded := f.recordedEvents()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.EventTicketAssigned, recorded[1].Type)
	require.NotNil(t, recorded[1].Actor.OperatorID)
	assert.Equal(t, "op-1", *recorded[1].Actor.OperatorID)
}

func TestClaimUnknownTicket(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	_, err := f.engine.Claim(context.Background(), 404, "op-1")
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestClaimAlreadyTakenTicket(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)
	f.addOperator(t, "op-2", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	_, err = f.engine.Claim(context.Background(), created.ID, "op-1")
	require.NoError(t, err)

	_, err = f.engine.Claim(context.Background(), created.ID, "op-2")
	requireDomainCode(t, err, "ALREADY_TAKEN")

	// The losing claim must not touch the assignment.
	current, err := f.engine.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, current.AssigneeID)
	assert.Equal(t, "op-1", *current.AssigneeID)
}

func TestClaimConcurrentExactlyOneWins(t *testing.T) {
	f := newEngineFixture(t, false)

	const operators = 8
	for i := 0; i < operators; i++ {
		f.addOperator(t, operatorID(i), true)
	}

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, operators)
	for i := 0; i < operators; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.engine.Claim(context.Background(), created.ID, operatorID(i))
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		require.Equal(t, "ALREADY_TAKEN", domainErr.Code)
		losses++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, operators-1, losses)

	current, err := f.engine.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusTaken, current.Status)
	require.NotNil(t, current.AssigneeID)
}

func TestClaimRequiresKnownActiveOperator(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-retired", false)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		operatorID string
	}{
		{name: "empty operator", operatorID: ""},
		{name: "unknown operator", operatorID: "op-ghost"},
		{name: "deactivated operator", operatorID: "op-retired"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Claim(context.Background(), created.ID, tc.operatorID)
			requireDomainCode(t, err, "FORBIDDEN")
		})
	}

	// Authorization is checked before the ticket lookup.
	_, err = f.engine.Claim(context.Background(), 404, "op-ghost")
	requireDomainCode(t, err, "FORBIDDEN")

	current, err := f.engine.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, current.Status)
}

func TestCompleteFromTaken(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	_, err = f.engine.Claim(context.Background(), created.ID, "op-1")
	require.NoError(t, err)

	done, err := f.engine.Complete(context.Background(), created.ID, "s3://reports/1.pdf", "op-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusDone, done.Status)
	require.NotNil(t, done.ArtifactRef)
	assert.Equal(t, "s3://reports/1.pdf", *done.ArtifactRef)
	require.NotNil(t, done.AssigneeID)
	assert.Equal(t, "op-1", *done.AssigneeID)
}

func TestCompleteStraightFromNew(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	done, err := f.engine.Complete(context.Background(), created.ID, "report.pdf", "op-1")
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusDone, done.Status)
	require.NotNil(t, done.AssigneeID, "completing an unclaimed ticket assigns the completing operator")
	assert.Equal(t, "op-1", *done.AssigneeID)

	recorded := f.recordedEvents()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.EventTicketCreated, recorded[0].Type)
	assert.Equal(t, events.EventTicketCompleted, recorded[1].Type)
}

func TestCompleteKeepsOriginalAssignee(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)
	f.addOperator(t, "op-2", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	_, err = f.engine.Claim(context.Background(), created.ID, "op-1")
	require.NoError(t, err)

	done, err := f.engine.Complete(context.Background(), created.ID, "report.pdf", "op-2")
	require.NoError(t, err)

	require.NotNil(t, done.AssigneeID)
	assert.Equal(t, "op-1", *done.AssigneeID)
}

func TestCompleteTerminalTicket(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	done, err := f.engine.Complete(context.Background(), created.ID, "first.pdf", "op-1")
	require.NoError(t, err)

	_, err = f.engine.Complete(context.Background(), created.ID, "second.pdf", "op-1")
	requireDomainCode(t, err, "ALREADY_COMPLETED")

	// The terminal record is untouched by the refused attempt.
	current, err := f.engine.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, done.UpdatedAt, current.UpdatedAt)
	require.NotNil(t, current.ArtifactRef)
	assert.Equal(t, "first.pdf", *current.ArtifactRef)
}

func TestCompleteRequiresArtifactRef(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	created, err := f.engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)

	_, err = f.engine.Complete(context.Background(), created.ID, "", "op-1")
	requireDomainCode(t, err, "VALIDATION_FAILED")

	current, err := f.engine.GetTicket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, current.Status)
}

func TestCompleteUnknownTicket(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)

	_, err := f.engine.Complete(context.Background(), 404, "report.pdf", "op-1")
	requireDomainCode(t, err, "NOT_FOUND")
}

func TestLifecycleEventSequence(t *testing.T) {
	f := newEngineFixture(t, false)
	f.addOperator(t, "op-1", true)
	ctx := context.Background()

	created, err := f.engine.SubmitIdentifier(ctx, testVIN, "req-1")
	require.NoError(t, err)
	_, err = f.engine.Claim(ctx, created.ID, "op-1")
	require.NoError(t, err)
	done, err := f.engine.Complete(ctx, created.ID, "report.pdf", "op-1")
	require.NoError(t, err)

	recorded := f.recordedEvents()
	require.Len(t, recorded, 3)
	assert.Equal(t, events.EventTicketCreated, recorded[0].Type)
	assert.Equal(t, events.EventTicketAssigned, recorded[1].Type)
	assert.Equal(t, events.EventTicketCompleted, recorded[2].Type)

	for _, event := range recorded {
		assert.Equal(t, created.ID, event.Ticket.ID)
		assert.NotEmpty(t, event.ID)
	}
	assert.Equal(t, domain.TicketStatusNew, recorded[0].Ticket.Status)
	assert.Equal(t, domain.TicketStatusTaken, recorded[1].Ticket.Status)
	assert.Equal(t, domain.TicketStatusDone, recorded[2].Ticket.Status)
	assert.Equal(t, "report.pdf", recorded[2].ArtifactRef())
	require.NotNil(t, done.ArtifactRef)
}

func TestEngineWithoutDispatcher(t *testing.T) {
	tickets := repository.NewMemoryTicketStore()
	operators := repository.NewMemoryOperatorStore()
	engine := NewLifecycleService(LifecycleDependencies{
		TicketStore:   tickets,
		OperatorStore: operators,
	})
	require.NoError(t, operators.Create(context.Background(), &domain.Operator{ID: "op-1", Email: "op-1@example.com", Active: true}))

	created, err := engine.SubmitIdentifier(context.Background(), testVIN, "req-1")
	require.NoError(t, err)
	_, err = engine.Complete(context.Background(), created.ID, "report.pdf", "op-1")
	require.NoError(t, err)
}

func TestGetTicketUnknown(t *testing.T) {
	f := newEngineFixture(t, false)

	_, err := f.engine.GetTicket(context.Background(), 404)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func operatorID(i int) string {
	return "op-" + string(rune('a'+i))
}
