package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idzvilla/vin-car/internal/repository"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

func newQuotaFixture() (*QuotaService, *repository.MemorySubscriptionStore) {
	store := repository.NewMemorySubscriptionStore()
	return NewQuotaService(store, nil), store
}

func TestQuotaBalanceWithoutSubscription(t *testing.T) {
	quota, _ := newQuotaFixture()

	sub, err := quota.Balance(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "req-1", sub.RequesterID)
	assert.Equal(t, 0, sub.ReportsRemaining)
	assert.Equal(t, 0, sub.TotalReports)
}

func TestQuotaGrantAccumulates(t *testing.T) {
	quota, _ := newQuotaFixture()
	ctx := context.Background()

	sub, err := quota.Grant(ctx, "req-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.ReportsRemaining)

	sub, err = quota.Grant(ctx, "req-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.ReportsRemaining)
	assert.Equal(t, 5, sub.TotalReports)
}

func TestQuotaGrantRejectsNonPositive(t *testing.T) {
	quota, _ := newQuotaFixture()

	for _, reports := range []int{0, -1} {
		_, err := quota.Grant(context.Background(), "req-1", reports)
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	}
}

func TestQuotaConsumeUntilExhausted(t *testing.T) {
	quota, _ := newQuotaFixture()
	ctx := context.Background()

	_, err := quota.Grant(ctx, "req-1", 2)
	require.NoError(t, err)

	require.NoError(t, quota.Consume(ctx, "req-1"))
	require.NoError(t, quota.Consume(ctx, "req-1"))

	err = quota.Consume(ctx, "req-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "QUOTA_EXHAUSTED", domainErr.Code)
}

func TestQuotaRefundRestoresRemainingOnly(t *testing.T) {
	quota, store := newQuotaFixture()
	ctx := context.Background()

	_, err := quota.Grant(ctx, "req-1", 1)
	require.NoError(t, err)
	require.NoError(t, quota.Consume(ctx, "req-1"))

	quota.Refund(ctx, "req-1")

	sub, err := store.Get(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, 1, sub.ReportsRemaining)
	assert.Equal(t, 1, sub.TotalReports, "a refund is not a grant")
}

func TestQuotaRefundWithoutSubscriptionIsSilent(t *testing.T) {
	quota, _ := newQuotaFixture()

	// Nothing to assert beyond not panicking; refund failures are logged
	// and swallowed.
	quota.Refund(context.Background(), "req-ghost")
}
