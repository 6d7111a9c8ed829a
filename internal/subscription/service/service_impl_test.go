package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/testutil"
)

func setupSubscriptions(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db := testutil.SetupDB(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: fake,
	})
	return svc, fake
}

func TestActivateNewSubscription(t *testing.T) {
	svc, fake := setupSubscriptions(t)

	sub, err := svc.ActivateOrRenew(context.Background(), "buyer-1", "pro-plan", domain.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.True(t, sub.CurrentPeriodStart.Equal(fake.Now()))
	assert.True(t, sub.CurrentPeriodEnd.Equal(fake.Now().AddDate(0, 1, 0)))
}

func TestRenewExtendsActivePeriod(t *testing.T) {
	svc, fake := setupSubscriptions(t)
	ctx := context.Background()

	first, err := svc.ActivateOrRenew(ctx, "buyer-1", "pro-plan", domain.CycleMonthly)
	require.NoError(t, err)

	// Renewing mid-period stacks a full cycle on the current end.
	fake.Advance(10 * 24 * time.Hour)
	renewed, err := svc.ActivateOrRenew(ctx, "buyer-1", "pro-plan", domain.CycleMonthly)
	require.NoError(t, err)

	assert.True(t, renewed.CurrentPeriodStart.Equal(first.CurrentPeriodStart),
		"period start must not move on renewal")
	assert.True(t, renewed.CurrentPeriodEnd.Equal(first.CurrentPeriodEnd.AddDate(0, 1, 0)))
}

func TestRenewLapsedSubscriptionRestarts(t *testing.T) {
	svc, fake := setupSubscriptions(t)
	ctx := context.Background()

	_, err := svc.ActivateOrRenew(ctx, "buyer-1", "pro-plan", domain.CycleMonthly)
	require.NoError(t, err)

	// Let the period lapse entirely.
	fake.Advance(60 * 24 * time.Hour)
	renewed, err := svc.ActivateOrRenew(ctx, "buyer-1", "pro-plan", domain.CycleMonthly)
	require.NoError(t, err)

	assert.True(t, renewed.CurrentPeriodStart.Equal(fake.Now()),
		"lapsed renewal must restart from now")
	assert.True(t, renewed.CurrentPeriodEnd.Equal(fake.Now().AddDate(0, 1, 0)))
	assert.Equal(t, domain.StatusActive, renewed.Status)
}

func TestYearlyCycle(t *testing.T) {
	svc, fake := setupSubscriptions(t)

	sub, err := svc.ActivateOrRenew(context.Background(), "buyer-1", "studio-plan", domain.CycleYearly)
	require.NoError(t, err)

	assert.True(t, sub.CurrentPeriodEnd.Equal(fake.Now().AddDate(1, 0, 0)))
}

func TestActivateRejectsBlankPlan(t *testing.T) {
	svc, _ := setupSubscriptions(t)

	_, err := svc.ActivateOrRenew(context.Background(), "buyer-1", "  ", domain.CycleMonthly)
	require.ErrorIs(t, err, domain.ErrInvalidPlan)
}

func TestUnknownCycleDefaultsToMonthly(t *testing.T) {
	svc, fake := setupSubscriptions(t)

	sub, err := svc.ActivateOrRenew(context.Background(), "buyer-1", "pro-plan", "weekly")
	require.NoError(t, err)

	assert.Equal(t, domain.CycleMonthly, sub.BillingCycle)
	assert.True(t, sub.CurrentPeriodEnd.Equal(fake.Now().AddDate(0, 1, 0)))
}
