package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/alert/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/testutil"
)

func setupAlerts(t *testing.T) (domain.Service, *clock.FakeClock) {
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

func TestRaiseAndListOpen(t *testing.T) {
	svc, _ := setupAlerts(t)
	ctx := context.Background()

	if err := svc.Raise(ctx, 101, domain.KindAmountMismatch, "charged 900, ledger says 1900"); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if err := svc.Raise(ctx, 102, domain.KindFulfillmentExhaust, "retry budget spent"); err != nil {
		t.Fatalf("Raise: %v", err)
	}

	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open alerts, got %d", len(open))
	}
	for _, a := range open {
		if a.Status != domain.AlertOpen {
			t.Fatalf("expected OPEN status, got %s", a.Status)
		}
	}
}

func TestResolveClosesAlertOnce(t *testing.T) {
	svc, _ := setupAlerts(t)
	ctx := context.Background()

	if err := svc.Raise(ctx, 201, domain.KindUnmatchedEvent, "no order for intent pi_ghost"); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	open, err := svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open alert, got %d", len(open))
	}

	alertID := open[0].ID
	if err := svc.Resolve(ctx, alertID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	open, err = svc.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen after resolve: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open alerts, got %d", len(open))
	}

	if err := svc.Resolve(ctx, alertID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound re-resolving, got %v", err)
	}
	if err := svc.Resolve(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}
