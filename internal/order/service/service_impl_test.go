package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	alertservice "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/testutil"
)

type orderFixture struct {
	db    *gorm.DB
	svc   domain.Service
	repo  domain.Repository
	clock *clock.FakeClock
}

func setupOrderService(t *testing.T) *orderFixture {
	t.Helper()

	db := testutil.SetupDB(t)
	node := testutil.NewNode(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	alerts := alertservice.New(alertservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})

	repo := repository.Provide()
	svc := service.New(service.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Checkout: testutil.StaticCheckout(),
		Alerts:   alerts,
		Metrics:  testutil.NewMetrics(),
		Repo:     repo,
	})

	return &orderFixture{db: db, svc: svc, repo: repo, clock: fake}
}

func (f *orderFixture) seedOrder(t *testing.T, status domain.Status, intentRef string, amount int64) *domain.Order {
	t.Helper()

	order := &domain.Order{
		ID:               time.Now().UnixNano(),
		BuyerRef:         "buyer-1",
		Status:           status,
		TotalAmount:      amount,
		Currency:         "USD",
		GatewayIntentRef: intentRef,
		CreatedAt:        f.clock.Now(),
		UpdatedAt:        f.clock.Now(),
	}
	if err := f.repo.Create(context.Background(), f.db, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestBeginPayment(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusDraft, "", 2500)

	if err := f.svc.BeginPayment(ctx, order.ID, "pi_100"); err != nil {
		t.Fatalf("begin payment: %v", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != domain.StatusAwaitingPayment {
		t.Fatalf("status = %s, want AWAITING_PAYMENT", got.Status)
	}
	if got.GatewayIntentRef != "pi_100" {
		t.Fatalf("intent ref = %q", got.GatewayIntentRef)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(f.clock.Now().Add(30*time.Minute)) {
		t.Fatalf("expires_at = %v", got.ExpiresAt)
	}

	// A second attempt finds the order no longer in DRAFT.
	if err := f.svc.BeginPayment(ctx, order.ID, "pi_other"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestApplyPaymentNoticeSuccess(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_200", 4999)

	paid, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_1",
		IntentRef: "pi_200",
		Status:    domain.NoticeSucceeded,
		Amount:    4999,
		Currency:  "USD",
		Payload:   map[string]any{"event_id": "evt_1", "amount": 4999},
	})
	if err != nil {
		t.Fatalf("apply notice: %v", err)
	}
	if paid.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want PAID", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(f.clock.Now()) {
		t.Fatalf("paid_at = %v", paid.PaidAt)
	}
	if paid.GatewayEventID != "evt_1" {
		t.Fatalf("gateway_event_id = %q", paid.GatewayEventID)
	}

	events, err := f.svc.Events(ctx, order.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Outcome != domain.OutcomeApplied {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Payload["event_id"] != "evt_1" {
		t.Fatalf("payload = %v", events[0].Payload)
	}
}

func TestApplyPaymentNoticeDuplicateEvent(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	f.seedOrder(t, domain.StatusAwaitingPayment, "pi_201", 1000)

	notice := domain.PaymentNotice{
		EventID:   "evt_dup",
		IntentRef: "pi_201",
		Status:    domain.NoticeSucceeded,
		Amount:    1000,
		Currency:  "USD",
	}
	if _, err := f.svc.ApplyPaymentNotice(ctx, notice); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if _, err := f.svc.ApplyPaymentNotice(ctx, notice); !errors.Is(err, domain.ErrEventAlreadyProcessed) {
		t.Fatalf("err = %v, want ErrEventAlreadyProcessed", err)
	}
}

func TestApplyPaymentNoticeReplayOnPaidOrder(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_202", 1500)

	first := domain.PaymentNotice{
		EventID: "evt_a", IntentRef: "pi_202",
		Status: domain.NoticeSucceeded, Amount: 1500, Currency: "USD",
	}
	if _, err := f.svc.ApplyPaymentNotice(ctx, first); err != nil {
		t.Fatalf("first notice: %v", err)
	}

	// Same intent, fresh event id: the gateway retried with a new event.
	second := first
	second.EventID = "evt_b"
	replay, err := f.svc.ApplyPaymentNotice(ctx, second)
	if err != nil {
		t.Fatalf("replay notice: %v", err)
	}
	if replay.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want PAID", replay.Status)
	}
	if replay.GatewayEventID != "evt_a" {
		t.Fatalf("gateway_event_id = %q, replay must not overwrite", replay.GatewayEventID)
	}

	events, err := f.svc.Events(ctx, order.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected both events on ledger, got %d", len(events))
	}
}

func TestApplyPaymentNoticeAmountMismatch(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_203", 5000)

	_, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_short",
		IntentRef: "pi_203",
		Status:    domain.NoticeSucceeded,
		Amount:    4999,
		Currency:  "USD",
	})
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != domain.StatusPaymentFailed {
		t.Fatalf("status = %s, want PAYMENT_FAILED", got.Status)
	}
	if got.FailureReason != "amount_mismatch" {
		t.Fatalf("failure_reason = %q", got.FailureReason)
	}

	var alertCount int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM operator_alerts WHERE order_id = ? AND kind = 'amount_mismatch'`, order.ID).Scan(&alertCount).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("alert count = %d", alertCount)
	}
}

func TestApplyPaymentNoticeCurrencyMismatch(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	f.seedOrder(t, domain.StatusAwaitingPayment, "pi_204", 5000)

	_, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_eur",
		IntentRef: "pi_204",
		Status:    domain.NoticeSucceeded,
		Amount:    5000,
		Currency:  "EUR",
	})
	if !errors.Is(err, domain.ErrAmountMismatch) {
		t.Fatalf("err = %v, want ErrAmountMismatch", err)
	}
}

func TestApplyPaymentNoticeFailed(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_205", 2000)

	got, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_declined",
		IntentRef: "pi_205",
		Status:    domain.NoticeFailed,
		Amount:    2000,
		Currency:  "USD",
	})
	if err != nil {
		t.Fatalf("apply notice: %v", err)
	}
	if got.Status != domain.StatusPaymentFailed {
		t.Fatalf("status = %s, want PAYMENT_FAILED", got.Status)
	}
	if got.FailureReason != "gateway_declined" {
		t.Fatalf("failure_reason = %q", got.FailureReason)
	}

	events, err := f.svc.Events(ctx, order.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].Outcome != domain.OutcomeFailed {
		t.Fatalf("events = %+v", events)
	}
}

func TestApplyPaymentNoticeUnmatchedIntent(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()

	_, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_orphan",
		IntentRef: "pi_nobody",
		Status:    domain.NoticeSucceeded,
		Amount:    100,
		Currency:  "USD",
	})
	if !errors.Is(err, domain.ErrUnmatchedIntent) {
		t.Fatalf("err = %v, want ErrUnmatchedIntent", err)
	}

	// The notice is still on the ledger for forensics.
	var outcome string
	if err := f.db.Raw(`SELECT outcome FROM gateway_events WHERE event_id = 'evt_orphan'`).Scan(&outcome).Error; err != nil {
		t.Fatalf("read event: %v", err)
	}
	if outcome != domain.OutcomeUnmatched {
		t.Fatalf("outcome = %q", outcome)
	}

	var alertCount int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM operator_alerts WHERE kind = 'unmatched_event'`).Scan(&alertCount).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("alert count = %d", alertCount)
	}
}

func TestApplyPaymentNoticeOnExpiredOrder(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusExpired, "pi_206", 3000)

	_, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_late",
		IntentRef: "pi_206",
		Status:    domain.NoticeSucceeded,
		Amount:    3000,
		Currency:  "USD",
	})
	if !errors.Is(err, domain.ErrOrderNotPayable) {
		t.Fatalf("err = %v, want ErrOrderNotPayable", err)
	}

	got, err := f.repo.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != domain.StatusExpired {
		t.Fatalf("status = %s, expired order must stay EXPIRED", got.Status)
	}
}

func TestExpireStale(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()

	stale := f.seedOrder(t, domain.StatusDraft, "", 1000)
	fresh := f.seedOrder(t, domain.StatusDraft, "", 1000)

	if err := f.svc.BeginPayment(ctx, stale.ID, "pi_stale"); err != nil {
		t.Fatalf("begin payment: %v", err)
	}
	f.clock.Advance(20 * time.Minute)
	if err := f.svc.BeginPayment(ctx, fresh.ID, "pi_fresh"); err != nil {
		t.Fatalf("begin payment: %v", err)
	}

	// Past the stale order's deadline but well inside the fresh one's.
	f.clock.Advance(15 * time.Minute)

	expired, err := f.svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	gotStale, err := f.repo.FindByID(ctx, f.db, stale.ID)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if gotStale.Status != domain.StatusExpired {
		t.Fatalf("stale status = %s", gotStale.Status)
	}
	if gotStale.FailureReason != "payment_window_elapsed" {
		t.Fatalf("failure_reason = %q", gotStale.FailureReason)
	}

	gotFresh, err := f.repo.FindByID(ctx, f.db, fresh.ID)
	if err != nil {
		t.Fatalf("find fresh: %v", err)
	}
	if gotFresh.Status != domain.StatusAwaitingPayment {
		t.Fatalf("fresh status = %s", gotFresh.Status)
	}
}

func TestExpireStaleBackfillsMissingDeadline(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()

	// Awaiting orders without a deadline age out against the payment
	// window measured from creation.
	orphan := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_orphan", 1500)
	f.clock.Advance(31 * time.Minute)
	fresh := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_fresh_orphan", 1500)

	expired, err := f.svc.ExpireStale(ctx)
	if err != nil {
		t.Fatalf("expire stale: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	gotOrphan, err := f.repo.FindByID(ctx, f.db, orphan.ID)
	if err != nil {
		t.Fatalf("find orphan: %v", err)
	}
	if gotOrphan.Status != domain.StatusExpired {
		t.Fatalf("orphan status = %s, want EXPIRED", gotOrphan.Status)
	}
	if gotOrphan.FailureReason != "payment_window_elapsed" {
		t.Fatalf("failure_reason = %q", gotOrphan.FailureReason)
	}

	gotFresh, err := f.repo.FindByID(ctx, f.db, fresh.ID)
	if err != nil {
		t.Fatalf("find fresh: %v", err)
	}
	if gotFresh.Status != domain.StatusAwaitingPayment {
		t.Fatalf("fresh status = %s", gotFresh.Status)
	}
}

func TestListFailedSurfacesDeclinedOrders(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusAwaitingPayment, "pi_decline", 3000)

	if _, err := f.svc.ApplyPaymentNotice(ctx, domain.PaymentNotice{
		EventID:   "evt_decline_1",
		IntentRef: "pi_decline",
		Status:    "failed",
		Amount:    3000,
		Currency:  "USD",
	}); err != nil {
		t.Fatalf("apply failure notice: %v", err)
	}

	failed, err := f.svc.ListFailed(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(failed))
	}
	if failed[0].ID != order.ID {
		t.Fatalf("failed order id = %d, want %d", failed[0].ID, order.ID)
	}
	if failed[0].Status != domain.StatusPaymentFailed {
		t.Fatalf("status = %s, want PAYMENT_FAILED", failed[0].Status)
	}
}

func TestGetScopedToBuyer(t *testing.T) {
	f := setupOrderService(t)
	ctx := context.Background()
	order := f.seedOrder(t, domain.StatusDraft, "", 700)

	id := domainID(order.ID)
	if _, err := f.svc.Get(ctx, "buyer-1", id); err != nil {
		t.Fatalf("get own order: %v", err)
	}
	if _, err := f.svc.Get(ctx, "someone-else", id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Get(ctx, "buyer-1", "not-a-number"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("err = %v, want ErrInvalidID", err)
	}
}

func domainID(id int64) string {
	return strconv.FormatInt(id, 10)
}
