package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	alertservice "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/service"
	apikeydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/domain"
	apikeyservice "github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/service"
	catalogdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	catalogrepo "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
	entrepo "github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/service"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
	orderrepo "github.com/appnity-softwares/digitalEcom-sub002/internal/order/repository"
	subscriptiondomain "github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/domain"
	subscriptionservice "github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/testutil"
)

// failingSubscriptions breaks the subscription side effect on demand.
type failingSubscriptions struct {
	real  subscriptiondomain.Service
	fail  bool
	calls int
}

func (s *failingSubscriptions) ActivateOrRenew(ctx context.Context, buyerRef, planSlug string, cycle subscriptiondomain.BillingCycle) (*subscriptiondomain.Subscription, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("subscription store down")
	}
	return s.real.ActivateOrRenew(ctx, buyerRef, planSlug, cycle)
}

func (s *failingSubscriptions) FindByBuyer(ctx context.Context, buyerRef string) ([]subscriptiondomain.Subscription, error) {
	return s.real.FindByBuyer(ctx, buyerRef)
}

type grantorFixture struct {
	db      *gorm.DB
	svc     domain.Service
	orders  orderdomain.Repository
	catalog catalogdomain.Repository
	subs    *failingSubscriptions
	apikeys apikeydomain.Service
	clock   *clock.FakeClock
	nextID  int64
}

func setupGrantor(t *testing.T) *grantorFixture {
	t.Helper()

	db := testutil.SetupDB(t)
	node := testutil.NewNode(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))

	subs := &failingSubscriptions{real: subscriptionservice.New(subscriptionservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})}
	apikeys := apikeyservice.New(apikeyservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})
	alerts := alertservice.New(alertservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Clock: fake,
	})

	orders := orderrepo.Provide()
	catalog := catalogrepo.Provide()

	svc := service.New(service.Params{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         fake,
		Checkout:      testutil.StaticCheckout(),
		Repo:          entrepo.Provide(),
		Orders:        orders,
		Catalog:       catalog,
		Subscriptions: subs,
		APIKeys:       apikeys,
		Alerts:        alerts,
		Metrics:       testutil.NewMetrics(),
	})

	return &grantorFixture{
		db: db, svc: svc, orders: orders, catalog: catalog,
		subs: subs, apikeys: apikeys, clock: fake, nextID: 7000,
	}
}

func (f *grantorFixture) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *grantorFixture) seedCatalogItem(t *testing.T, slug string, kind catalogdomain.ItemKind, billingCycle, toolRef, licenseType string) *catalogdomain.Item {
	t.Helper()

	item := &catalogdomain.Item{
		ID:           f.id(),
		Slug:         slug,
		Name:         slug,
		Kind:         kind,
		PriceAmount:  1000,
		Currency:     "USD",
		LicenseType:  licenseType,
		BillingCycle: billingCycle,
		ToolRef:      toolRef,
		Active:       true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	if err := f.catalog.Create(context.Background(), f.db, item); err != nil {
		t.Fatalf("seed catalog item: %v", err)
	}
	return item
}

func (f *grantorFixture) seedPaidOrder(t *testing.T, buyerRef string, items ...*catalogdomain.Item) *orderdomain.Order {
	t.Helper()
	ctx := context.Background()

	now := f.clock.Now()
	var total int64
	for _, it := range items {
		total += it.PriceAmount
	}
	order := &orderdomain.Order{
		ID:          f.id(),
		BuyerRef:    buyerRef,
		Status:      orderdomain.StatusPaid,
		TotalAmount: total,
		Currency:    "USD",
		PaidAt:      &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.orders.Create(ctx, f.db, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	rows := make([]orderdomain.OrderItem, 0, len(items))
	for _, it := range items {
		rows = append(rows, orderdomain.OrderItem{
			ID:          f.id(),
			OrderID:     order.ID,
			ItemID:      it.ID,
			ItemSlug:    it.Slug,
			ItemTitle:   it.Name,
			ItemKind:    string(it.Kind),
			LicenseType: it.LicenseType,
			Quantity:    1,
			UnitAmount:  it.PriceAmount,
			CreatedAt:   now,
		})
	}
	if err := f.orders.CreateItems(ctx, f.db, rows); err != nil {
		t.Fatalf("seed order items: %v", err)
	}
	return order
}

func TestFulfillDownload(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	item := f.seedCatalogItem(t, "synth-pack", catalogdomain.KindDownload, "", "", "single_seat")
	order := f.seedPaidOrder(t, "buyer-1", item)

	result, err := f.svc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if result.Granted != 1 || result.Replayed != 0 || !result.Fulfilled {
		t.Fatalf("result = %+v", result)
	}

	got, err := f.orders.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != orderdomain.StatusFulfilled {
		t.Fatalf("status = %s", got.Status)
	}
	if got.FulfilledAt == nil {
		t.Fatal("fulfilled_at not set")
	}

	grants, err := f.svc.ListByBuyer(ctx, "buyer-1", domain.KindDownload)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 1 || grants[0].Target != "synth-pack" {
		t.Fatalf("grants = %+v", grants)
	}
}

func TestFulfillPlanActivatesSubscription(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	item := f.seedCatalogItem(t, "pro-plan", catalogdomain.KindPlan, "yearly", "", "")
	order := f.seedPaidOrder(t, "buyer-2", item)

	if _, err := f.svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	subs, err := f.subs.FindByBuyer(ctx, "buyer-2")
	if err != nil {
		t.Fatalf("find subs: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d", len(subs))
	}
	sub := subs[0]
	if sub.PlanSlug != "pro-plan" || sub.Status != subscriptiondomain.StatusActive {
		t.Fatalf("sub = %+v", sub)
	}
	if !sub.CurrentPeriodEnd.Equal(f.clock.Now().AddDate(1, 0, 0)) {
		t.Fatalf("period end = %v, want one year out", sub.CurrentPeriodEnd)
	}
}

func TestFulfillAPIToolAppliesTier(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	item := f.seedCatalogItem(t, "scraper-basic", catalogdomain.KindAPITool, "", "scraper", "basic")
	order := f.seedPaidOrder(t, "buyer-3", item)

	if _, err := f.svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("fulfill: %v", err)
	}

	key, _, err := f.apikeys.EnsureKey(ctx, "buyer-3")
	if err != nil {
		t.Fatalf("ensure key: %v", err)
	}
	if key.Tier != apikeydomain.TierBasic {
		t.Fatalf("tier = %s", key.Tier)
	}
	found := false
	for _, scope := range key.Scopes {
		if scope == "scraper" {
			found = true
		}
	}
	if !found {
		t.Fatalf("scopes = %v, want scraper", key.Scopes)
	}

	grants, err := f.svc.ListByBuyer(ctx, "buyer-3", domain.KindAPITier)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 1 || grants[0].Target != "scraper:basic" {
		t.Fatalf("grants = %+v", grants)
	}
}

func TestFulfillReplayIsIdempotent(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	item := f.seedCatalogItem(t, "loops", catalogdomain.KindDownload, "", "", "")
	order := f.seedPaidOrder(t, "buyer-4", item)

	if _, err := f.svc.Fulfill(ctx, order.ID); err != nil {
		t.Fatalf("first fulfill: %v", err)
	}

	// A fulfilled order short-circuits without touching the grants.
	result, err := f.svc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("second fulfill: %v", err)
	}
	if !result.Fulfilled || result.Granted != 0 {
		t.Fatalf("result = %+v", result)
	}

	grants, err := f.svc.ListByBuyer(ctx, "buyer-4", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("grants = %d, want 1", len(grants))
	}
}

func TestFulfillRejectsUnpaidOrder(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	item := f.seedCatalogItem(t, "kit", catalogdomain.KindDownload, "", "", "")
	order := f.seedPaidOrder(t, "buyer-5", item)

	if err := f.db.Exec(`UPDATE orders SET status = 'AWAITING_PAYMENT' WHERE id = ?`, order.ID).Error; err != nil {
		t.Fatalf("reset status: %v", err)
	}
	if _, err := f.svc.Fulfill(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotPaid) {
		t.Fatalf("err = %v, want ErrOrderNotPaid", err)
	}

	if _, err := f.svc.Fulfill(ctx, 424242); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestFulfillPartialFailureLeavesOrderPaid(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	download := f.seedCatalogItem(t, "stems", catalogdomain.KindDownload, "", "", "")
	plan := f.seedCatalogItem(t, "studio-plan", catalogdomain.KindPlan, "monthly", "", "")
	order := f.seedPaidOrder(t, "buyer-6", download, plan)

	f.subs.fail = true
	if _, err := f.svc.Fulfill(ctx, order.ID); err == nil {
		t.Fatal("expected fulfill to fail")
	}

	got, err := f.orders.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != orderdomain.StatusPaid {
		t.Fatalf("status = %s, want PAID for retry", got.Status)
	}
	if got.FulfillmentAttempts != 1 {
		t.Fatalf("attempts = %d", got.FulfillmentAttempts)
	}

	// The retry grants only the missing line.
	f.subs.fail = false
	result, err := f.svc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("retry fulfill: %v", err)
	}
	if result.Granted != 1 || result.Replayed != 1 {
		t.Fatalf("result = %+v", result)
	}

	grants, err := f.svc.ListByBuyer(ctx, "buyer-6", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("grants = %d, want 2", len(grants))
	}
}

func TestFulfillRetryBudgetExhaustion(t *testing.T) {
	f := setupGrantor(t)
	ctx := context.Background()
	plan := f.seedCatalogItem(t, "team-plan", catalogdomain.KindPlan, "monthly", "", "")
	order := f.seedPaidOrder(t, "buyer-7", plan)

	f.subs.fail = true
	var lastErr error
	for i := 0; i < 3; i++ {
		_, lastErr = f.svc.Fulfill(ctx, order.ID)
		if lastErr == nil {
			t.Fatalf("attempt %d unexpectedly succeeded", i+1)
		}
	}
	if !errors.Is(lastErr, domain.ErrRetryExhausted) {
		t.Fatalf("err = %v, want ErrRetryExhausted", lastErr)
	}

	got, err := f.orders.FindByID(ctx, f.db, order.ID)
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if got.Status != orderdomain.StatusFulfillmentFailed {
		t.Fatalf("status = %s, want FULFILLMENT_FAILED", got.Status)
	}
	if got.FulfillmentAttempts != 3 {
		t.Fatalf("attempts = %d", got.FulfillmentAttempts)
	}

	var alertCount int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM operator_alerts WHERE order_id = ? AND kind = 'fulfillment_exhausted'`, order.ID).Scan(&alertCount).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if alertCount != 1 {
		t.Fatalf("alerts = %d", alertCount)
	}

	// A parked order no longer accepts fulfillment.
	if _, err := f.svc.Fulfill(ctx, order.ID); !errors.Is(err, domain.ErrOrderNotPaid) {
		t.Fatalf("err = %v, want ErrOrderNotPaid", err)
	}
}
