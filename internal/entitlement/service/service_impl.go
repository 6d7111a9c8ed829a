package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	apikeydomain "github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/domain"
	catalogdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/repository"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
	subscriptiondomain "github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/domain"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Checkout      *config.CheckoutConfigHolder
	Repo          repository.Repository
	Orders        orderdomain.Repository
	Catalog       catalogdomain.Repository
	Subscriptions subscriptiondomain.Service
	APIKeys       apikeydomain.Service
	Alerts        alertdomain.Service
	Metrics       *metrics.Metrics
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	checkout      *config.CheckoutConfigHolder
	repo          repository.Repository
	orders        orderdomain.Repository
	catalog       catalogdomain.Repository
	subscriptions subscriptiondomain.Service
	apikeys       apikeydomain.Service
	alerts        alertdomain.Service
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("entitlement.grantor"),
		genID:         p.GenID,
		clock:         p.Clock,
		checkout:      p.Checkout,
		repo:          p.Repo,
		orders:        p.Orders,
		catalog:       p.Catalog,
		subscriptions: p.Subscriptions,
		apikeys:       p.APIKeys,
		alerts:        p.Alerts,
		metrics:       p.Metrics,
	}
}

func (s *Service) Fulfill(ctx context.Context, orderID int64) (*domain.Result, error) {
	order, err := s.orders.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status == orderdomain.StatusFulfilled {
		return &domain.Result{OrderID: orderID, Fulfilled: true}, nil
	}
	if order.Status != orderdomain.StatusPaid {
		return nil, domain.ErrOrderNotPaid
	}

	items, err := s.orders.FindItems(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}

	log := s.log.With(
		zap.Int64("order_id", orderID),
		zap.String("buyer_ref", order.BuyerRef),
	)

	result := &domain.Result{OrderID: orderID}
	for i := range items {
		granted, err := s.grantLine(ctx, order, &items[i])
		if err != nil {
			s.metrics.EntitlementGrant.WithLabelValues("error").Inc()
			log.Error("grant failed",
				zap.String("item_slug", items[i].ItemSlug),
				zap.Error(err),
			)
			return result, s.recordFailure(ctx, order, err)
		}
		if granted {
			result.Granted++
			s.metrics.EntitlementGrant.WithLabelValues("granted").Inc()
		} else {
			result.Replayed++
			s.metrics.EntitlementGrant.WithLabelValues("replayed").Inc()
		}
	}

	now := s.clock.Now()
	rows, err := s.orders.MarkFulfilled(ctx, s.db, orderID, now)
	if err != nil {
		return result, err
	}
	if rows > 0 {
		s.metrics.OrderTransitions.WithLabelValues(string(orderdomain.StatusFulfilled)).Inc()
		log.Info("order fulfilled",
			zap.Int("granted", result.Granted),
			zap.Int("replayed", result.Replayed),
		)
	}

	result.Fulfilled = true
	return result, nil
}

// grantLine issues one entitlement. Side effects run before the grant row
// is written, so a replayed line skips both.
func (s *Service) grantLine(ctx context.Context, order *orderdomain.Order, item *orderdomain.OrderItem) (bool, error) {
	kind, target, err := s.resolveGrant(ctx, order, item)
	if err != nil {
		return false, err
	}

	exists, err := s.repo.Exists(ctx, s.db, order.ID, kind, target)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := s.applySideEffect(ctx, order, item, kind); err != nil {
		return false, err
	}

	now := s.clock.Now()
	inserted, err := s.repo.InsertIgnoreDuplicate(ctx, s.db, &domain.Entitlement{
		ID:        s.genID.Generate().Int64(),
		OrderID:   order.ID,
		BuyerRef:  order.BuyerRef,
		Kind:      kind,
		Target:    target,
		GrantedAt: now,
		CreatedAt: now,
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

func (s *Service) resolveGrant(ctx context.Context, order *orderdomain.Order, item *orderdomain.OrderItem) (domain.Kind, string, error) {
	switch catalogdomain.ItemKind(item.ItemKind) {
	case catalogdomain.KindDownload:
		return domain.KindDownload, item.ItemSlug, nil
	case catalogdomain.KindPlan:
		return domain.KindSubscription, item.ItemSlug, nil
	case catalogdomain.KindAPITool:
		toolRef, tier, err := s.toolGrant(ctx, item)
		if err != nil {
			return "", "", err
		}
		return domain.KindAPITier, fmt.Sprintf("%s:%s", toolRef, tier), nil
	default:
		return "", "", fmt.Errorf("unknown item kind %q", item.ItemKind)
	}
}

func (s *Service) applySideEffect(ctx context.Context, order *orderdomain.Order, item *orderdomain.OrderItem, kind domain.Kind) error {
	switch kind {
	case domain.KindSubscription:
		cycle := subscriptiondomain.CycleMonthly
		if catalogItem, err := s.catalog.FindByID(ctx, s.db, item.ItemID); err != nil {
			return err
		} else if catalogItem != nil && catalogItem.BillingCycle != "" {
			cycle = subscriptiondomain.BillingCycle(catalogItem.BillingCycle)
		}
		_, err := s.subscriptions.ActivateOrRenew(ctx, order.BuyerRef, item.ItemSlug, cycle)
		return err
	case domain.KindAPITier:
		toolRef, tier, err := s.toolGrant(ctx, item)
		if err != nil {
			return err
		}
		_, err = s.apikeys.ApplyTier(ctx, order.BuyerRef, toolRef, tier)
		return err
	default:
		// Downloads need no side effect; the grant row is the license.
		return nil
	}
}

func (s *Service) toolGrant(ctx context.Context, item *orderdomain.OrderItem) (string, apikeydomain.Tier, error) {
	catalogItem, err := s.catalog.FindByID(ctx, s.db, item.ItemID)
	if err != nil {
		return "", "", err
	}

	toolRef := item.ItemSlug
	if catalogItem != nil && strings.TrimSpace(catalogItem.ToolRef) != "" {
		toolRef = catalogItem.ToolRef
	}

	tier := apikeydomain.Tier(strings.TrimSpace(item.LicenseType))
	if tier.Rank() < 0 {
		tier = apikeydomain.TierPro
	}
	return toolRef, tier, nil
}

func (s *Service) recordFailure(ctx context.Context, order *orderdomain.Order, cause error) error {
	now := s.clock.Now()
	attempts, err := s.orders.IncrementFulfillmentAttempts(ctx, s.db, order.ID, now)
	if err != nil {
		return err
	}

	budget := s.checkout.Get().FulfillmentRetryBudget
	if attempts < budget {
		return cause
	}

	if _, err := s.orders.MarkFulfillmentFailed(ctx, s.db, order.ID, "fulfillment_retry_exhausted", now); err != nil {
		return err
	}
	s.metrics.OrderTransitions.WithLabelValues(string(orderdomain.StatusFulfillmentFailed)).Inc()
	_ = s.alerts.Raise(ctx, order.ID, alertdomain.KindFulfillmentExhaust,
		fmt.Sprintf("order %d failed fulfillment %d times: %v", order.ID, attempts, cause))

	return domain.ErrRetryExhausted
}

func (s *Service) ListByBuyer(ctx context.Context, buyerRef string, kind domain.Kind) ([]domain.Entitlement, error) {
	return s.repo.FindByBuyer(ctx, s.db, buyerRef, kind)
}
