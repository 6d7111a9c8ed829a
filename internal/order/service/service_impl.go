package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	alertdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/pkg/db"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Checkout *config.CheckoutConfigHolder
	Alerts   alertdomain.Service
	Metrics  *metrics.Metrics
	Repo     domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	checkout *config.CheckoutConfigHolder
	alerts   alertdomain.Service
	metrics  *metrics.Metrics
	repo     domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		checkout: p.Checkout,
		alerts:   p.Alerts,
		metrics:  p.Metrics,
		repo:     p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, buyerRef, id string) (*domain.Response, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, orderID.Int64())
	if err != nil {
		return nil, err
	}
	if order == nil || order.BuyerRef != buyerRef {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.FindItems(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	resp := toResponse(order, items)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, buyerRef string) ([]domain.Response, error) {
	orders, err := s.repo.FindByBuyer(ctx, s.db, buyerRef, 50)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(orders))
	for i := range orders {
		items, err := s.repo.FindItems(ctx, s.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		resp = append(resp, toResponse(&orders[i], items))
	}
	return resp, nil
}

func (s *Service) BeginPayment(ctx context.Context, orderID int64, intentRef string) error {
	now := s.clock.Now()
	expiresAt := now.Add(s.checkout.Get().PaymentExpiry)

	rows, err := s.repo.MarkAwaitingPayment(ctx, s.db, orderID, intentRef, expiresAt, now)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvalidTransition
	}

	s.metrics.OrderTransitions.WithLabelValues(string(domain.StatusAwaitingPayment)).Inc()
	s.log.Info("payment started",
		zap.Int64("order_id", orderID),
		zap.String("intent_ref", intentRef),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}

// ApplyPaymentNotice records the event first so redelivery collapses to a
// duplicate-key insert, then applies the transition under compare-and-swap.
func (s *Service) ApplyPaymentNotice(ctx context.Context, notice domain.PaymentNotice) (*domain.Order, error) {
	now := s.clock.Now()
	log := s.log.With(
		zap.String("event_id", notice.EventID),
		zap.String("intent_ref", notice.IntentRef),
		zap.String("notice_status", notice.Status),
	)

	payload := datatypes.JSONMap(notice.Payload)
	if payload == nil {
		payload = datatypes.JSONMap{}
	}
	event := &domain.GatewayEvent{
		ID:         s.genID.Generate().Int64(),
		EventID:    notice.EventID,
		IntentRef:  notice.IntentRef,
		Status:     notice.Status,
		Amount:     notice.Amount,
		Currency:   notice.Currency,
		Payload:    payload,
		ReceivedAt: now,
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		if db.IsDuplicateKeyErr(err) {
			log.Info("duplicate gateway event ignored")
			s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeDuplicate).Inc()
			return nil, domain.ErrEventAlreadyProcessed
		}
		return nil, err
	}

	order, err := s.repo.FindByIntentRef(ctx, s.db, notice.IntentRef)
	if err != nil {
		return nil, err
	}
	if order == nil {
		log.Warn("gateway event matched no order")
		s.recordOutcome(ctx, notice.EventID, domain.OutcomeUnmatched, 0)
		s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeUnmatched).Inc()
		_ = s.alerts.Raise(ctx, 0, alertdomain.KindUnmatchedEvent,
			fmt.Sprintf("event %s references unknown intent %s", notice.EventID, notice.IntentRef))
		return nil, domain.ErrUnmatchedIntent
	}
	log = log.With(zap.Int64("order_id", order.ID))

	if notice.Status == domain.NoticeFailed {
		return s.applyFailure(ctx, log, order, notice, now)
	}

	if notice.Amount != order.TotalAmount || !strings.EqualFold(notice.Currency, order.Currency) {
		log.Warn("gateway amount mismatch",
			zap.Int64("expected_amount", order.TotalAmount),
			zap.Int64("reported_amount", notice.Amount),
			zap.String("expected_currency", order.Currency),
			zap.String("reported_currency", notice.Currency),
		)
		if _, err := s.repo.MarkPaymentFailed(ctx, s.db, order.ID, "amount_mismatch", now); err != nil {
			return nil, err
		}
		s.recordOutcome(ctx, notice.EventID, domain.OutcomeAmountMismatch, order.ID)
		s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeAmountMismatch).Inc()
		s.metrics.OrderTransitions.WithLabelValues(string(domain.StatusPaymentFailed)).Inc()
		_ = s.alerts.Raise(ctx, order.ID, alertdomain.KindAmountMismatch,
			fmt.Sprintf("order %d expected %d %s, gateway reported %d %s",
				order.ID, order.TotalAmount, order.Currency, notice.Amount, notice.Currency))
		return nil, domain.ErrAmountMismatch
	}

	rows, err := s.repo.MarkPaid(ctx, s.db, order.ID, notice.EventID, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Lost the race or the order already left AWAITING_PAYMENT.
		current, err := s.repo.FindByID(ctx, s.db, order.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && (current.Status == domain.StatusPaid || current.Status == domain.StatusFulfilled) {
			log.Info("order already paid")
			s.recordOutcome(ctx, notice.EventID, domain.OutcomeDuplicate, order.ID)
			s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeDuplicate).Inc()
			return current, nil
		}
		log.Warn("payment arrived for non-payable order",
			zap.String("status", string(order.Status)),
		)
		s.recordOutcome(ctx, notice.EventID, domain.OutcomeNotPayable, order.ID)
		s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeNotPayable).Inc()
		return nil, domain.ErrOrderNotPayable
	}

	s.recordOutcome(ctx, notice.EventID, domain.OutcomeApplied, order.ID)
	s.metrics.WebhookEvents.WithLabelValues(domain.OutcomeApplied).Inc()
	s.metrics.OrderTransitions.WithLabelValues(string(domain.StatusPaid)).Inc()
	log.Info("order paid")

	return s.repo.FindByID(ctx, s.db, order.ID)
}

func (s *Service) applyFailure(ctx context.Context, log *zap.Logger, order *domain.Order, notice domain.PaymentNotice, now time.Time) (*domain.Order, error) {
	rows, err := s.repo.MarkPaymentFailed(ctx, s.db, order.ID, "gateway_declined", now)
	if err != nil {
		return nil, err
	}

	outcome := domain.OutcomeFailed
	if rows == 0 {
		outcome = domain.OutcomeNotPayable
		log.Info("failure notice for order no longer awaiting payment",
			zap.String("status", string(order.Status)),
		)
	} else {
		s.metrics.OrderTransitions.WithLabelValues(string(domain.StatusPaymentFailed)).Inc()
		log.Info("order payment failed")
	}

	s.recordOutcome(ctx, notice.EventID, outcome, order.ID)
	s.metrics.WebhookEvents.WithLabelValues(outcome).Inc()
	return s.repo.FindByID(ctx, s.db, order.ID)
}

func (s *Service) ExpireStale(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	expired, err := s.repo.ExpireStale(ctx, s.db, now)
	if err != nil {
		return 0, err
	}

	// Orders that never received a deadline still age out, measured
	// against the payment window from creation.
	orphans, err := s.repo.FindAwaitingWithoutExpiry(ctx, s.db, 100)
	if err != nil {
		return expired, err
	}
	window := s.checkout.Get().PaymentExpiry
	for i := range orphans {
		if now.Before(orphans[i].CreatedAt.Add(window)) {
			continue
		}
		rows, err := s.repo.ExpireByID(ctx, s.db, orphans[i].ID, now)
		if err != nil {
			return expired, err
		}
		expired += rows
	}

	if expired > 0 {
		s.metrics.OrderTransitions.WithLabelValues(string(domain.StatusExpired)).Add(float64(expired))
		s.log.Info("stale orders expired", zap.Int64("count", expired))
	}
	return expired, nil
}

func (s *Service) FindPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	return s.repo.FindPaidBefore(ctx, s.db, cutoff, limit)
}

func (s *Service) ListFailed(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.repo.ListFailed(ctx, s.db, limit)
}

func (s *Service) Events(ctx context.Context, orderID int64) ([]domain.GatewayEvent, error) {
	return s.repo.FindEventsByOrder(ctx, s.db, orderID)
}

func (s *Service) recordOutcome(ctx context.Context, eventID, outcome string, orderID int64) {
	if err := s.repo.SetEventOutcome(ctx, s.db, eventID, outcome, orderID); err != nil {
		s.log.Error("record event outcome",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func toResponse(order *domain.Order, items []domain.OrderItem) domain.Response {
	resp := domain.Response{
		ID:            snowflake.ID(order.ID).String(),
		BuyerRef:      order.BuyerRef,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		Currency:      order.Currency,
		IntentRef:     order.GatewayIntentRef,
		FailureReason: order.FailureReason,
		PaidAt:        order.PaidAt,
		FulfilledAt:   order.FulfilledAt,
		ExpiresAt:     order.ExpiresAt,
		CreatedAt:     order.CreatedAt,
		Items:         make([]domain.ItemResponse, 0, len(items)),
	}
	for i := range items {
		resp.Items = append(resp.Items, domain.ItemResponse{
			ItemSlug:    items[i].ItemSlug,
			ItemTitle:   items[i].ItemTitle,
			ItemKind:    items[i].ItemKind,
			LicenseType: items[i].LicenseType,
			Quantity:    items[i].Quantity,
			UnitAmount:  items[i].UnitAmount,
		})
	}
	return resp
}
