package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	alertdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/alert/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	entitlementdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

const (
	lockKey     = "storefront:sweeper:run"
	passTimeout = 30 * time.Second
	refillBatch = 100
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Checkout *config.CheckoutConfigHolder
	Orders   orderdomain.Service
	Grantor  entitlementdomain.Service
	Alerts   alertdomain.Service
	Metrics  *metrics.Metrics
	Locker   *Locker `optional:"true"`
}

// Sweeper reconciles orders the happy path left behind: expired payment
// windows, paid orders awaiting fulfillment, and failure states that need
// operator attention.
type Sweeper struct {
	log      *zap.Logger
	clock    clock.Clock
	checkout *config.CheckoutConfigHolder
	orders   orderdomain.Service
	grantor  entitlementdomain.Service
	alerts   alertdomain.Service
	metrics  *metrics.Metrics
	locker   *Locker

	// local guards a sweep when redis is not configured. The redis lock
	// is an efficiency measure, never a correctness requirement.
	local sync.Mutex
}

func New(p Params) *Sweeper {
	return &Sweeper{
		log:      p.Log.Named("sweeper"),
		clock:    p.Clock,
		checkout: p.Checkout,
		orders:   p.Orders,
		grantor:  p.Grantor,
		alerts:   p.Alerts,
		metrics:  p.Metrics,
		locker:   p.Locker,
	}
}

func (s *Sweeper) RunOnce(parent context.Context) error {
	interval := s.checkout.Get().SweepInterval

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(parent, lockKey, interval)
		if err != nil {
			s.log.Warn("sweeper lock unavailable, proceeding locally", zap.Error(err))
		} else if !ok {
			s.log.Debug("another replica holds the sweep lock")
			return nil
		} else {
			defer func() {
				if err := s.locker.Release(parent, lockKey, token); err != nil {
					s.log.Warn("release sweep lock", zap.Error(err))
				}
			}()
		}
	} else {
		if !s.local.TryLock() {
			return nil
		}
		defer s.local.Unlock()
	}

	start := time.Now()
	err := errors.Join(
		s.runPass(parent, "expire_stale", s.expireStalePass),
		s.runPass(parent, "refulfill", s.refulfillPass),
		s.runPass(parent, "report", s.reportPass),
	)
	s.metrics.SweeperDuration.Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.SweeperRuns.WithLabelValues(result).Inc()
	return err
}

func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.checkout.Get().SweepInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runPass(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, passTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// Soft timeout: the next sweep picks up where this one stopped.
		s.log.Warn("sweep pass timed out", zap.String("pass", name))
		return nil
	}
	s.log.Error("sweep pass failed", zap.String("pass", name), zap.Error(err))
	return err
}

func (s *Sweeper) expireStalePass(ctx context.Context) error {
	_, err := s.orders.ExpireStale(ctx)
	return err
}

// refulfillPass re-drives fulfillment for PAID orders older than the
// grace window, usually orders whose webhook-time fulfillment failed.
func (s *Sweeper) refulfillPass(ctx context.Context) error {
	grace := s.checkout.Get().FulfillmentGrace
	cutoff := s.clock.Now().Add(-grace)

	orders, err := s.orders.FindPaidBefore(ctx, cutoff, refillBatch)
	if err != nil {
		return err
	}

	var errs error
	for i := range orders {
		if _, err := s.grantor.Fulfill(ctx, orders[i].ID); err != nil {
			if errors.Is(err, entitlementdomain.ErrRetryExhausted) {
				// Already transitioned and alerted by the grantor.
				continue
			}
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// reportPass surfaces failure states for operators: orders parked in
// PAYMENT_FAILED or FULFILLMENT_FAILED plus every open alert. It only
// reports, it never resolves.
func (s *Sweeper) reportPass(ctx context.Context) error {
	failed, err := s.orders.ListFailed(ctx, refillBatch)
	if err != nil {
		return err
	}
	byStatus := map[string]int{}
	for i := range failed {
		byStatus[string(failed[i].Status)]++
	}
	for _, status := range []orderdomain.Status{orderdomain.StatusPaymentFailed, orderdomain.StatusFulfillmentFailed} {
		s.metrics.OrdersInFailure.WithLabelValues(string(status)).Set(float64(byStatus[string(status)]))
	}
	if len(failed) > 0 {
		s.log.Warn("orders in failure states",
			zap.Int("total", len(failed)),
			zap.Any("by_status", byStatus),
		)
	}

	alerts, err := s.alerts.ListOpen(ctx)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	byKind := map[string]int{}
	for i := range alerts {
		byKind[alerts[i].Kind]++
	}
	s.log.Warn("open operator alerts",
		zap.Int("total", len(alerts)),
		zap.Any("by_kind", byKind),
	)
	return nil
}
