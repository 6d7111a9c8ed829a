package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/subscription/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) ActivateOrRenew(ctx context.Context, buyerRef, planSlug string, cycle domain.BillingCycle) (*domain.Subscription, error) {
	planSlug = strings.TrimSpace(planSlug)
	if planSlug == "" {
		return nil, domain.ErrInvalidPlan
	}
	if cycle != domain.CycleMonthly && cycle != domain.CycleYearly {
		cycle = domain.CycleMonthly
	}

	now := s.clock.Now()

	var existing domain.Subscription
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM subscriptions WHERE buyer_ref = ? AND plan_slug = ?`,
		buyerRef, planSlug,
	).Scan(&existing).Error
	if err != nil {
		return nil, err
	}

	if existing.ID == 0 {
		sub := domain.Subscription{
			ID:                 s.genID.Generate().Int64(),
			BuyerRef:           buyerRef,
			PlanSlug:           planSlug,
			BillingCycle:       cycle,
			Status:             domain.StatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   cycle.PeriodFrom(now),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		err := s.db.WithContext(ctx).Exec(
			`INSERT INTO subscriptions (id, buyer_ref, plan_slug, billing_cycle, status, current_period_start, current_period_end, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, sub.BuyerRef, sub.PlanSlug, sub.BillingCycle, sub.Status,
			sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CreatedAt, sub.UpdatedAt,
		).Error
		if err != nil {
			return nil, err
		}

		s.log.Info("subscription activated",
			zap.String("buyer_ref", buyerRef),
			zap.String("plan_slug", planSlug),
		)
		return &sub, nil
	}

	// A lapsed subscription restarts from now; an active one extends.
	periodStart := existing.CurrentPeriodStart
	periodEnd := cycle.PeriodFrom(existing.CurrentPeriodEnd)
	if existing.Status == domain.StatusExpired || existing.CurrentPeriodEnd.Before(now) {
		periodStart = now
		periodEnd = cycle.PeriodFrom(now)
	}

	err = s.db.WithContext(ctx).Exec(
		`UPDATE subscriptions
		 SET status = ?, billing_cycle = ?, current_period_start = ?, current_period_end = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusActive, cycle, periodStart, periodEnd, now, existing.ID,
	).Error
	if err != nil {
		return nil, err
	}

	existing.Status = domain.StatusActive
	existing.BillingCycle = cycle
	existing.CurrentPeriodStart = periodStart
	existing.CurrentPeriodEnd = periodEnd
	existing.UpdatedAt = now

	s.log.Info("subscription renewed",
		zap.String("buyer_ref", buyerRef),
		zap.String("plan_slug", planSlug),
		zap.Time("period_end", periodEnd),
	)
	return &existing, nil
}

func (s *Service) FindByBuyer(ctx context.Context, buyerRef string) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM subscriptions WHERE buyer_ref = ? ORDER BY created_at ASC`,
		buyerRef,
	).Scan(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}
