package domain

import (
	"context"
	"errors"
	"time"
)

type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "ACTIVE"
	StatusExpired SubscriptionStatus = "EXPIRED"
)

type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// PeriodFrom returns the period end for one billing cycle from start.
func (c BillingCycle) PeriodFrom(start time.Time) time.Time {
	if c == CycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

type Subscription struct {
	ID                 int64              `json:"id" gorm:"primaryKey"`
	BuyerRef           string             `json:"buyer_ref" gorm:"type:text;not null"`
	PlanSlug           string             `json:"plan_slug" gorm:"type:text;not null"`
	BillingCycle       BillingCycle       `json:"billing_cycle" gorm:"type:text;not null"`
	Status             SubscriptionStatus `json:"status" gorm:"type:text;not null"`
	CurrentPeriodStart time.Time          `json:"current_period_start" gorm:"not null"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end" gorm:"not null"`
	CreatedAt          time.Time          `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time          `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

type Service interface {
	// ActivateOrRenew starts a subscription for the buyer or, when one
	// already exists for the plan, extends its current period by one
	// billing cycle.
	ActivateOrRenew(ctx context.Context, buyerRef, planSlug string, cycle BillingCycle) (*Subscription, error)
	FindByBuyer(ctx context.Context, buyerRef string) ([]Subscription, error)
}

var ErrInvalidPlan = errors.New("invalid_plan")
