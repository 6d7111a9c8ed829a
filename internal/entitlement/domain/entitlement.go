package domain

import (
	"context"
	"errors"
	"time"
)

// Kind is what an entitlement unlocks for the buyer.
type Kind string

const (
	KindDownload     Kind = "download"
	KindSubscription Kind = "subscription"
	KindAPITier      Kind = "api_tier"
)

// Entitlement is the durable record of a grant. The unique key
// (order_id, kind, target) makes re-granting structurally impossible.
type Entitlement struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	OrderID   int64     `json:"order_id" gorm:"not null;uniqueIndex:uq_entitlements_order_kind_target,priority:1"`
	BuyerRef  string    `json:"buyer_ref" gorm:"type:text;not null;index"`
	Kind      Kind      `json:"kind" gorm:"type:text;not null;uniqueIndex:uq_entitlements_order_kind_target,priority:2"`
	Target    string    `json:"target" gorm:"type:text;not null;uniqueIndex:uq_entitlements_order_kind_target,priority:3"`
	GrantedAt time.Time `json:"granted_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Entitlement) TableName() string { return "entitlements" }

// Result reports one fulfillment attempt.
type Result struct {
	OrderID   int64 `json:"order_id"`
	Granted   int   `json:"granted"`
	Replayed  int   `json:"replayed"`
	Fulfilled bool  `json:"fulfilled"`
}

type Service interface {
	// Fulfill grants every line of a PAID order and completes it.
	// Partial failure leaves the order PAID for a safe retry; grants
	// already issued stand and replays skip them.
	Fulfill(ctx context.Context, orderID int64) (*Result, error)

	// ListByBuyer returns the buyer's entitlements, optionally filtered
	// by kind. Consumers read entitlements, never order status.
	ListByBuyer(ctx context.Context, buyerRef string, kind Kind) ([]Entitlement, error)
}

var (
	ErrOrderNotFound  = errors.New("order_not_found")
	ErrOrderNotPaid   = errors.New("order_not_paid")
	ErrRetryExhausted = errors.New("fulfillment_retry_exhausted")
)
