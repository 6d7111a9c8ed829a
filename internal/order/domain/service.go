package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Get(ctx context.Context, buyerRef, id string) (*Response, error)
	List(ctx context.Context, buyerRef string) ([]Response, error)

	// BeginPayment moves a draft to AWAITING_PAYMENT, attaching the
	// gateway intent reference and the payment deadline.
	BeginPayment(ctx context.Context, orderID int64, intentRef string) error

	// ApplyPaymentNotice applies a verified gateway callback to the
	// ledger. Every notice is recorded whether or not it changes the
	// order; redelivered event ids return ErrEventAlreadyProcessed.
	ApplyPaymentNotice(ctx context.Context, notice PaymentNotice) (*Order, error)

	// ExpireStale transitions every AWAITING_PAYMENT order whose
	// deadline has passed to EXPIRED. Returns the number expired.
	ExpireStale(ctx context.Context) (int64, error)

	FindPaidBefore(ctx context.Context, cutoff time.Time, limit int) ([]Order, error)

	// ListFailed returns orders parked in PAYMENT_FAILED or
	// FULFILLMENT_FAILED, most recently updated first.
	ListFailed(ctx context.Context, limit int) ([]Order, error)

	Events(ctx context.Context, orderID int64) ([]GatewayEvent, error)
}

// PaymentNotice is a gateway callback after signature verification.
// Payload carries the raw callback body for the ledger.
type PaymentNotice struct {
	EventID   string
	IntentRef string
	Status    string
	Amount    int64
	Currency  string
	Payload   map[string]any
}

// Notice statuses the ledger understands.
const (
	NoticeSucceeded = "succeeded"
	NoticeFailed    = "failed"
)

type ItemResponse struct {
	ItemSlug    string `json:"item_slug"`
	ItemTitle   string `json:"item_title"`
	ItemKind    string `json:"item_kind"`
	LicenseType string `json:"license_type,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}

type Response struct {
	ID            string         `json:"id"`
	BuyerRef      string         `json:"buyer_ref"`
	Status        Status         `json:"status"`
	TotalAmount   int64          `json:"total_amount"`
	Currency      string         `json:"currency"`
	IntentRef     string         `json:"gateway_intent_ref,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Items         []ItemResponse `json:"items"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	FulfilledAt   *time.Time     `json:"fulfilled_at,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

var (
	ErrNotFound              = errors.New("order_not_found")
	ErrInvalidID             = errors.New("invalid_order_id")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrOrderNotPayable       = errors.New("order_not_payable")
	ErrAmountMismatch        = errors.New("amount_mismatch")
	ErrUnmatchedIntent       = errors.New("unmatched_intent")
)
