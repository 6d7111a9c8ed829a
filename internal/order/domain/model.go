package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of an order. Transitions are monotonic
// and applied only through compare-and-swap updates.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusAwaitingPayment   Status = "AWAITING_PAYMENT"
	StatusPaid              Status = "PAID"
	StatusFulfilled         Status = "FULFILLED"
	StatusPaymentFailed     Status = "PAYMENT_FAILED"
	StatusFulfillmentFailed Status = "FULFILLMENT_FAILED"
	StatusExpired           Status = "EXPIRED"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusFulfilled, StatusPaymentFailed, StatusFulfillmentFailed, StatusExpired:
		return true
	}
	return false
}

type Order struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	BuyerRef            string     `json:"buyer_ref" gorm:"type:text;not null;index"`
	Status              Status     `json:"status" gorm:"type:text;not null"`
	TotalAmount         int64      `json:"total_amount" gorm:"not null"`
	Currency            string     `json:"currency" gorm:"type:text;not null"`
	GatewayIntentRef    string     `json:"gateway_intent_ref" gorm:"type:text"`
	GatewayEventID      string     `json:"gateway_event_id" gorm:"type:text"`
	FulfillmentAttempts int        `json:"fulfillment_attempts" gorm:"not null;default:0"`
	FailureReason       string     `json:"failure_reason" gorm:"type:text"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	FulfilledAt         *time.Time `json:"fulfilled_at,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots a catalog item at purchase time so later catalog
// edits never change what the buyer bought.
type OrderItem struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	OrderID     int64     `json:"order_id" gorm:"not null;index"`
	ItemID      int64     `json:"item_id" gorm:"not null"`
	ItemSlug    string    `json:"item_slug" gorm:"type:text;not null"`
	ItemTitle   string    `json:"item_title" gorm:"type:text"`
	ItemKind    string    `json:"item_kind" gorm:"type:text;not null"`
	LicenseType string    `json:"license_type" gorm:"type:text"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	UnitAmount  int64     `json:"unit_amount" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrderItem) TableName() string { return "order_items" }

// GatewayEvent is the ledger row for every payment callback received,
// accepted or not. EventID carries a unique index so redelivery is a
// single failed insert.
type GatewayEvent struct {
	ID         int64             `json:"id" gorm:"primaryKey"`
	EventID    string            `json:"event_id" gorm:"type:text;not null;uniqueIndex"`
	IntentRef  string            `json:"intent_ref" gorm:"type:text"`
	OrderID    int64             `json:"order_id" gorm:"index"`
	Status     string            `json:"status" gorm:"type:text;not null"`
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency" gorm:"type:text"`
	Outcome    string            `json:"outcome" gorm:"type:text"`
	Payload    datatypes.JSONMap `json:"payload" gorm:"type:jsonb;not null;default:'{}'"`
	ReceivedAt time.Time         `json:"received_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (GatewayEvent) TableName() string { return "gateway_events" }

// Event outcomes recorded on the ledger row.
const (
	OutcomeApplied        = "applied"
	OutcomeDuplicate      = "duplicate"
	OutcomeUnmatched      = "unmatched"
	OutcomeAmountMismatch = "amount_mismatch"
	OutcomeNotPayable     = "not_payable"
	OutcomeFailed         = "payment_failed"
)
