package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	CreateItems(ctx context.Context, db *gorm.DB, items []OrderItem) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	FindByIntentRef(ctx context.Context, db *gorm.DB, intentRef string) (*Order, error)
	FindByBuyer(ctx context.Context, db *gorm.DB, buyerRef string, limit int) ([]Order, error)
	FindItems(ctx context.Context, db *gorm.DB, orderID int64) ([]OrderItem, error)

	// Compare-and-swap transitions. Each returns the number of rows
	// updated; zero means the order was not in the expected status.
	MarkAwaitingPayment(ctx context.Context, db *gorm.DB, id int64, intentRef string, expiresAt, now time.Time) (int64, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id int64, eventID string, paidAt time.Time) (int64, error)
	MarkFulfilled(ctx context.Context, db *gorm.DB, id int64, fulfilledAt time.Time) (int64, error)
	MarkPaymentFailed(ctx context.Context, db *gorm.DB, id int64, reason string, now time.Time) (int64, error)
	MarkFulfillmentFailed(ctx context.Context, db *gorm.DB, id int64, reason string, now time.Time) (int64, error)
	IncrementFulfillmentAttempts(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int, error)

	ExpireStale(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	ExpireByID(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int64, error)
	FindPaidBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]Order, error)
	FindAwaitingWithoutExpiry(ctx context.Context, db *gorm.DB, limit int) ([]Order, error)
	ListFailed(ctx context.Context, db *gorm.DB, limit int) ([]Order, error)

	InsertEvent(ctx context.Context, db *gorm.DB, event *GatewayEvent) error
	SetEventOutcome(ctx context.Context, db *gorm.DB, eventID, outcome string, orderID int64) error
	FindEventsByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]GatewayEvent, error)
}
