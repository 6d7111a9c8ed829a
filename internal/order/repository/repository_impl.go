package repository

import (
	"context"
	"time"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, buyer_ref, status, total_amount, currency, gateway_intent_ref, gateway_event_id,
		                     fulfillment_attempts, failure_reason, paid_at, fulfilled_at, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.BuyerRef,
		order.Status,
		order.TotalAmount,
		order.Currency,
		order.GatewayIntentRef,
		order.GatewayEventID,
		order.FulfillmentAttempts,
		order.FailureReason,
		order.PaidAt,
		order.FulfilledAt,
		order.ExpiresAt,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) CreateItems(ctx context.Context, db *gorm.DB, items []domain.OrderItem) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO order_items (id, order_id, item_id, item_slug, item_title, item_kind, license_type, quantity, unit_amount, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].OrderID,
			items[i].ItemID,
			items[i].ItemSlug,
			items[i].ItemTitle,
			items[i].ItemKind,
			items[i].LicenseType,
			items[i].Quantity,
			items[i].UnitAmount,
			items[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders WHERE id = ?`, id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByIntentRef(ctx context.Context, db *gorm.DB, intentRef string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders WHERE gateway_intent_ref = ?`, intentRef,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByBuyer(ctx context.Context, db *gorm.DB, buyerRef string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders WHERE buyer_ref = ? ORDER BY created_at DESC LIMIT ?`,
		buyerRef, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, orderID int64) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM order_items WHERE order_id = ? ORDER BY id ASC`, orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkAwaitingPayment(ctx context.Context, db *gorm.DB, id int64, intentRef string, expiresAt, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, gateway_intent_ref = ?, expires_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusAwaitingPayment, intentRef, expiresAt, now,
		id, domain.StatusDraft,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id int64, eventID string, paidAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, gateway_event_id = ?, paid_at = COALESCE(paid_at, ?), updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaid, eventID, paidAt, paidAt,
		id, domain.StatusAwaitingPayment,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkFulfilled(ctx context.Context, db *gorm.DB, id int64, fulfilledAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, fulfilled_at = COALESCE(fulfilled_at, ?), failure_reason = '', updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFulfilled, fulfilledAt, fulfilledAt,
		id, domain.StatusPaid,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkPaymentFailed(ctx context.Context, db *gorm.DB, id int64, reason string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusPaymentFailed, reason, now,
		id, domain.StatusAwaitingPayment,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkFulfillmentFailed(ctx context.Context, db *gorm.DB, id int64, reason string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFulfillmentFailed, reason, now,
		id, domain.StatusPaid,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) IncrementFulfillmentAttempts(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders SET fulfillment_attempts = fulfillment_attempts + 1, updated_at = ? WHERE id = ?`,
		now, id,
	)
	if res.Error != nil {
		return 0, res.Error
	}

	var attempts int
	err := db.WithContext(ctx).Raw(
		`SELECT fulfillment_attempts FROM orders WHERE id = ?`, id,
	).Scan(&attempts).Error
	return attempts, err
}

func (r *repo) ExpireStale(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?`,
		domain.StatusExpired, "payment_window_elapsed", now,
		domain.StatusAwaitingPayment, now,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindPaidBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders
		 WHERE status = ? AND paid_at IS NOT NULL AND paid_at < ?
		 ORDER BY paid_at ASC LIMIT ?`,
		domain.StatusPaid, cutoff, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ExpireByID(ctx context.Context, db *gorm.DB, id int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusExpired, "payment_window_elapsed", now,
		id, domain.StatusAwaitingPayment,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) FindAwaitingWithoutExpiry(ctx context.Context, db *gorm.DB, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders
		 WHERE status = ? AND expires_at IS NULL
		 ORDER BY created_at ASC LIMIT ?`,
		domain.StatusAwaitingPayment, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListFailed(ctx context.Context, db *gorm.DB, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM orders
		 WHERE status IN (?, ?)
		 ORDER BY updated_at DESC LIMIT ?`,
		domain.StatusPaymentFailed, domain.StatusFulfillmentFailed, limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.GatewayEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO gateway_events (id, event_id, intent_ref, order_id, status, amount, currency, outcome, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.EventID,
		event.IntentRef,
		event.OrderID,
		event.Status,
		event.Amount,
		event.Currency,
		event.Outcome,
		event.Payload,
		event.ReceivedAt,
	).Error
}

func (r *repo) SetEventOutcome(ctx context.Context, db *gorm.DB, eventID, outcome string, orderID int64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE gateway_events SET outcome = ?, order_id = ? WHERE event_id = ?`,
		outcome, orderID, eventID,
	).Error
}

func (r *repo) FindEventsByOrder(ctx context.Context, db *gorm.DB, orderID int64) ([]domain.GatewayEvent, error) {
	var events []domain.GatewayEvent
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM gateway_events WHERE order_id = ? ORDER BY received_at ASC`, orderID,
	).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
