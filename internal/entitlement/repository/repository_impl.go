package repository

import (
	"context"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/entitlement/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnoreDuplicate inserts the grant and reports whether a new
	// row was written. An existing (order_id, kind, target) row is a
	// replay, not an error.
	InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, entitlement *domain.Entitlement) (bool, error)
	Exists(ctx context.Context, db *gorm.DB, orderID int64, kind domain.Kind, target string) (bool, error)
	FindByBuyer(ctx context.Context, db *gorm.DB, buyerRef string, kind domain.Kind) ([]domain.Entitlement, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, entitlement *domain.Entitlement) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (id, order_id, buyer_ref, kind, target, granted_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (order_id, kind, target) DO NOTHING`,
		entitlement.ID,
		entitlement.OrderID,
		entitlement.BuyerRef,
		entitlement.Kind,
		entitlement.Target,
		entitlement.GrantedAt,
		entitlement.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, orderID int64, kind domain.Kind, target string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM entitlements WHERE order_id = ? AND kind = ? AND target = ?`,
		orderID, kind, target,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByBuyer(ctx context.Context, db *gorm.DB, buyerRef string, kind domain.Kind) ([]domain.Entitlement, error) {
	var entitlements []domain.Entitlement
	query := `SELECT * FROM entitlements WHERE buyer_ref = ?`
	args := []any{buyerRef}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY granted_at ASC`

	err := db.WithContext(ctx).Raw(query, args...).Scan(&entitlements).Error
	if err != nil {
		return nil, err
	}
	return entitlements, nil
}
