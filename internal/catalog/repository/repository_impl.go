package repository

import (
	"context"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO catalog_items (id, slug, name, description, kind, price_amount, currency, license_type, billing_cycle, tool_ref, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Slug,
		item.Name,
		item.Description,
		item.Kind,
		item.PriceAmount,
		item.Currency,
		item.LicenseType,
		item.BillingCycle,
		item.ToolRef,
		item.Active,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, description, kind, price_amount, currency, license_type, billing_cycle, tool_ref, active, created_at, updated_at
		 FROM catalog_items WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, description, kind, price_amount, currency, license_type, billing_cycle, tool_ref, active, created_at, updated_at
		 FROM catalog_items WHERE slug = ?`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB) ([]domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, description, kind, price_amount, currency, license_type, billing_cycle, tool_ref, active, created_at, updated_at
		 FROM catalog_items WHERE active = ? ORDER BY created_at ASC`,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE catalog_items
		 SET name = ?, description = ?, price_amount = ?, license_type = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.Description,
		item.PriceAmount,
		item.LicenseType,
		item.Active,
		item.UpdatedAt,
		item.ID,
	).Error
}
