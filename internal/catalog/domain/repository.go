package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Item, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Item, error)
	FindActive(ctx context.Context, db *gorm.DB) ([]Item, error)
	Update(ctx context.Context, db *gorm.DB, item *Item) error
}
