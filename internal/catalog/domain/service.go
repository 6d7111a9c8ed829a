package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Get(ctx context.Context, slug string) (*Response, error)
	// GetForPurchase returns the item only when it can currently be sold.
	GetForPurchase(ctx context.Context, slug string) (*Item, error)
	Archive(ctx context.Context, slug string) (*Response, error)
}

type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
	PriceAmount int64  `json:"price_amount"`
	Currency    string `json:"currency"`
	LicenseType string `json:"license_type"`

	// BillingCycle is required for plan items, ToolRef for api_tool items.
	BillingCycle string `json:"billing_cycle"`
	ToolRef      string `json:"tool_ref"`
}

type Response struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Kind         ItemKind  `json:"kind"`
	PriceAmount  int64     `json:"price_amount"`
	Currency     string    `json:"currency"`
	LicenseType  string    `json:"license_type,omitempty"`
	BillingCycle string    `json:"billing_cycle,omitempty"`
	ToolRef      string    `json:"tool_ref,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidKind     = errors.New("invalid_kind")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrNotFound        = errors.New("not_found")
	ErrItemUnavailable = errors.New("item_unavailable")
)
