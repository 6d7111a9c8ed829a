package domain

import (
	"context"
	"errors"
	"time"
)

type AlertStatus string

const (
	AlertOpen     AlertStatus = "OPEN"
	AlertResolved AlertStatus = "RESOLVED"
)

// Alert kinds raised by the fulfillment pipeline.
const (
	KindAmountMismatch     = "amount_mismatch"
	KindUnmatchedEvent     = "unmatched_event"
	KindFulfillmentStuck   = "fulfillment_stuck"
	KindFulfillmentExhaust = "fulfillment_exhausted"
	KindGatewayUnreachable = "gateway_unreachable"
)

type Alert struct {
	ID         int64       `json:"id" gorm:"primaryKey"`
	OrderID    int64       `json:"order_id" gorm:"index"`
	Kind       string      `json:"kind" gorm:"type:text;not null"`
	Message    string      `json:"message" gorm:"type:text;not null"`
	Status     AlertStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt  time.Time   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty"`
}

func (Alert) TableName() string { return "operator_alerts" }

type Service interface {
	Raise(ctx context.Context, orderID int64, kind, message string) error
	ListOpen(ctx context.Context) ([]Alert, error)
	Resolve(ctx context.Context, id int64) error
}

var ErrNotFound = errors.New("alert_not_found")
