package domain

import (
	"context"
	"errors"

	orderdomain "github.com/appnity-softwares/digitalEcom-sub002/internal/order/domain"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 100

type Line struct {
	ProductRef string `json:"product_ref"`
	Quantity   int    `json:"quantity"`
}

type CheckoutRequest struct {
	Lines []Line `json:"lines"`
}

// CheckoutResponse carries the drafted order and, when payment could be
// started, the gateway intent the client should complete.
type CheckoutResponse struct {
	Order               orderdomain.Response `json:"order"`
	PaymentIntentRef    string               `json:"payment_intent_ref,omitempty"`
	PaymentClientSecret string               `json:"payment_client_secret,omitempty"`
}

type Service interface {
	// DraftOrder validates the cart and writes the order with price and
	// title snapshots in one transaction. No external calls.
	DraftOrder(ctx context.Context, buyerRef string, lines []Line) (*orderdomain.Order, error)

	// Checkout drafts the order, opens a gateway intent and moves the
	// order to AWAITING_PAYMENT. When the gateway is unreachable the
	// draft is returned alongside ErrGatewayUnavailable so the client
	// can retry.
	Checkout(ctx context.Context, buyerRef string, req CheckoutRequest) (*CheckoutResponse, error)
}

var (
	ErrEmptyCart          = errors.New("empty_cart")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrProductUnavailable = errors.New("product_unavailable")
	ErrInvalidBuyer       = errors.New("invalid_buyer")
)
