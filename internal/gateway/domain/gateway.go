package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// IntentRequest asks the payment gateway to open a payment for an order.
type IntentRequest struct {
	OrderID  int64  `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Intent struct {
	Ref          string `json:"intent_ref"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// VerifiedPaymentEvent is a gateway callback that passed signature
// verification and strict payload parsing. It is never partially filled.
type VerifiedPaymentEvent struct {
	EventID    string
	IntentRef  string
	Status     string
	Amount     int64
	Currency   string
	OccurredAt time.Time

	// Payload is the decoded callback body, kept for the event ledger.
	Payload map[string]any
}

// Callback statuses the adapter accepts.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Service interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	VerifyCallback(payload []byte, headers http.Header) (*VerifiedPaymentEvent, error)
}

var (
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrInvalidEvent       = errors.New("invalid_event")
	ErrEventIgnored       = errors.New("event_ignored")
)
