package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/gateway/domain"
)

// SignatureHeader carries the callback signature in the gateway's
// t=<unix>,v1=<hex hmac> format. The HMAC covers "<t>.<raw payload>".
const SignatureHeader = "Gateway-Signature"

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

type Service struct {
	log     *zap.Logger
	client  *http.Client
	baseURL string
	secret  string
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("gateway.adapter"),
		client:  &http.Client{Timeout: p.Cfg.GatewayTimeout},
		baseURL: p.Cfg.GatewayBaseURL,
		secret:  p.Cfg.GatewaySecret,
	}
}

func (s *Service) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.Intent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.log.Warn("gateway unreachable", zap.Error(err))
		return nil, domain.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		s.log.Warn("gateway returned server error", zap.Int("status", resp.StatusCode))
		return nil, domain.ErrGatewayUnavailable
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway rejected intent: status %d", resp.StatusCode)
	}

	var intent domain.Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.Ref) == "" {
		return nil, domain.ErrInvalidPayload
	}
	return &intent, nil
}

func (s *Service) VerifyCallback(payload []byte, headers http.Header) (*domain.VerifiedPaymentEvent, error) {
	sigHeader := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHeader == "" {
		return nil, domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(s.secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	verified := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, domain.ErrInvalidSignature
	}

	return parseCallbackPayload(payload, timestamp)
}

type callbackPayload struct {
	EventID   string `json:"event_id"`
	IntentRef string `json:"intent_ref"`
	Status    string `json:"status"`
	Amount    *int64 `json:"amount"`
	Currency  string `json:"currency"`
	Created   int64  `json:"created"`
}

func parseCallbackPayload(payload []byte, timestamp string) (*domain.VerifiedPaymentEvent, error) {
	var event callbackPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventID := strings.TrimSpace(event.EventID)
	intentRef := strings.TrimSpace(event.IntentRef)
	currency := strings.ToUpper(strings.TrimSpace(event.Currency))
	if eventID == "" || intentRef == "" || currency == "" || event.Amount == nil {
		return nil, domain.ErrInvalidEvent
	}

	status := strings.TrimSpace(event.Status)
	switch status {
	case domain.StatusSucceeded, domain.StatusFailed:
	default:
		return nil, domain.ErrEventIgnored
	}

	raw := map[string]any{}
	_ = json.Unmarshal(payload, &raw)

	return &domain.VerifiedPaymentEvent{
		EventID:    eventID,
		IntentRef:  intentRef,
		Status:     status,
		Amount:     *event.Amount,
		Currency:   currency,
		OccurredAt: occurredAt(event.Created, timestamp),
		Payload:    raw,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func occurredAt(created int64, timestamp string) time.Time {
	if created > 0 {
		return time.Unix(created, 0).UTC()
	}
	if parsed, err := strconv.ParseInt(timestamp, 10, 64); err == nil && parsed > 0 {
		return time.Unix(parsed, 0).UTC()
	}
	return time.Now().UTC()
}
