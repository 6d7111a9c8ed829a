package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
)

const (
	apiKeyPrefix      = "sk_live_"
	apiKeySecretBytes = 24
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) EnsureKey(ctx context.Context, buyerRef string) (*domain.APIKey, string, error) {
	buyerRef = strings.TrimSpace(buyerRef)
	if buyerRef == "" {
		return nil, "", domain.ErrInvalidBuyer
	}

	existing, err := s.findByBuyer(ctx, buyerRef)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return existing, "", nil
	}

	now := s.clock.Now()
	id := s.genID.Generate()
	keyID := newKeyID(id)
	plain, hash, err := generateAPIKey(keyID)
	if err != nil {
		return nil, "", err
	}

	key := &domain.APIKey{
		ID:        id.Int64(),
		BuyerRef:  buyerRef,
		KeyID:     keyID,
		KeyHash:   hash,
		Tier:      domain.TierFree,
		Scopes:    pq.StringArray{},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, buyer_ref, key_id, key_hash, tier, scopes, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.ID, key.BuyerRef, key.KeyID, key.KeyHash, key.Tier, key.Scopes, key.Active, key.CreatedAt, key.UpdatedAt,
	).Error
	if err != nil {
		return nil, "", err
	}

	s.log.Info("api key issued",
		zap.String("buyer_ref", buyerRef),
		zap.String("key_id", keyID),
	)
	return key, plain, nil
}

func (s *Service) ApplyTier(ctx context.Context, buyerRef, toolRef string, tier domain.Tier) (*domain.APIKey, error) {
	if tier.Rank() < 0 {
		return nil, domain.ErrInvalidTier
	}

	key, _, err := s.EnsureKey(ctx, buyerRef)
	if err != nil {
		return nil, err
	}

	scope := strings.TrimSpace(toolRef)
	if scope != "" && !containsScope(key.Scopes, scope) {
		key.Scopes = append(key.Scopes, scope)
	}
	if tier.Rank() > key.Tier.Rank() {
		key.Tier = tier
	}
	key.UpdatedAt = s.clock.Now()

	err = s.db.WithContext(ctx).Exec(
		`UPDATE api_keys SET tier = ?, scopes = ?, updated_at = ? WHERE id = ?`,
		key.Tier, key.Scopes, key.UpdatedAt, key.ID,
	).Error
	if err != nil {
		return nil, err
	}

	s.log.Info("api key tier applied",
		zap.String("buyer_ref", buyerRef),
		zap.String("tool_ref", toolRef),
		zap.String("tier", string(key.Tier)),
	)
	return key, nil
}

func (s *Service) findByBuyer(ctx context.Context, buyerRef string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.WithContext(ctx).Raw(
		`SELECT * FROM api_keys WHERE buyer_ref = ?`, buyerRef,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func generateAPIKey(keyID string) (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	secretPart := hex.EncodeToString(secret)
	trimmed := strings.TrimPrefix(keyID, "key_")
	plain := fmt.Sprintf("%s%s_%s", apiKeyPrefix, trimmed, secretPart)
	return plain, domain.HashAPIKey(plain), nil
}

func newKeyID(id snowflake.ID) string {
	return "key_" + strings.ToUpper(strconv.FormatInt(int64(id), 36))
}

func containsScope(scopes []string, scope string) bool {
	for _, existing := range scopes {
		if existing == scope {
			return true
		}
	}
	return false
}
