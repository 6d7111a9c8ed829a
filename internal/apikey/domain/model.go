package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/lib/pq"
)

// Tier orders API key tiers from weakest to strongest.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPro     Tier = "pro"
	TierUnlimit Tier = "unlimited"
)

var tierRank = map[Tier]int{
	TierFree:    0,
	TierBasic:   1,
	TierPro:     2,
	TierUnlimit: 3,
}

// Rank returns the tier's position in the upgrade ladder, -1 if unknown.
func (t Tier) Rank() int {
	rank, ok := tierRank[t]
	if !ok {
		return -1
	}
	return rank
}

// APIKey stores hashed API credentials for a buyer.
type APIKey struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	BuyerRef  string         `json:"buyer_ref" gorm:"type:text;not null;uniqueIndex"`
	KeyID     string         `json:"key_id" gorm:"column:key_id;type:text;not null"`
	KeyHash   string         `json:"-" gorm:"column:key_hash;type:text;not null"`
	Tier      Tier           `json:"tier" gorm:"type:text;not null"`
	Scopes    pq.StringArray `json:"scopes" gorm:"type:text[];not null"`
	Active    bool           `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (APIKey) TableName() string { return "api_keys" }

// HashAPIKey hashes the raw API key using the same strategy as key creation.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type Service interface {
	// EnsureKey returns the buyer's key, creating one on first use. The
	// plaintext is only non-empty on creation.
	EnsureKey(ctx context.Context, buyerRef string) (*APIKey, string, error)

	// ApplyTier grants the tool scope and raises the key tier. Tiers
	// never downgrade through this path.
	ApplyTier(ctx context.Context, buyerRef, toolRef string, tier Tier) (*APIKey, error)
}

var (
	ErrInvalidTier  = errors.New("invalid_tier")
	ErrKeyNotFound  = errors.New("api_key_not_found")
	ErrInvalidBuyer = errors.New("invalid_buyer")
)
