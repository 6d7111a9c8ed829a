package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/domain"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/apikey/service"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/clock"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/testutil"
)

func setupAPIKeys(t *testing.T) domain.Service {
	t.Helper()

	return service.New(service.Params{
		DB:    testutil.SetupDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestEnsureKeyCreatesOnce(t *testing.T) {
	svc := setupAPIKeys(t)
	ctx := context.Background()

	key, plain, err := svc.EnsureKey(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("ensure key: %v", err)
	}
	if !strings.HasPrefix(plain, "sk_live_") {
		t.Fatalf("plaintext = %q", plain)
	}
	if key.Tier != domain.TierFree || !key.Active {
		t.Fatalf("key = %+v", key)
	}
	if key.KeyHash != domain.HashAPIKey(plain) {
		t.Fatal("stored hash does not match plaintext")
	}

	// The plaintext is only handed out on creation.
	again, plain2, err := svc.EnsureKey(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("ensure key again: %v", err)
	}
	if plain2 != "" {
		t.Fatalf("plaintext on replay = %q", plain2)
	}
	if again.ID != key.ID {
		t.Fatalf("key recreated: %d != %d", again.ID, key.ID)
	}
}

func TestEnsureKeyRejectsBlankBuyer(t *testing.T) {
	svc := setupAPIKeys(t)

	if _, _, err := svc.EnsureKey(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidBuyer) {
		t.Fatalf("err = %v, want ErrInvalidBuyer", err)
	}
}

func TestApplyTierGrantsScopeAndUpgrades(t *testing.T) {
	svc := setupAPIKeys(t)
	ctx := context.Background()

	key, err := svc.ApplyTier(ctx, "buyer-1", "scraper", domain.TierBasic)
	if err != nil {
		t.Fatalf("apply tier: %v", err)
	}
	if key.Tier != domain.TierBasic {
		t.Fatalf("tier = %s", key.Tier)
	}
	if len(key.Scopes) != 1 || key.Scopes[0] != "scraper" {
		t.Fatalf("scopes = %v", key.Scopes)
	}

	// A second tool lands on the same key.
	key, err = svc.ApplyTier(ctx, "buyer-1", "translator", domain.TierPro)
	if err != nil {
		t.Fatalf("apply tier: %v", err)
	}
	if key.Tier != domain.TierPro {
		t.Fatalf("tier = %s", key.Tier)
	}
	if len(key.Scopes) != 2 {
		t.Fatalf("scopes = %v", key.Scopes)
	}
}

func TestApplyTierNeverDowngrades(t *testing.T) {
	svc := setupAPIKeys(t)
	ctx := context.Background()

	if _, err := svc.ApplyTier(ctx, "buyer-1", "scraper", domain.TierUnlimit); err != nil {
		t.Fatalf("apply tier: %v", err)
	}

	key, err := svc.ApplyTier(ctx, "buyer-1", "scraper", domain.TierBasic)
	if err != nil {
		t.Fatalf("apply tier: %v", err)
	}
	if key.Tier != domain.TierUnlimit {
		t.Fatalf("tier = %s, downgrade applied", key.Tier)
	}
	if len(key.Scopes) != 1 {
		t.Fatalf("scopes = %v, duplicate scope appended", key.Scopes)
	}
}

func TestApplyTierRejectsUnknownTier(t *testing.T) {
	svc := setupAPIKeys(t)

	if _, err := svc.ApplyTier(context.Background(), "buyer-1", "scraper", "platinum"); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("err = %v, want ErrInvalidTier", err)
	}
}
