// Package testutil provides shared fixtures for service tests: an
// in-memory sqlite database carrying the storefront schema, a snowflake
// node, and a static checkout policy.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/appnity-softwares/digitalEcom-sub002/internal/config"
	"github.com/appnity-softwares/digitalEcom-sub002/internal/observability/metrics"
)

func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE catalog_items (
			id BIGINT PRIMARY KEY,
			slug TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			price_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			license_type TEXT NOT NULL DEFAULT '',
			billing_cycle TEXT NOT NULL DEFAULT '',
			tool_ref TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_catalog_items_slug ON catalog_items(slug)`,
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			buyer_ref TEXT NOT NULL,
			status TEXT NOT NULL,
			total_amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			gateway_intent_ref TEXT NOT NULL DEFAULT '',
			gateway_event_id TEXT NOT NULL DEFAULT '',
			fulfillment_attempts INT NOT NULL DEFAULT 0,
			failure_reason TEXT NOT NULL DEFAULT '',
			paid_at DATETIME,
			fulfilled_at DATETIME,
			expires_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE order_items (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			item_id BIGINT NOT NULL,
			item_slug TEXT NOT NULL,
			item_title TEXT NOT NULL DEFAULT '',
			item_kind TEXT NOT NULL,
			license_type TEXT NOT NULL DEFAULT '',
			quantity INT NOT NULL,
			unit_amount BIGINT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE gateway_events (
			id BIGINT PRIMARY KEY,
			event_id TEXT NOT NULL,
			intent_ref TEXT NOT NULL DEFAULT '',
			order_id BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '{}',
			received_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_gateway_events_event_id ON gateway_events(event_id)`,
		`CREATE TABLE entitlements (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			buyer_ref TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			granted_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_entitlements_order_kind_target ON entitlements(order_id, kind, target)`,
		`CREATE TABLE subscriptions (
			id BIGINT PRIMARY KEY,
			buyer_ref TEXT NOT NULL,
			plan_slug TEXT NOT NULL,
			billing_cycle TEXT NOT NULL DEFAULT 'monthly',
			status TEXT NOT NULL,
			current_period_start DATETIME NOT NULL,
			current_period_end DATETIME NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX uq_subscriptions_buyer_plan ON subscriptions(buyer_ref, plan_slug)`,
		`CREATE TABLE api_keys (
			id BIGINT PRIMARY KEY,
			buyer_ref TEXT NOT NULL,
			key_id TEXT NOT NULL,
			key_hash TEXT NOT NULL,
			tier TEXT NOT NULL,
			scopes TEXT NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_api_keys_buyer_ref ON api_keys(buyer_ref)`,
		`CREATE TABLE operator_alerts (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL DEFAULT 0,
			kind TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'OPEN',
			created_at DATETIME NOT NULL,
			resolved_at DATETIME
		)`,
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()

	node, err := snowflake.NewNode(10)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

// StaticCheckout returns a checkout policy holder with fixed windows for
// deterministic tests.
func StaticCheckout() *config.CheckoutConfigHolder {
	return config.NewStaticCheckoutConfigHolder(config.CheckoutConfig{
		PaymentExpiry:          30 * time.Minute,
		FulfillmentGrace:       2 * time.Minute,
		FulfillmentRetryBudget: 3,
		SweepInterval:          time.Minute,
	})
}

func NewMetrics() *metrics.Metrics {
	return metrics.New()
}
