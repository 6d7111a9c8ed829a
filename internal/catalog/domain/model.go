package domain

import "time"

// ItemKind classifies what a purchase of the item unlocks.
type ItemKind string

const (
	KindDownload ItemKind = "download"
	KindPlan     ItemKind = "plan"
	KindAPITool  ItemKind = "api_tool"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindDownload, KindPlan, KindAPITool:
		return true
	}
	return false
}

type Item struct {
	ID          int64    `json:"id" gorm:"primaryKey"`
	Slug        string   `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name        string   `json:"name" gorm:"type:text;not null"`
	Description string   `json:"description" gorm:"type:text"`
	Kind        ItemKind `json:"kind" gorm:"type:text;not null"`
	PriceAmount int64    `json:"price_amount" gorm:"not null"`
	Currency    string   `json:"currency" gorm:"type:text;not null"`
	LicenseType string   `json:"license_type" gorm:"type:text"`
	// BillingCycle applies to plan items, ToolRef to api_tool items.
	BillingCycle string    `json:"billing_cycle,omitempty" gorm:"type:text"`
	ToolRef      string    `json:"tool_ref,omitempty" gorm:"type:text"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Item) TableName() string { return "catalog_items" }
