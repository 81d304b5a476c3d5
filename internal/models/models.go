package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups orders by their line shape for batching.
type Category string

const (
	CategorySingle     Category = "Single"
	CategorySingleLine Category = "SingleLine"
	CategoryMulti      Category = "Multi"
	CategoryUnknown    Category = "Unknown"
)

// Categories lists batchable categories in their fixed output order.
var Categories = []Category{CategorySingle, CategorySingleLine, CategoryMulti}

// Prefix returns the batch filename prefix for the category.
func (c Category) Prefix() string {
	switch c {
	case CategorySingle:
		return "S"
	case CategorySingleLine:
		return "SL"
	case CategoryMulti:
		return "M"
	}
	return ""
}

// FulfilmentFBR marks order lines fulfilled by the retailer itself.
// Only FBR lines are eligible for shipping label acquisition.
const FulfilmentFBR = "FBR"

// OrderLine represents a single item line within an order.
type OrderLine struct {
	OrderItemID      string  `json:"orderItemId"`
	EAN              string  `json:"ean"`
	Quantity         int     `json:"quantity"`
	FulfilmentMethod string  `json:"fulfilmentMethod"`
	UnitPrice        float64 `json:"unitPrice"`
}

// Order represents a marketplace order as returned by the order source.
type Order struct {
	OrderID             string      `json:"orderId"`
	OrderPlacedDateTime *time.Time  `json:"orderPlacedDateTime"`
	Status              string      `json:"status"`
	Lines               []OrderLine `json:"orderItems"`
}

// UniqueEANs returns the distinct product identifiers across all lines.
func (o *Order) UniqueEANs() []string {
	seen := make(map[string]struct{}, len(o.Lines))
	eans := make([]string, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.EAN == "" {
			continue
		}
		if _, ok := seen[line.EAN]; ok {
			continue
		}
		seen[line.EAN] = struct{}{}
		eans = append(eans, line.EAN)
	}
	return eans
}

// Category derives the fulfillment category from the order's line shape.
// It is never persisted independently of the order.
func (o *Order) Category() Category {
	uniqueEANs := len(o.UniqueEANs())
	switch {
	case len(o.Lines) == 1 && o.Lines[0].Quantity == 1 && uniqueEANs == 1:
		return CategorySingle
	case len(o.Lines) == 1 && o.Lines[0].Quantity > 1 && uniqueEANs == 1:
		return CategorySingleLine
	case uniqueEANs > 1:
		return CategoryMulti
	}
	return CategoryUnknown
}

// ProcessedOrder records that an order line was written into a batch.
// Once a (order id, line id) pair exists it is permanently considered
// processed; re-insertion overwrites metadata only.
type ProcessedOrder struct {
	OrderID     string    `gorm:"primaryKey;column:order_id" json:"order_id"`
	OrderItemID string    `gorm:"primaryKey;column:order_item_id" json:"order_item_id"`
	BatchNumber string    `gorm:"not null" json:"batch_number"`
	BatchType   string    `gorm:"not null;index" json:"batch_type"`
	ProcessedAt time.Time `gorm:"autoUpdateTime" json:"processed_at"`
}

// TableName keeps the table name used by earlier deployments of the ledger.
func (ProcessedOrder) TableName() string {
	return "processed_orders"
}

// SetupModels runs migrations for all persisted models.
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(&ProcessedOrder{})
}
