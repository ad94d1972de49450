package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryEntry links a store to a catalog product with its own price and
// stock. Many stores may reference the same product; the (store, product)
// pair is unique.
type InventoryEntry struct {
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey;index:idx_inventory_product"`

	SellingPrice  decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	CurrentStock  int             `gorm:"column:current_stock;not null;default:0"`
	LastStockedAt *time.Time      `gorm:"column:last_stocked_at"`
	LastSoldAt    *time.Time      `gorm:"column:last_sold_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName matches the table created by the migrations.
func (InventoryEntry) TableName() string { return "store_inventory_entries" }
