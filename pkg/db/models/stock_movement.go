package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// StockMovement records one stock delta applied to an inventory entry.
type StockMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;index:idx_stock_movements_entry"`
	ProductID     uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index:idx_stock_movements_entry"`
	Delta         int                       `gorm:"column:delta;not null"`
	Reason        enums.StockMovementReason `gorm:"column:reason;not null"`
	ReferenceID   *string                   `gorm:"column:reference_id"`
	PreviousStock int                       `gorm:"column:previous_stock;not null"`
	NewStock      int                       `gorm:"column:new_stock;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
