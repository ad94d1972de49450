package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// AddInput links a store to a catalog product with its own terms.
type AddInput struct {
	ProductID    uuid.UUID
	SellingPrice decimal.Decimal
	InitialStock int
}

// StockUpdateInput applies one stock delta to an inventory entry.
type StockUpdateInput struct {
	ProductID   uuid.UUID
	Delta       int
	Reason      enums.StockMovementReason
	ReferenceID *string
}

// StockUpdateResult reports the counter before and after the movement.
type StockUpdateResult struct {
	PreviousStock int `json:"previous_stock"`
	NewStock      int `json:"new_stock"`
}

// EntryDTO is the read shape for one inventory row.
type EntryDTO struct {
	StoreID       uuid.UUID       `json:"store_id"`
	ProductID     uuid.UUID       `json:"product_id"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CurrentStock  int             `json:"current_stock"`
	LastStockedAt *time.Time      `json:"last_stocked_at,omitempty"`
	LastSoldAt    *time.Time      `json:"last_sold_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// VisibleProduct is one row of the browsing surface: a catalog record plus
// the requester's inventory terms when linked.
type VisibleProduct struct {
	ID               uuid.UUID           `json:"id"`
	Source           enums.ProductSource `json:"product_source"`
	Name             string              `json:"name"`
	Brand            *string             `json:"brand,omitempty"`
	Category         *string             `json:"category,omitempty"`
	Barcode          *string             `json:"barcode,omitempty"`
	Status           enums.ProductStatus `json:"status"`
	QualityScore     int                 `json:"quality_score"`
	StoresUsingCount int                 `json:"stores_using_count"`
	CreatedAt        time.Time           `json:"created_at"`

	InInventory  bool             `json:"in_inventory"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty"`
	CurrentStock *int             `json:"current_stock,omitempty"`
}

// VisibleProductsResult is one cursor page plus the authorized total.
type VisibleProductsResult struct {
	Products   []VisibleProduct `json:"products"`
	Total      int64            `json:"total"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// MovementDTO is the read shape for one audit row.
type MovementDTO struct {
	ID            uuid.UUID                 `json:"id"`
	StoreID       uuid.UUID                 `json:"store_id"`
	ProductID     uuid.UUID                 `json:"product_id"`
	Delta         int                       `json:"delta"`
	Reason        enums.StockMovementReason `json:"reason"`
	ReferenceID   *string                   `json:"reference_id,omitempty"`
	PreviousStock int                       `json:"previous_stock"`
	NewStock      int                       `json:"new_stock"`
	CreatedAt     time.Time                 `json:"created_at"`
}

// NewEntryDTO maps an inventory row to its read shape.
func NewEntryDTO(e *models.InventoryEntry) *EntryDTO {
	if e == nil {
		return nil
	}
	return &EntryDTO{
		StoreID:       e.StoreID,
		ProductID:     e.ProductID,
		SellingPrice:  e.SellingPrice,
		CurrentStock:  e.CurrentStock,
		LastStockedAt: e.LastStockedAt,
		LastSoldAt:    e.LastSoldAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// NewMovementDTO maps a stock movement row to its read shape.
func NewMovementDTO(m *models.StockMovement) *MovementDTO {
	if m == nil {
		return nil
	}
	return &MovementDTO{
		ID:            m.ID,
		StoreID:       m.StoreID,
		ProductID:     m.ProductID,
		Delta:         m.Delta,
		Reason:        m.Reason,
		ReferenceID:   m.ReferenceID,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		CreatedAt:     m.CreatedAt,
	}
}
