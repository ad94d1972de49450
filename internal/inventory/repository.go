package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	"github.com/shopgrid/catalog-engine/pkg/pagination"
)

const visibleFilter = "(product_source = ? OR product_source = '' OR product_source IS NULL OR source_store_id = ?)"

// Repository persists inventory entries and their stock movement audit rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Find loads one inventory entry by its composite key.
func (r *Repository) Find(ctx context.Context, storeID, productID uuid.UUID) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	err := r.db.WithContext(ctx).
		First(&entry, "store_id = ? AND product_id = ?", storeID, productID).
		Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// CreateIfAbsent inserts the entry unless the (store, product) pair already
// has one. Reports whether a row was written.
func (r *Repository) CreateIfAbsent(ctx context.Context, entry *models.InventoryEntry) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes the entry for the pair. Reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, storeID, productID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Delete(&models.InventoryEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ApplyStockDelta runs the guarded compare-and-swap on current_stock. The
// WHERE clause serializes concurrent movements on the same pair and rejects
// any delta that would drive the counter negative unless allowed. Reports
// whether the guard passed.
func (r *Repository) ApplyStockDelta(ctx context.Context, storeID, productID uuid.UUID, delta int, allowNegative bool) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE store_inventory_entries
SET current_stock = current_stock + ?, updated_at = CURRENT_TIMESTAMP
WHERE store_id = ? AND product_id = ? AND (current_stock + ? >= 0 OR ?)`,
		delta, storeID, productID, delta, allowNegative,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchMovementTimestamp stamps the entry according to the movement reason.
func (r *Repository) TouchMovementTimestamp(ctx context.Context, storeID, productID uuid.UUID, reason enums.StockMovementReason) error {
	var column string
	switch reason {
	case enums.StockMovementRestock, enums.StockMovementReturn:
		column = "last_stocked_at"
	case enums.StockMovementOut:
		column = "last_sold_at"
	default:
		return nil
	}
	return r.db.WithContext(ctx).
		Exec("UPDATE store_inventory_entries SET "+column+" = CURRENT_TIMESTAMP WHERE store_id = ? AND product_id = ?", storeID, productID).
		Error
}

// IncrementProductUsage atomically adjusts the product's distinct-store
// counter. Lives here so entry writes and the counter move in one
// transaction.
func (r *Repository) IncrementProductUsage(ctx context.Context, productID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Exec("UPDATE products SET stores_using_count = stores_using_count + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", delta, productID).
		Error
}

// CreateMovement appends one audit row.
func (r *Repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns the audit trail for a pair, newest first.
func (r *Repository) ListMovements(ctx context.Context, storeID, productID uuid.UUID, limit int) ([]models.StockMovement, error) {
	qb := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Order("created_at DESC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	var rows []models.StockMovement
	err := qb.Find(&rows).Error
	return rows, err
}

type visibleProductsQuery struct {
	StoreID uuid.UUID
	Admin   bool
	Params  pagination.Params
}

// CountVisibleProducts counts catalog rows the requester may see. The count
// applies the same filter as the listing so private rows never leak through
// aggregates.
func (r *Repository) CountVisibleProducts(ctx context.Context, query visibleProductsQuery) (int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if !query.Admin {
		qb = qb.Where(visibleFilter, enums.ProductSourceGlobalCatalog, query.StoreID)
	}
	var n int64
	err := qb.Count(&n).Error
	return n, err
}

// ListVisibleProducts returns one cursor page of catalog rows the requester
// may see, joined with the requester's own inventory terms.
func (r *Repository) ListVisibleProducts(ctx context.Context, query visibleProductsQuery) ([]VisibleProduct, string, error) {
	pageSize := query.Params.PageSize()
	cursor, err := pagination.Decode(query.Params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).
		Table("products p").
		Select(`p.id, p.product_source, p.name, p.brand, p.category, p.barcode,
p.status, p.quality_score, p.stores_using_count, p.created_at,
e.store_id IS NOT NULL AS in_inventory, e.selling_price, e.current_stock`).
		Joins("LEFT JOIN store_inventory_entries e ON e.product_id = p.id AND e.store_id = ?", query.StoreID)
	if !query.Admin {
		qb = qb.Where(visibleFilter, enums.ProductSourceGlobalCatalog, query.StoreID)
	}
	if cursor != nil {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var records []visibleProductRecord
	err = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(pageSize + 1).Scan(&records).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(records) > pageSize {
		records = records[:pageSize]
		last := records[len(records)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}

	rows := make([]VisibleProduct, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.toVisibleProduct())
	}
	return rows, nextCursor, nil
}

type visibleProductRecord struct {
	ID               uuid.UUID
	ProductSource    string
	Name             string
	Brand            *string
	Category         *string
	Barcode          *string
	Status           string
	QualityScore     int
	StoresUsingCount int
	CreatedAt        time.Time
	InInventory      bool
	SellingPrice     *decimal.Decimal
	CurrentStock     *int
}

func (r visibleProductRecord) toVisibleProduct() VisibleProduct {
	source, _ := enums.ParseProductSource(r.ProductSource)
	return VisibleProduct{
		ID:               r.ID,
		Source:           source,
		Name:             r.Name,
		Brand:            r.Brand,
		Category:         r.Category,
		Barcode:          r.Barcode,
		Status:           enums.ProductStatus(r.Status),
		QualityScore:     r.QualityScore,
		StoresUsingCount: r.StoresUsingCount,
		CreatedAt:        r.CreatedAt,
		InInventory:      r.InInventory,
		SellingPrice:     r.SellingPrice,
		CurrentStock:     r.CurrentStock,
	}
}
