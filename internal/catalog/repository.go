package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	"github.com/shopgrid/catalog-engine/pkg/pagination"
)

// globalSourceFilter matches shared catalog rows. Legacy records predate the
// discriminator and carry an empty or NULL source; they count as global.
const globalSourceFilter = "(product_source = ? OR product_source = '' OR product_source IS NULL)"

// Repository is the catalog store: keyed product rows plus the barcode and
// image-hash dedup indexes (partial unique indexes on the same table, so a
// record and its index entries always move atomically).
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

// FindByID loads a product row by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByBarcode is a point lookup against the barcode dedup index. Only
// shared catalog rows participate in dedup.
func (r *Repository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("barcode = ?", barcode).
		Where(globalSourceFilter, enums.ProductSourceGlobalCatalog).
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByImageHash is a point lookup against the image-hash dedup index.
func (r *Repository) FindByImageHash(ctx context.Context, hash string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("image_hash = ?", hash).
		Where(globalSourceFilter, enums.ProductSourceGlobalCatalog).
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Create inserts a product row unconditionally.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// CreateIfAbsent attempts a conditional create guarded by the partial unique
// indexes on barcode and image_hash. It reports false without error when
// another writer already holds one of the candidate's dedup keys.
func (r *Repository) CreateIfAbsent(ctx context.Context, product *models.Product) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(product)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Save overwrites the full product row. Callers recompute the quality score
// before saving; it is never derived at read time.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// IncrementStoresUsing atomically adjusts the distinct-store counter.
func (r *Repository) IncrementStoresUsing(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Exec("UPDATE products SET stores_using_count = stores_using_count + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", delta, id).
		Error
}

// AppendStatusChange records one moderation transition in the audit history.
func (r *Repository) AppendStatusChange(ctx context.Context, change *models.ProductStatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

// ListStatusHistory returns the audit trail for a product in order.
func (r *Repository) ListStatusHistory(ctx context.Context, productID uuid.UUID) ([]models.ProductStatusChange, error) {
	var rows []models.ProductStatusChange
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListFuzzyCandidates returns shared catalog rows for name-similarity
// comparison, most-used first. A category narrows the scan when provided.
func (r *Repository) ListFuzzyCandidates(ctx context.Context, category *string, limit int) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).
		Where(globalSourceFilter, enums.ProductSourceGlobalCatalog)
	if category != nil && *category != "" {
		qb = qb.Where("category = ?", *category)
	}
	if limit > 0 {
		qb = qb.Limit(limit)
	}

	var rows []models.Product
	err := qb.Order("stores_using_count DESC").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

type listByStatusQuery struct {
	Status enums.ProductStatus
	Params pagination.Params

	// VisibleToStore restricts custom rows to the given owner. Nil means no
	// restriction (admin callers).
	VisibleToStore *uuid.UUID
}

// ListByStatus returns one cursor page of products in the given status,
// newest first.
func (r *Repository) ListByStatus(ctx context.Context, query listByStatusQuery) ([]models.Product, string, error) {
	pageSize := query.Params.PageSize()
	cursor, err := pagination.Decode(query.Params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Where("status = ?", query.Status)
	if query.VisibleToStore != nil {
		qb = qb.Where(
			"("+globalSourceFilter+" OR source_store_id = ?)",
			enums.ProductSourceGlobalCatalog, *query.VisibleToStore,
		)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = qb.Order("created_at DESC").Order("id DESC").Limit(pageSize + 1).Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return rows, nextCursor, nil
}
