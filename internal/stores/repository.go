package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
)

// Repository reads store rows. Writes happen in the external auth service;
// this side only needs lookups for activity checks and foreign keys.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a store repository over the given connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads one store row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// Ensure inserts the store row if it is missing, used when a trusted token
// references a store this database has not seen yet.
func (r *Repository) Ensure(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).
		Where("id = ?", store.ID).
		FirstOrCreate(store).Error
}
