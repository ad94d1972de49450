package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// Product is the content-addressed catalog record. Rows with
// Source == store_custom are visible only to their owning store; everything
// else is part of the shared global catalog. Legacy rows carry an empty
// source and are treated as global.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Source        enums.ProductSource `gorm:"column:product_source;not null;default:global_catalog"`
	SourceStoreID *uuid.UUID          `gorm:"column:source_store_id;type:uuid"`

	// Uniqueness of barcode and image_hash is enforced for global rows only,
	// via partial unique indexes created in the migrations.
	Barcode   *string `gorm:"column:barcode;index:idx_products_barcode"`
	ImageHash *string `gorm:"column:image_hash;index:idx_products_image_hash"`

	Name        string         `gorm:"column:name;not null"`
	Brand       *string        `gorm:"column:brand"`
	Category    *string        `gorm:"column:category"`
	Description *string        `gorm:"column:description"`
	WeightGrams *float64       `gorm:"column:weight_grams;type:numeric(10,3)"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[]"`

	ImageURL     *string `gorm:"column:image_url"`
	ThumbnailURL *string `gorm:"column:thumbnail_url"`
	MediumURL    *string `gorm:"column:medium_url"`

	Status          enums.ProductStatus   `gorm:"column:status;not null"`
	PromotionStatus enums.PromotionStatus `gorm:"column:promotion_status;not null;default:none"`
	// PromotedProductID links a promoted custom product to the canonical copy.
	PromotedProductID *uuid.UUID `gorm:"column:promoted_product_id;type:uuid"`

	QualityScore     int     `gorm:"column:quality_score;not null;default:0"`
	ImportSource     *string `gorm:"column:import_source"`
	LastUpdatedBy    *string `gorm:"column:last_updated_by"`
	AdminNotes       *string `gorm:"column:admin_notes"`
	StoresUsingCount int     `gorm:"column:stores_using_count;not null;default:0"`

	StatusHistory []ProductStatusChange `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCustom reports whether the record is store-private.
func (p *Product) IsCustom() bool {
	return p.Source == enums.ProductSourceStoreCustom
}

// VisibleTo applies the tenant isolation rule: global products are visible to
// every store, custom products only to their owner or an admin.
func (p *Product) VisibleTo(storeID uuid.UUID, role enums.ActorRole) bool {
	if role == enums.ActorRoleAdmin {
		return true
	}
	if !p.IsCustom() {
		return true
	}
	return p.SourceStoreID != nil && *p.SourceStoreID == storeID
}
