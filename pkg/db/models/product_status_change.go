package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// ProductStatusChange is an append-only audit row for moderation transitions.
type ProductStatusChange struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	FromStatus enums.ProductStatus `gorm:"column:from_status;not null"`
	ToStatus   enums.ProductStatus `gorm:"column:to_status;not null"`
	UpdatedBy  string              `gorm:"column:updated_by;not null"`
	Notes      *string             `gorm:"column:notes"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
