package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a tenant of the shared catalog. Identity and credentials live in
// the external auth service; this table only anchors foreign keys and names.
type Store struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	OwnerEmail *string   `gorm:"column:owner_email"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
