package moderation

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// StatusUpdateInput is one moderation transition request.
type StatusUpdateInput struct {
	ProductID uuid.UUID
	NewStatus enums.ProductStatus
	Notes     *string
}

// BulkStatusUpdateInput applies one transition to many records.
type BulkStatusUpdateInput struct {
	ProductIDs []uuid.UUID
	NewStatus  enums.ProductStatus
	Notes      *string
}

// BulkItemError reports one failed id within a bulk update.
type BulkItemError struct {
	ProductID uuid.UUID `json:"product_id"`
	Message   string    `json:"message"`
}

// BulkResult reports per-item outcomes; partial failure is expected.
type BulkResult struct {
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Errors     []BulkItemError `json:"errors,omitempty"`
}

// StatusChangeDTO is one audit history row.
type StatusChangeDTO struct {
	FromStatus enums.ProductStatus `json:"from_status"`
	ToStatus   enums.ProductStatus `json:"to_status"`
	UpdatedBy  string              `json:"updated_by"`
	Notes      *string             `json:"notes,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// PromotionResult reports the outcome of an approved promotion: the frozen
// original and the canonical record the catalog settled on.
type PromotionResult struct {
	Original *catalog.ProductDTO `json:"original"`
	Promoted *catalog.ProductDTO `json:"promoted,omitempty"`
	Created  bool                `json:"created"`
}

// NewStatusChangeDTO maps an audit row to its read shape.
func NewStatusChangeDTO(c *models.ProductStatusChange) StatusChangeDTO {
	return StatusChangeDTO{
		FromStatus: c.FromStatus,
		ToStatus:   c.ToStatus,
		UpdatedBy:  c.UpdatedBy,
		Notes:      c.Notes,
		CreatedAt:  c.CreatedAt,
	}
}
