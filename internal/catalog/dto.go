package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// Candidate is a product submission before it is resolved against the catalog.
type Candidate struct {
	Name         string
	Brand        *string
	Category     *string
	Description  *string
	Barcode      *string
	ImageHash    *string
	ImageURL     *string
	ThumbnailURL *string
	MediumURL    *string
	WeightGrams  *float64
	Tags         []string
}

// FuzzyCandidate is one ranked suggestion from the matching engine.
type FuzzyCandidate struct {
	ProductID        uuid.UUID `json:"product_id"`
	Name             string    `json:"name"`
	Similarity       float64   `json:"similarity"`
	StoresUsingCount int       `json:"stores_using_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// MatchResult is the matching engine's verdict for a candidate.
type MatchResult struct {
	Type       enums.MatchType       `json:"type"`
	ProductID  *uuid.UUID            `json:"product_id,omitempty"`
	Confidence float64               `json:"confidence"`
	Candidates []FuzzyCandidate      `json:"candidates,omitempty"`
	Suggestion enums.MatchSuggestion `json:"suggestion,omitempty"`
}

// SubmissionInput carries a store submission plus its inventory terms. Decision
// resolves a previously surfaced fuzzy suggestion; it is empty on first submit.
type SubmissionInput struct {
	Candidate    Candidate
	SellingPrice decimal.Decimal
	InitialStock int

	Decision     enums.MatchSuggestion
	UseProductID *uuid.UUID
}

// SubmissionResult reports how a submission was settled. When the matcher
// returns fuzzy suggestions and no decision was supplied, nothing is written
// and NeedsConfirmation is set.
type SubmissionResult struct {
	Match             MatchResult `json:"match"`
	Product           *ProductDTO `json:"product,omitempty"`
	Created           bool        `json:"created"`
	NeedsConfirmation bool        `json:"needs_confirmation"`
}

// CustomProductInput creates a store-private product.
type CustomProductInput struct {
	Candidate    Candidate
	SellingPrice decimal.Decimal
	InitialStock int
}

// CustomProductUpdate holds optional mutation values for a custom product.
type CustomProductUpdate struct {
	Name         *string
	Brand        *string
	Category     *string
	Description  *string
	Barcode      *string
	ImageHash    *string
	ImageURL     *string
	ThumbnailURL *string
	MediumURL    *string
	WeightGrams  *float64
	Tags         *[]string
}

// ProductDTO is the read shape for catalog records.
type ProductDTO struct {
	ID               uuid.UUID             `json:"id"`
	Source           enums.ProductSource   `json:"product_source"`
	SourceStoreID    *uuid.UUID            `json:"source_store_id,omitempty"`
	Barcode          *string               `json:"barcode,omitempty"`
	ImageHash        *string               `json:"image_hash,omitempty"`
	Name             string                `json:"name"`
	Brand            *string               `json:"brand,omitempty"`
	Category         *string               `json:"category,omitempty"`
	Description      *string               `json:"description,omitempty"`
	WeightGrams      *float64              `json:"weight_grams,omitempty"`
	Tags             []string              `json:"tags,omitempty"`
	ImageURL         *string               `json:"image_url,omitempty"`
	ThumbnailURL     *string               `json:"thumbnail_url,omitempty"`
	MediumURL        *string               `json:"medium_url,omitempty"`
	Status           enums.ProductStatus   `json:"status"`
	PromotionStatus  enums.PromotionStatus `json:"promotion_status"`
	QualityScore     int                   `json:"quality_score"`
	StoresUsingCount int                   `json:"stores_using_count"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// ProductListResult is one cursor page of catalog records.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// NewProductDTO maps a product row to its read shape.
func NewProductDTO(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:               p.ID,
		Source:           p.Source,
		SourceStoreID:    p.SourceStoreID,
		Barcode:          p.Barcode,
		ImageHash:        p.ImageHash,
		Name:             p.Name,
		Brand:            p.Brand,
		Category:         p.Category,
		Description:      p.Description,
		WeightGrams:      p.WeightGrams,
		Tags:             p.Tags,
		ImageURL:         p.ImageURL,
		ThumbnailURL:     p.ThumbnailURL,
		MediumURL:        p.MediumURL,
		Status:           p.Status,
		PromotionStatus:  p.PromotionStatus,
		QualityScore:     p.QualityScore,
		StoresUsingCount: p.StoresUsingCount,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
