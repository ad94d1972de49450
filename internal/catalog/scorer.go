package catalog

import (
	"strings"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
)

// Completeness weights. Required fields total 40, barcode 30, images 20,
// description and weight 10.
const (
	weightName        = 15
	weightBrand       = 10
	weightCategory    = 15
	weightBarcode     = 30
	weightImage       = 10
	weightThumbnail   = 5
	weightMedium      = 5
	weightDescription = 5
	weightWeight      = 5

	maxQualityScore = 100
)

// Score computes the 0-100 completeness score for a candidate. The score is
// deterministic over the populated fields and is stored on every write; read
// paths never recompute it.
func Score(c Candidate) int {
	total := 0
	if strings.TrimSpace(c.Name) != "" {
		total += weightName
	}
	if present(c.Brand) {
		total += weightBrand
	}
	if present(c.Category) {
		total += weightCategory
	}
	if present(c.Barcode) {
		total += weightBarcode
	}
	if present(c.ImageURL) {
		total += weightImage
	}
	if present(c.ThumbnailURL) {
		total += weightThumbnail
	}
	if present(c.MediumURL) {
		total += weightMedium
	}
	if present(c.Description) {
		total += weightDescription
	}
	if c.WeightGrams != nil && *c.WeightGrams > 0 {
		total += weightWeight
	}
	if total > maxQualityScore {
		total = maxQualityScore
	}
	return total
}

// ScoreProduct recomputes the score from a stored record, used after field
// updates.
func ScoreProduct(p *models.Product) int {
	return Score(CandidateFromProduct(p))
}

// CandidateFromProduct projects a stored record back into submission shape,
// used for rescoring and promotion.
func CandidateFromProduct(p *models.Product) Candidate {
	return Candidate{
		Name:         p.Name,
		Brand:        p.Brand,
		Category:     p.Category,
		Description:  p.Description,
		Barcode:      p.Barcode,
		ImageHash:    p.ImageHash,
		ImageURL:     p.ImageURL,
		ThumbnailURL: p.ThumbnailURL,
		MediumURL:    p.MediumURL,
		WeightGrams:  p.WeightGrams,
		Tags:         p.Tags,
	}
}

func present(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}
