package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

type fakeIndex struct {
	byBarcode map[string]*models.Product
	byHash    map[string]*models.Product
	rows      []models.Product
}

func (f *fakeIndex) FindByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	if p, ok := f.byBarcode[barcode]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIndex) FindByImageHash(_ context.Context, hash string) (*models.Product, error) {
	if p, ok := f.byHash[hash]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIndex) ListFuzzyCandidates(_ context.Context, _ *string, _ int) ([]models.Product, error) {
	return f.rows, nil
}

func defaultMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		SimilarityThreshold: 0.85,
		MaxCandidates:       500,
		MaxSuggestions:      5,
	}
}

func newTestMatcher(t *testing.T, index *fakeIndex) *Matcher {
	t.Helper()
	m, err := NewMatcher(index, defaultMatchingConfig())
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	return m
}

func TestMatchBarcodeWinsOverEverything(t *testing.T) {
	existing := &models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg"}
	index := &fakeIndex{
		byBarcode: map[string]*models.Product{"8901234567890": existing},
		byHash:    map[string]*models.Product{"abc123": {ID: uuid.New()}},
	}
	m := newTestMatcher(t, index)

	result, err := m.Match(context.Background(), Candidate{
		Name:      "Basmati Rice 1kg",
		Barcode:   strPtr("8901234567890"),
		ImageHash: strPtr("abc123"),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Type != enums.MatchTypeExact {
		t.Fatalf("expected exact match, got %s", result.Type)
	}
	if result.ProductID == nil || *result.ProductID != existing.ID {
		t.Fatalf("expected barcode hit %s, got %v", existing.ID, result.ProductID)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %v", result.Confidence)
	}
}

func TestMatchImageHashWhenBarcodeMisses(t *testing.T) {
	existing := &models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg"}
	index := &fakeIndex{
		byBarcode: map[string]*models.Product{},
		byHash:    map[string]*models.Product{"abc123": existing},
	}
	m := newTestMatcher(t, index)

	result, err := m.Match(context.Background(), Candidate{
		Name:      "Basmati Rice 1kg",
		Barcode:   strPtr("0000000000000"),
		ImageHash: strPtr("abc123"),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Type != enums.MatchTypeExact || result.ProductID == nil || *result.ProductID != existing.ID {
		t.Fatalf("expected image hash exact match, got %+v", result)
	}
}

func TestMatchFuzzyIdenticalName(t *testing.T) {
	existing := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg"}
	m := newTestMatcher(t, &fakeIndex{rows: []models.Product{existing}})

	result, err := m.Match(context.Background(), Candidate{Name: "Basmati Rice 1kg"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Type != enums.MatchTypeFuzzy {
		t.Fatalf("expected fuzzy match, got %s", result.Type)
	}
	if len(result.Candidates) != 1 || result.Candidates[0].ProductID != existing.ID {
		t.Fatalf("unexpected candidates: %+v", result.Candidates)
	}
	if result.Suggestion != enums.MatchSuggestionUseExisting {
		t.Fatalf("expected use_existing suggestion, got %s", result.Suggestion)
	}
}

func TestMatchNearMissNameDoesNotMatch(t *testing.T) {
	existing := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg"}
	m := newTestMatcher(t, &fakeIndex{rows: []models.Product{existing}})

	result, err := m.Match(context.Background(), Candidate{Name: "Bashmati Rice 1kg"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Type != enums.MatchTypeNone {
		t.Fatalf("near-miss name must not fuzzy match, got %s with %+v", result.Type, result.Candidates)
	}
}

func TestMatchBrandDisagreementBlocksMatch(t *testing.T) {
	existing := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg", Brand: strPtr("India Gate")}
	m := newTestMatcher(t, &fakeIndex{rows: []models.Product{existing}})

	result, err := m.Match(context.Background(), Candidate{
		Name:  "Basmati Rice 1kg",
		Brand: strPtr("Daawat"),
	})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if result.Type != enums.MatchTypeNone {
		t.Fatalf("conflicting brands must not match, got %s", result.Type)
	}
}

func TestMatchTieBreaksByUsageThenAge(t *testing.T) {
	older := time.Now().Add(-48 * time.Hour)
	newer := time.Now().Add(-1 * time.Hour)
	popular := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg", StoresUsingCount: 9, CreatedAt: newer}
	early := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg", StoresUsingCount: 3, CreatedAt: older}
	late := models.Product{ID: uuid.New(), Name: "Basmati Rice 1kg", StoresUsingCount: 3, CreatedAt: newer}
	m := newTestMatcher(t, &fakeIndex{rows: []models.Product{late, early, popular}})

	result, err := m.Match(context.Background(), Candidate{Name: "Basmati Rice 1kg"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(result.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(result.Candidates))
	}
	if result.Candidates[0].ProductID != popular.ID {
		t.Fatalf("highest stores_using_count should rank first")
	}
	if result.Candidates[1].ProductID != early.ID {
		t.Fatalf("earlier created_at should break the remaining tie")
	}
}

func TestMatchRequiresName(t *testing.T) {
	m := newTestMatcher(t, &fakeIndex{})
	if _, err := m.Match(context.Background(), Candidate{Name: "   "}); err == nil {
		t.Fatal("expected validation error for blank name")
	}
}
