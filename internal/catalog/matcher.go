package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
)

// Similarity blend. Name overlap dominates; brand and category only nudge a
// borderline name match over the line. An identical name with neither brand
// nor category on either side lands exactly on the default 0.85 threshold.
const (
	nameWeight     = 0.7
	brandWeight    = 0.2
	categoryWeight = 0.1
)

type catalogIndex interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	FindByImageHash(ctx context.Context, hash string) (*models.Product, error)
	ListFuzzyCandidates(ctx context.Context, category *string, limit int) ([]models.Product, error)
}

// Matcher decides whether a candidate submission refers to an existing
// catalog record. Barcode wins over image hash, both win over fuzzy name
// similarity, and fuzzy hits are only ever surfaced as suggestions.
type Matcher struct {
	index          catalogIndex
	threshold      float64
	maxCandidates  int
	maxSuggestions int
}

// NewMatcher builds a matcher over the provided index.
func NewMatcher(index catalogIndex, cfg config.MatchingConfig) (*Matcher, error) {
	if index == nil {
		return nil, fmt.Errorf("catalog index required")
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("similarity threshold must be in (0, 1]")
	}
	return &Matcher{
		index:          index,
		threshold:      cfg.SimilarityThreshold,
		maxCandidates:  cfg.MaxCandidates,
		maxSuggestions: cfg.MaxSuggestions,
	}, nil
}

// Match runs the exact-then-fuzzy decision chain. It never mutates the
// catalog.
func (m *Matcher) Match(ctx context.Context, candidate Candidate) (*MatchResult, error) {
	if strings.TrimSpace(candidate.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if present(candidate.Barcode) {
		product, err := m.index.FindByBarcode(ctx, strings.TrimSpace(*candidate.Barcode))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by barcode")
		}
		if product != nil {
			return exactMatch(product.ID), nil
		}
	}

	if present(candidate.ImageHash) {
		product, err := m.index.FindByImageHash(ctx, strings.TrimSpace(*candidate.ImageHash))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by image hash")
		}
		if product != nil {
			return exactMatch(product.ID), nil
		}
	}

	suggestions, err := m.fuzzyCandidates(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return &MatchResult{Type: enums.MatchTypeNone}, nil
	}

	return &MatchResult{
		Type:       enums.MatchTypeFuzzy,
		Confidence: suggestions[0].Similarity,
		Candidates: suggestions,
		Suggestion: enums.MatchSuggestionUseExisting,
	}, nil
}

func (m *Matcher) fuzzyCandidates(ctx context.Context, candidate Candidate) ([]FuzzyCandidate, error) {
	rows, err := m.index.ListFuzzyCandidates(ctx, candidate.Category, m.maxCandidates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fuzzy candidates")
	}

	tokens := nameTokens(candidate.Name)
	matches := make([]FuzzyCandidate, 0, m.maxSuggestions)
	for i := range rows {
		row := &rows[i]
		sim := similarity(tokens, candidate, row)
		if sim < m.threshold {
			continue
		}
		matches = append(matches, FuzzyCandidate{
			ProductID:        row.ID,
			Name:             row.Name,
			Similarity:       sim,
			StoresUsingCount: row.StoresUsingCount,
			CreatedAt:        row.CreatedAt,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].StoresUsingCount != matches[j].StoresUsingCount {
			return matches[i].StoresUsingCount > matches[j].StoresUsingCount
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	if m.maxSuggestions > 0 && len(matches) > m.maxSuggestions {
		matches = matches[:m.maxSuggestions]
	}
	return matches, nil
}

func exactMatch(id uuid.UUID) *MatchResult {
	return &MatchResult{
		Type:       enums.MatchTypeExact,
		ProductID:  &id,
		Confidence: 1.0,
	}
}

// similarity blends token overlap on the normalized name with brand and
// category agreement. Agreement on an absent-on-both-sides field scores a
// neutral 0.5 so sparse records are not penalized into never matching.
func similarity(candidateTokens []string, candidate Candidate, row *models.Product) float64 {
	name := jaccard(candidateTokens, nameTokens(row.Name))
	brand := fieldAgreement(candidate.Brand, row.Brand)
	category := fieldAgreement(candidate.Category, row.Category)
	return nameWeight*name + brandWeight*brand + categoryWeight*category
}

func fieldAgreement(a, b *string) float64 {
	aHas, bHas := present(a), present(b)
	switch {
	case !aHas && !bHas:
		return 0.5
	case aHas != bHas:
		return 0
	case strings.EqualFold(strings.TrimSpace(*a), strings.TrimSpace(*b)):
		return 1
	default:
		return 0
	}
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, tok := range a {
		set[tok] = struct{}{}
	}
	union := len(set)
	shared := 0
	for _, tok := range b {
		if _, ok := set[tok]; ok {
			shared++
			delete(set, tok)
			continue
		}
		union++
	}
	return float64(shared) / float64(union)
}

// nameTokens lowercases and splits a product name, treating punctuation as
// separators.
func nameTokens(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, name)
	return strings.Fields(cleaned)
}
