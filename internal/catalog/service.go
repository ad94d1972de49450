package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/pagination"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

// Service exposes catalog submission, custom product management, and reads.
type Service interface {
	Submit(ctx context.Context, principal types.Principal, input SubmissionInput) (*SubmissionResult, error)
	CreateCustomProduct(ctx context.Context, principal types.Principal, input CustomProductInput) (*ProductDTO, error)
	UpdateCustomProduct(ctx context.Context, principal types.Principal, productID uuid.UUID, input CustomProductUpdate) (*ProductDTO, error)
	GetProduct(ctx context.Context, principal types.Principal, productID uuid.UUID) (*ProductDTO, error)
	ListByStatus(ctx context.Context, principal types.Principal, status enums.ProductStatus, params pagination.Params) (*ProductListResult, error)
}

type storeLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type inventoryLinker interface {
	Link(ctx context.Context, storeID, productID uuid.UUID, sellingPrice decimal.Decimal, initialStock int) (bool, error)
}

type service struct {
	repo      *Repository
	matcher   *Matcher
	resolver  *Resolver
	stores    storeLoader
	inventory inventoryLinker
	logg      *logger.Logger
}

// NewService constructs the catalog service.
func NewService(repo *Repository, matcher *Matcher, resolver *Resolver, stores storeLoader, inventory inventoryLinker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("matcher required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory linker required")
	}
	return &service{
		repo:      repo,
		matcher:   matcher,
		resolver:  resolver,
		stores:    stores,
		inventory: inventory,
		logg:      logg,
	}, nil
}

// Submit runs one store submission through match, get-or-create, and
// inventory linking. Fuzzy suggestions are returned without any write until
// the caller decides.
func (s *service) Submit(ctx context.Context, principal types.Principal, input SubmissionInput) (*SubmissionResult, error) {
	if err := validateCandidate(input.Candidate); err != nil {
		return nil, err
	}
	if err := validateInventoryTerms(input.SellingPrice, input.InitialStock); err != nil {
		return nil, err
	}
	if err := s.ensureActiveStore(ctx, principal.StoreID); err != nil {
		return nil, err
	}

	// A confirmed use_existing decision bypasses matching entirely.
	if input.Decision == enums.MatchSuggestionUseExisting {
		if input.UseProductID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "use_product_id is required to confirm use_existing")
		}
		return s.linkExisting(ctx, principal, *input.UseProductID, input.SellingPrice, input.InitialStock)
	}

	match, err := s.matcher.Match(ctx, input.Candidate)
	if err != nil {
		return nil, err
	}

	switch match.Type {
	case enums.MatchTypeExact:
		result, err := s.linkExisting(ctx, principal, *match.ProductID, input.SellingPrice, input.InitialStock)
		if err != nil {
			return nil, err
		}
		result.Match = *match
		return result, nil

	case enums.MatchTypeFuzzy:
		if input.Decision != enums.MatchSuggestionCreateNew {
			return &SubmissionResult{Match: *match, NeedsConfirmation: true}, nil
		}
		// Confirmed create_new falls through to resolve. Exact keys still
		// dedup there; only the fuzzy suggestion is overridden.
	}

	submittedBy := principal.StoreID.String()
	resolution, err := s.resolver.Resolve(ctx, ResolveInput{
		Candidate:   input.Candidate,
		Status:      enums.ProductStatusPending,
		SubmittedBy: &submittedBy,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.inventory.Link(ctx, principal.StoreID, resolution.Product.ID, input.SellingPrice, input.InitialStock); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, resolution.Product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}

	return &SubmissionResult{
		Match:   *match,
		Product: NewProductDTO(product),
		Created: resolution.Created,
	}, nil
}

func (s *service) linkExisting(ctx context.Context, principal types.Principal, productID uuid.UUID, price decimal.Decimal, stock int) (*SubmissionResult, error) {
	product, err := s.loadVisible(ctx, principal, productID)
	if err != nil {
		return nil, err
	}
	if product.IsCustom() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot link to a store-private product")
	}

	if _, err := s.inventory.Link(ctx, principal.StoreID, product.ID, price, stock); err != nil {
		return nil, err
	}

	reloaded, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}

	id := reloaded.ID
	return &SubmissionResult{
		Match:   MatchResult{Type: enums.MatchTypeExact, ProductID: &id, Confidence: 1.0},
		Product: NewProductDTO(reloaded),
	}, nil
}

// CreateCustomProduct creates a store-private record outside the dedup
// indexes and links the owner's inventory to it.
func (s *service) CreateCustomProduct(ctx context.Context, principal types.Principal, input CustomProductInput) (*ProductDTO, error) {
	if err := validateCandidate(input.Candidate); err != nil {
		return nil, err
	}
	if err := validateInventoryTerms(input.SellingPrice, input.InitialStock); err != nil {
		return nil, err
	}
	if err := s.ensureActiveStore(ctx, principal.StoreID); err != nil {
		return nil, err
	}

	c := input.Candidate
	storeID := principal.StoreID
	updatedBy := storeID.String()
	product := &models.Product{
		ID:              uuid.New(),
		Source:          enums.ProductSourceStoreCustom,
		SourceStoreID:   &storeID,
		Barcode:         c.Barcode,
		ImageHash:       c.ImageHash,
		Name:            c.Name,
		Brand:           c.Brand,
		Category:        c.Category,
		Description:     c.Description,
		WeightGrams:     c.WeightGrams,
		Tags:            pq.StringArray(c.Tags),
		ImageURL:        c.ImageURL,
		ThumbnailURL:    c.ThumbnailURL,
		MediumURL:       c.MediumURL,
		Status:          enums.ProductStatusCommunity,
		PromotionStatus: enums.PromotionStatusNone,
		QualityScore:    Score(c),
		LastUpdatedBy:   &updatedBy,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert custom product")
	}

	if _, err := s.inventory.Link(ctx, principal.StoreID, product.ID, input.SellingPrice, input.InitialStock); err != nil {
		return nil, err
	}

	reloaded, err := s.repo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return NewProductDTO(reloaded), nil
}

// UpdateCustomProduct mutates a store-private record. Only the owning store
// may do this; promoted originals are frozen as audit artifacts.
func (s *service) UpdateCustomProduct(ctx context.Context, principal types.Principal, productID uuid.UUID, input CustomProductUpdate) (*ProductDTO, error) {
	product, err := s.loadVisible(ctx, principal, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsCustom() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only store-private products can be edited here")
	}
	if product.SourceStoreID == nil || *product.SourceStoreID != principal.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another store")
	}
	if product.PromotionStatus == enums.PromotionStatusPromoted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promoted products are retained read-only")
	}

	applyCustomUpdate(product, input)
	if strings.TrimSpace(product.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	product.QualityScore = ScoreProduct(product)
	updatedBy := principal.StoreID.String()
	product.LastUpdatedBy = &updatedBy

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save custom product")
	}
	return NewProductDTO(product), nil
}

// GetProduct loads a record the principal is allowed to see. Records outside
// the principal's visibility read as absent.
func (s *service) GetProduct(ctx context.Context, principal types.Principal, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadVisible(ctx, principal, productID)
	if err != nil {
		return nil, err
	}
	return NewProductDTO(product), nil
}

// ListByStatus pages through catalog records in a moderation status. Custom
// rows owned by other stores are filtered out before the page is built.
func (s *service) ListByStatus(ctx context.Context, principal types.Principal, status enums.ProductStatus, params pagination.Params) (*ProductListResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	query := listByStatusQuery{Status: status, Params: params}
	if !principal.IsAdmin() {
		storeID := principal.StoreID
		query.VisibleToStore = &storeID
	}

	rows, nextCursor, err := s.repo.ListByStatus(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewProductDTO(&rows[i]))
	}
	return &ProductListResult{Products: dtos, NextCursor: nextCursor}, nil
}

func (s *service) loadVisible(ctx context.Context, principal types.Principal, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.VisibleTo(principal.StoreID, principal.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ensureActiveStore(ctx context.Context, storeID uuid.UUID) error {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if !store.IsActive {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store is not active")
	}
	return nil
}

func validateCandidate(c Candidate) error {
	if strings.TrimSpace(c.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if c.WeightGrams != nil && *c.WeightGrams < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "weight_grams must be non-negative")
	}
	return nil
}

func validateInventoryTerms(price decimal.Decimal, stock int) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "selling_price must be non-negative")
	}
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "initial_stock must be non-negative")
	}
	return nil
}

func applyCustomUpdate(product *models.Product, input CustomProductUpdate) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Barcode != nil {
		product.Barcode = input.Barcode
	}
	if input.ImageHash != nil {
		product.ImageHash = input.ImageHash
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.ThumbnailURL != nil {
		product.ThumbnailURL = input.ThumbnailURL
	}
	if input.MediumURL != nil {
		product.MediumURL = input.MediumURL
	}
	if input.WeightGrams != nil {
		product.WeightGrams = input.WeightGrams
	}
	if input.Tags != nil {
		product.Tags = append(pq.StringArray(nil), *input.Tags...)
	}
}
