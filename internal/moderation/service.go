package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/db"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

// Service drives moderation transitions and the promotion workflow.
type Service interface {
	UpdateStatus(ctx context.Context, principal types.Principal, input StatusUpdateInput) (*catalog.ProductDTO, error)
	BulkUpdateStatus(ctx context.Context, principal types.Principal, input BulkStatusUpdateInput) (*BulkResult, error)
	GetStatusHistory(ctx context.Context, principal types.Principal, productID uuid.UUID) ([]StatusChangeDTO, error)
	RequestPromotion(ctx context.Context, principal types.Principal, productID uuid.UUID) (*catalog.ProductDTO, error)
	ApprovePromotion(ctx context.Context, principal types.Principal, productID uuid.UUID, notes *string) (*PromotionResult, error)
	RejectPromotion(ctx context.Context, principal types.Principal, productID uuid.UUID, notes *string) (*catalog.ProductDTO, error)
}

type inventoryRelinker interface {
	RelinkInTx(ctx context.Context, tx *gorm.DB, storeID, fromProductID, toProductID uuid.UUID) error
}

type service struct {
	repo            *catalog.Repository
	dbClient        *db.Client
	resolver        *catalog.Resolver
	inventory       inventoryRelinker
	minQualityScore int
	logg            *logger.Logger
}

// NewService constructs the moderation service.
func NewService(repo *catalog.Repository, dbClient *db.Client, resolver *catalog.Resolver, inventory inventoryRelinker, minQualityScore int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory relinker required")
	}
	if minQualityScore < 0 || minQualityScore > 100 {
		return nil, fmt.Errorf("min quality score must be within 0-100")
	}
	return &service{
		repo:            repo,
		dbClient:        dbClient,
		resolver:        resolver,
		inventory:       inventory,
		minQualityScore: minQualityScore,
		logg:            logg,
	}, nil
}

// UpdateStatus applies one admin transition and appends the audit row.
func (s *service) UpdateStatus(ctx context.Context, principal types.Principal, input StatusUpdateInput) (*catalog.ProductDTO, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "moderation requires the admin role")
	}
	product, err := s.applyTransition(ctx, principal, input.ProductID, input.NewStatus, input.Notes)
	if err != nil {
		return nil, err
	}
	return catalog.NewProductDTO(product), nil
}

// BulkUpdateStatus applies one transition to many records, reporting each
// failure without aborting the batch.
func (s *service) BulkUpdateStatus(ctx context.Context, principal types.Principal, input BulkStatusUpdateInput) (*BulkResult, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "moderation requires the admin role")
	}
	if len(input.ProductIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_ids are required")
	}

	result := &BulkResult{}
	for _, id := range input.ProductIDs {
		if _, err := s.applyTransition(ctx, principal, id, input.NewStatus, input.Notes); err != nil {
			result.Failed++
			message := err.Error()
			if typed := pkgerrors.As(err); typed != nil {
				message = typed.Message()
			}
			result.Errors = append(result.Errors, BulkItemError{ProductID: id, Message: message})
			continue
		}
		result.Successful++
	}
	return result, nil
}

// GetStatusHistory returns the audit trail for a record the principal may
// see.
func (s *service) GetStatusHistory(ctx context.Context, principal types.Principal, productID uuid.UUID) ([]StatusChangeDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.VisibleTo(principal.StoreID, principal.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	rows, err := s.repo.ListStatusHistory(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status history")
	}
	dtos := make([]StatusChangeDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewStatusChangeDTO(&rows[i]))
	}
	return dtos, nil
}

// RequestPromotion is the store-initiated path into the shared catalog,
// gated on the quality score.
func (s *service) RequestPromotion(ctx context.Context, principal types.Principal, productID uuid.UUID) (*catalog.ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsCustom() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only store-private products can be promoted")
	}
	if product.SourceStoreID == nil || *product.SourceStoreID != principal.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another store")
	}
	switch product.PromotionStatus {
	case enums.PromotionStatusNone, enums.PromotionStatusRejected:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion already in progress or settled")
	}
	if product.QualityScore < s.minQualityScore {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quality score below promotion threshold").
			WithDetails(map[string]any{"required": s.minQualityScore, "actual": product.QualityScore})
	}

	product.PromotionStatus = enums.PromotionStatusPendingReview
	updatedBy := principal.StoreID.String()
	product.LastUpdatedBy = &updatedBy
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save promotion request")
	}
	return catalog.NewProductDTO(product), nil
}

// ApprovePromotion routes the custom record through the get-or-create
// coordinator, hands the owner's inventory link to the canonical copy, and
// freezes the original as an audit artifact.
func (s *service) ApprovePromotion(ctx context.Context, principal types.Principal, productID uuid.UUID, notes *string) (*PromotionResult, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "promotion review requires the admin role")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsCustom() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only store-private products can be promoted")
	}
	if product.PromotionStatus != enums.PromotionStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion is not pending review")
	}

	actor := principal.StoreID.String()
	importSource := "promotion"
	resolution, err := s.resolver.Resolve(ctx, catalog.ResolveInput{
		Candidate:    catalog.CandidateFromProduct(product),
		Status:       enums.ProductStatusVerified,
		ImportSource: &importSource,
		SubmittedBy:  &actor,
	})
	if err != nil {
		return nil, err
	}

	// The inventory handover and the freeze of the original commit together;
	// a failed finalize must not leave the owner linked to the canonical copy
	// while the review still reads pending.
	fromStatus := product.Status
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if product.SourceStoreID != nil {
			if err := s.inventory.RelinkInTx(ctx, tx, *product.SourceStoreID, product.ID, resolution.Product.ID); err != nil {
				// The owner may have dropped the entry already; promotion
				// still stands.
				if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
					return err
				}
			}
		}

		txRepo := s.repo.WithTx(tx)

		product.Status = enums.ProductStatusPromoted
		product.PromotionStatus = enums.PromotionStatusPromoted
		product.PromotedProductID = &resolution.Product.ID
		product.LastUpdatedBy = &actor
		if notes != nil {
			product.AdminNotes = notes
		}
		if err := txRepo.Save(ctx, product); err != nil {
			return err
		}
		return txRepo.AppendStatusChange(ctx, &models.ProductStatusChange{
			ID:         uuid.New(),
			ProductID:  product.ID,
			FromStatus: fromStatus,
			ToStatus:   enums.ProductStatusPromoted,
			UpdatedBy:  actor,
			Notes:      notes,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: finalize promotion")
	}

	return &PromotionResult{
		Original: catalog.NewProductDTO(product),
		Promoted: catalog.NewProductDTO(resolution.Product),
		Created:  resolution.Created,
	}, nil
}

// RejectPromotion settles a pending review without touching the catalog.
func (s *service) RejectPromotion(ctx context.Context, principal types.Principal, productID uuid.UUID, notes *string) (*catalog.ProductDTO, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "promotion review requires the admin role")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.PromotionStatus != enums.PromotionStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion is not pending review")
	}

	product.PromotionStatus = enums.PromotionStatusRejected
	actor := principal.StoreID.String()
	product.LastUpdatedBy = &actor
	if notes != nil {
		product.AdminNotes = notes
	}
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save promotion rejection")
	}
	return catalog.NewProductDTO(product), nil
}

func (s *service) applyTransition(ctx context.Context, principal types.Principal, productID uuid.UUID, newStatus enums.ProductStatus, notes *string) (*models.Product, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(product.Status, newStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{"from": product.Status, "to": newStatus})
	}

	fromStatus := product.Status
	actor := principal.StoreID.String()
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		product.Status = newStatus
		product.LastUpdatedBy = &actor
		if notes != nil {
			product.AdminNotes = notes
		}
		if err := txRepo.Save(ctx, product); err != nil {
			return err
		}
		return txRepo.AppendStatusChange(ctx, &models.ProductStatusChange{
			ID:         uuid.New(),
			ProductID:  product.ID,
			FromStatus: fromStatus,
			ToStatus:   newStatus,
			UpdatedBy:  actor,
			Notes:      notes,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update status")
	}
	return product, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
