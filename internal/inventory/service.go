package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/db"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/pagination"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

// Service exposes per-store inventory operations over the shared catalog.
type Service interface {
	AddToInventory(ctx context.Context, principal types.Principal, input AddInput) (*EntryDTO, error)
	Link(ctx context.Context, storeID, productID uuid.UUID, sellingPrice decimal.Decimal, initialStock int) (bool, error)
	UpdateStock(ctx context.Context, principal types.Principal, input StockUpdateInput) (*StockUpdateResult, error)
	RelinkInTx(ctx context.Context, tx *gorm.DB, storeID, fromProductID, toProductID uuid.UUID) error
	RemoveFromInventory(ctx context.Context, principal types.Principal, productID uuid.UUID) error
	ListVisibleProducts(ctx context.Context, principal types.Principal, params pagination.Params) (*VisibleProductsResult, error)
	ListMovements(ctx context.Context, principal types.Principal, productID uuid.UUID, limit int) ([]MovementDTO, error)
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	products productReader
	logg     *logger.Logger
}

// NewService constructs the inventory service.
func NewService(repo *Repository, dbClient *db.Client, products productReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		products: products,
		logg:     logg,
	}, nil
}

// AddToInventory links the principal's store to a product it is allowed to
// see. Adding the same product twice is a state conflict.
func (s *service) AddToInventory(ctx context.Context, principal types.Principal, input AddInput) (*EntryDTO, error) {
	if input.SellingPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling_price must be non-negative")
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_stock must be non-negative")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.VisibleTo(principal.StoreID, principal.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	created, err := s.Link(ctx, principal.StoreID, input.ProductID, input.SellingPrice, input.InitialStock)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product already in inventory")
	}

	entry, err := s.repo.Find(ctx, principal.StoreID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory entry")
	}
	return NewEntryDTO(entry), nil
}

// Link creates the (store, product) entry if absent and bumps the product's
// distinct-store counter in the same transaction. It reports whether a new
// entry was written; an existing link is not an error.
func (s *service) Link(ctx context.Context, storeID, productID uuid.UUID, sellingPrice decimal.Decimal, initialStock int) (bool, error) {
	created := false
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		entry := &models.InventoryEntry{
			StoreID:      storeID,
			ProductID:    productID,
			SellingPrice: sellingPrice,
			CurrentStock: initialStock,
		}
		if initialStock > 0 {
			now := time.Now().UTC()
			entry.LastStockedAt = &now
		}

		wrote, err := txRepo.CreateIfAbsent(ctx, entry)
		if err != nil {
			return err
		}
		if !wrote {
			return nil
		}
		created = true

		if err := txRepo.IncrementProductUsage(ctx, productID, 1); err != nil {
			return err
		}
		if initialStock > 0 {
			movement := &models.StockMovement{
				ID:            uuid.New(),
				StoreID:       storeID,
				ProductID:     productID,
				Delta:         initialStock,
				Reason:        enums.StockMovementRestock,
				PreviousStock: 0,
				NewStock:      initialStock,
			}
			if err := txRepo.CreateMovement(ctx, movement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: link inventory")
	}
	return created, nil
}

// UpdateStock applies one movement through the guarded update so concurrent
// deltas on the same pair are never lost.
func (s *service) UpdateStock(ctx context.Context, principal types.Principal, input StockUpdateInput) (*StockUpdateResult, error) {
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid movement reason")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}

	var result *StockUpdateResult
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		ok, err := txRepo.ApplyStockDelta(ctx, principal.StoreID, input.ProductID, input.Delta, input.Reason.AllowsNegativeStock())
		if err != nil {
			return err
		}
		if !ok {
			if _, findErr := txRepo.Find(ctx, principal.StoreID, input.ProductID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
				}
				return findErr
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "movement would drive stock negative")
		}

		entry, err := txRepo.Find(ctx, principal.StoreID, input.ProductID)
		if err != nil {
			return err
		}

		movement := &models.StockMovement{
			ID:            uuid.New(),
			StoreID:       principal.StoreID,
			ProductID:     input.ProductID,
			Delta:         input.Delta,
			Reason:        input.Reason,
			ReferenceID:   input.ReferenceID,
			PreviousStock: entry.CurrentStock - input.Delta,
			NewStock:      entry.CurrentStock,
		}
		if err := txRepo.CreateMovement(ctx, movement); err != nil {
			return err
		}
		if err := txRepo.TouchMovementTimestamp(ctx, principal.StoreID, input.ProductID, input.Reason); err != nil {
			return err
		}

		result = &StockUpdateResult{
			PreviousStock: movement.PreviousStock,
			NewStock:      movement.NewStock,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update stock")
	}
	return result, nil
}

// RelinkInTx moves a store's entry from one product to another inside a
// caller-owned transaction, carrying the price and stock over. Promotion
// finalization runs this in the same transaction that freezes the original
// record, so the handover and the status flip commit together.
func (s *service) RelinkInTx(ctx context.Context, tx *gorm.DB, storeID, fromProductID, toProductID uuid.UUID) error {
	txRepo := s.repo.WithTx(tx)

	old, err := txRepo.Find(ctx, storeID, fromProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load inventory entry")
	}

	entry := &models.InventoryEntry{
		StoreID:       storeID,
		ProductID:     toProductID,
		SellingPrice:  old.SellingPrice,
		CurrentStock:  old.CurrentStock,
		LastStockedAt: old.LastStockedAt,
		LastSoldAt:    old.LastSoldAt,
	}
	created, err := txRepo.CreateIfAbsent(ctx, entry)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: relink inventory entry")
	}
	if created {
		if err := txRepo.IncrementProductUsage(ctx, toProductID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump usage counter")
		}
	}

	deleted, err := txRepo.Delete(ctx, storeID, fromProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: drop old inventory entry")
	}
	if deleted {
		if err := txRepo.IncrementProductUsage(ctx, fromProductID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: drop usage counter")
		}
	}
	return nil
}

// RemoveFromInventory drops the store's link to a product. The canonical
// record is untouched apart from its usage counter.
func (s *service) RemoveFromInventory(ctx context.Context, principal types.Principal, productID uuid.UUID) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		deleted, err := txRepo.Delete(ctx, principal.StoreID, productID)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")
		}
		return txRepo.IncrementProductUsage(ctx, productID, -1)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: remove inventory entry")
	}
	return nil
}

// ListVisibleProducts pages the catalog as seen by the principal. Both the
// page and the total honor the visibility rule.
func (s *service) ListVisibleProducts(ctx context.Context, principal types.Principal, params pagination.Params) (*VisibleProductsResult, error) {
	query := visibleProductsQuery{
		StoreID: principal.StoreID,
		Admin:   principal.IsAdmin(),
		Params:  params,
	}

	total, err := s.repo.CountVisibleProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count visible products")
	}
	rows, nextCursor, err := s.repo.ListVisibleProducts(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list visible products")
	}

	return &VisibleProductsResult{
		Products:   rows,
		Total:      total,
		NextCursor: nextCursor,
	}, nil
}

// ListMovements returns the principal's audit trail for one product.
func (s *service) ListMovements(ctx context.Context, principal types.Principal, productID uuid.UUID, limit int) ([]MovementDTO, error) {
	rows, err := s.repo.ListMovements(ctx, principal.StoreID, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	dtos := make([]MovementDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewMovementDTO(&rows[i]))
	}
	return dtos, nil
}
