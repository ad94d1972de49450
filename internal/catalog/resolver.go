package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/metrics"
)

// errResolveRace marks a lost conditional create whose winner could not be
// re-read yet. It stays internal to the retry loop.
var errResolveRace = errors.New("conditional create lost and winner not visible")

type resolverStore interface {
	Create(ctx context.Context, product *models.Product) error
	CreateIfAbsent(ctx context.Context, product *models.Product) (bool, error)
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	FindByImageHash(ctx context.Context, hash string) (*models.Product, error)
}

// ResolveInput is one get-or-create request for the shared catalog.
type ResolveInput struct {
	Candidate    Candidate
	Status       enums.ProductStatus
	ImportSource *string
	SubmittedBy  *string
}

// Resolution reports the canonical record a submission settled on.
type Resolution struct {
	Product *models.Product
	Created bool
}

// Resolver guarantees at most one global product per dedup key under
// concurrent submissions. Writers race on a conditional create; losers link
// to the winner instead of duplicating. No lock spans more than the key in
// play.
type Resolver struct {
	store    resolverStore
	attempts int
	backoff  time.Duration
	metrics  *metrics.CatalogMetrics
	logg     *logger.Logger
}

// NewResolver builds the get-or-create coordinator.
func NewResolver(store resolverStore, attempts int, backoff time.Duration, m *metrics.CatalogMetrics, logg *logger.Logger) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("resolver store required")
	}
	if attempts < 1 {
		return nil, fmt.Errorf("attempts must be at least 1")
	}
	return &Resolver{
		store:    store,
		attempts: attempts,
		backoff:  backoff,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Resolve creates the canonical record for the candidate or returns the
// existing one holding its dedup key. Candidates without any dedup key always
// create a fresh record.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (*Resolution, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid initial status")
	}

	product := buildGlobalProduct(input)

	if !present(input.Candidate.Barcode) && !present(input.Candidate.ImageHash) {
		if err := r.store.Create(ctx, product); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		r.metrics.IncResolve("created")
		return &Resolution{Product: product, Created: true}, nil
	}

	var resolution *Resolution
	backoff := retry.WithMaxRetries(uint64(r.attempts-1), retry.NewConstant(r.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		created, err := r.store.CreateIfAbsent(ctx, product)
		if err != nil {
			return err
		}
		if created {
			resolution = &Resolution{Product: product, Created: true}
			return nil
		}

		// Lost the race. Link to whoever holds the key now.
		r.metrics.IncConflictRetry()
		existing, err := r.reRead(ctx, input.Candidate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return retry.RetryableError(errResolveRace)
			}
			return err
		}
		resolution = &Resolution{Product: existing, Created: false}
		return nil
	})
	if err != nil {
		if errors.Is(err, errResolveRace) {
			r.metrics.IncResolve("conflict")
			if r.logg != nil {
				r.logg.Warn(ctx, "resolve retry budget exhausted")
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "concurrent create race exceeded retry budget")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: conditional create")
	}

	if resolution.Created {
		r.metrics.IncResolve("created")
	} else {
		r.metrics.IncResolve("linked")
	}
	return resolution, nil
}

// reRead loads the race winner through the same dedup indexes the create was
// guarded by.
func (r *Resolver) reRead(ctx context.Context, candidate Candidate) (*models.Product, error) {
	if present(candidate.Barcode) {
		product, err := r.store.FindByBarcode(ctx, *candidate.Barcode)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if present(candidate.ImageHash) {
		return r.store.FindByImageHash(ctx, *candidate.ImageHash)
	}
	return nil, gorm.ErrRecordNotFound
}

func buildGlobalProduct(input ResolveInput) *models.Product {
	c := input.Candidate
	return &models.Product{
		ID:              uuid.New(),
		Source:          enums.ProductSourceGlobalCatalog,
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
		Status:          input.Status,
		PromotionStatus: enums.PromotionStatusNone,
		QualityScore:    Score(c),
		ImportSource:    input.ImportSource,
		LastUpdatedBy:   input.SubmittedBy,
	}
}
