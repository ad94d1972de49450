package importer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// Repository persists import job rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an import job repository over the given connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new job row.
func (r *Repository) Create(ctx context.Context, job *models.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByID loads one job row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Save writes the full job row back.
func (r *Repository) Save(ctx context.Context, job *models.ImportJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// ClaimQueued flips a queued job to running. The guarded update means two
// runners racing on the same job see exactly one winner.
func (r *Repository) ClaimQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, enums.ImportJobStatusQueued).
		Updates(map[string]any{
			"status":     enums.ImportJobStatusRunning,
			"started_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelledIfQueued settles a job that never started.
func (r *Repository) MarkCancelledIfQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, enums.ImportJobStatusQueued).
		Updates(map[string]any{
			"status":      enums.ImportJobStatusCancelled,
			"finished_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// NextQueued returns the oldest job still waiting for a runner.
func (r *Repository) NextQueued(ctx context.Context) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.ImportJobStatusQueued).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}
