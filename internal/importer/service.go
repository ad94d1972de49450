package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/metrics"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

// Service runs the bulk import pipeline: read-only previews, asynchronous
// commits over a bounded worker pool, polling and cancellation.
type Service interface {
	Preview(ctx context.Context, principal types.Principal, candidates []catalog.Candidate) (*PreviewResult, error)
	Commit(ctx context.Context, principal types.Principal, input CommitInput) (*JobDTO, error)
	Run(ctx context.Context, jobID uuid.UUID) error
	GetJob(ctx context.Context, principal types.Principal, jobID uuid.UUID) (*JobDTO, error)
	CancelJob(ctx context.Context, principal types.Principal, jobID uuid.UUID) (*JobDTO, error)
}

type candidateMatcher interface {
	Match(ctx context.Context, candidate catalog.Candidate) (*catalog.MatchResult, error)
}

type candidateResolver interface {
	Resolve(ctx context.Context, input catalog.ResolveInput) (*catalog.Resolution, error)
}

// jobState is the redis surface the pipeline needs: live progress counters,
// the cancellation flag, and commit idempotency.
type jobState interface {
	BumpImportProgress(ctx context.Context, jobID string, delta int64, ttl time.Duration) (int64, error)
	ImportProgress(ctx context.Context, jobID string) (int64, error)
	MarkImportCancelled(ctx context.Context, jobID string, ttl time.Duration) error
	ImportCancelled(ctx context.Context, jobID string) (bool, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
}

type service struct {
	repo     *Repository
	matcher  candidateMatcher
	resolver candidateResolver
	state    jobState
	cfg      config.ImportConfig
	metrics  *metrics.CatalogMetrics
	logg     *logger.Logger
}

// NewService constructs the import service.
func NewService(repo *Repository, matcher candidateMatcher, resolver candidateResolver, state jobState, cfg config.ImportConfig, m *metrics.CatalogMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("import repository required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("matcher required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if state == nil {
		return nil, fmt.Errorf("job state store required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("worker pool size must be at least 1")
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be at least 1")
	}
	return &service{
		repo:     repo,
		matcher:  matcher,
		resolver: resolver,
		state:    state,
		cfg:      cfg,
		metrics:  m,
		logg:     logg,
	}, nil
}

// Preview runs the batch through the matching engine without writing
// anything. Exact hits are counted as duplicates a commit would link.
func (s *service) Preview(ctx context.Context, principal types.Principal, candidates []catalog.Candidate) (*PreviewResult, error) {
	if len(candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidates are required")
	}

	result := &PreviewResult{
		Items: make([]PreviewItem, 0, len(candidates)),
	}
	for i, candidate := range candidates {
		match, err := s.matcher.Match(ctx, candidate)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, PreviewItem{Index: i, Name: candidate.Name, Match: *match})
		if match.Type == enums.MatchTypeExact {
			result.EstimatedDuplicates++
		} else {
			result.EstimatedNew++
		}
	}
	result.EstimatedProcessingTimeMS = (time.Duration(len(candidates)) * s.cfg.PerItemEstimate).Milliseconds()
	return result, nil
}

// Commit persists the batch as a queued job and returns immediately; a
// runner picks the job up and callers poll by id.
func (s *service) Commit(ctx context.Context, principal types.Principal, input CommitInput) (*JobDTO, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bulk import requires the admin role")
	}
	if strings.TrimSpace(input.Source) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source is required")
	}
	if len(input.Candidates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidates are required")
	}

	jobID := uuid.New()
	if input.IdempotencyKey != nil && strings.TrimSpace(*input.IdempotencyKey) != "" {
		key := s.state.IdempotencyKey("import-commit", *input.IdempotencyKey)
		fresh, err := s.state.SetNX(ctx, key, jobID.String(), s.cfg.CommitIdempotTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: reserve idempotency key")
		}
		if !fresh {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "batch already committed")
		}
	}

	payload, err := json.Marshal(input.Candidates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode candidates")
	}

	job := &models.ImportJob{
		ID:          jobID,
		Source:      strings.TrimSpace(input.Source),
		SubmittedBy: principal.StoreID.String(),
		Status:      enums.ImportJobStatusQueued,
		Total:       len(input.Candidates),
		Payload:     payload,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create import job")
	}
	return NewJobDTO(job), nil
}

// Run executes one queued job to completion. Candidates go through the
// get-or-create path concurrently up to the pool size; the cancellation flag
// is honored between chunks, never mid-item.
func (s *service) Run(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := s.repo.ClaimQueued(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: claim import job")
	}
	if !claimed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "import job is not queued")
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load import job")
	}

	var candidates []catalog.Candidate
	if err := json.Unmarshal(job.Payload, &candidates); err != nil {
		job.Status = enums.ImportJobStatusFailed
		job.Errors = append(job.Errors, fmt.Sprintf("decode payload: %v", err))
		return s.finalize(ctx, job, time.Now())
	}

	started := time.Now()
	outcome := newRunOutcome(len(candidates))

	for offset := 0; offset < len(candidates); offset += s.cfg.ChunkSize {
		cancelled, err := s.state.ImportCancelled(ctx, job.ID.String())
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithJobID(ctx, job.ID.String()), "import cancellation check failed")
		}
		if cancelled {
			job.Status = enums.ImportJobStatusCancelled
			outcome.apply(job)
			return s.finalize(ctx, job, started)
		}

		end := offset + s.cfg.ChunkSize
		if end > len(candidates) {
			end = len(candidates)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Workers)
		for i := offset; i < end; i++ {
			index := i
			candidate := candidates[i]
			g.Go(func() error {
				s.processItem(gctx, job, index, candidate, outcome)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			break
		}
	}

	job.Status = enums.ImportJobStatusCompleted
	outcome.apply(job)
	return s.finalize(ctx, job, started)
}

// GetJob returns the poll shape, merging the live progress counter while the
// job is still running.
func (s *service) GetJob(ctx context.Context, principal types.Principal, jobID uuid.UUID) (*JobDTO, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bulk import requires the admin role")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	dto := NewJobDTO(job)
	switch job.Status {
	case enums.ImportJobStatusRunning:
		processed, err := s.state.ImportProgress(ctx, job.ID.String())
		if err == nil {
			dto.Processed = processed
		}
	case enums.ImportJobStatusCompleted, enums.ImportJobStatusCancelled, enums.ImportJobStatusFailed:
		dto.Processed = int64(job.Successful + job.Failed)
	}
	return dto, nil
}

// CancelJob raises the cancellation flag. A queued job settles immediately;
// a running job stops at its next chunk boundary.
func (s *service) CancelJob(ctx context.Context, principal types.Principal, jobID uuid.UUID) (*JobDTO, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bulk import requires the admin role")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "import job already finished")
	}

	if err := s.state.MarkImportCancelled(ctx, job.ID.String(), s.cfg.JobProgressTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: mark import cancelled")
	}
	if job.Status == enums.ImportJobStatusQueued {
		if _, err := s.repo.MarkCancelledIfQueued(ctx, job.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel queued job")
		}
	}

	job, err = s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return NewJobDTO(job), nil
}

func (s *service) processItem(ctx context.Context, job *models.ImportJob, index int, candidate catalog.Candidate, outcome *runOutcome) {
	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	resolution, err := s.resolver.Resolve(itemCtx, catalog.ResolveInput{
		Candidate:    candidate,
		Status:       enums.ProductStatusAdminCreated,
		ImportSource: &job.Source,
		SubmittedBy:  &job.SubmittedBy,
	})
	if err != nil {
		outcome.recordFailure(index, fmt.Sprintf("item %d (%s): %v", index, candidate.Name, itemError(err)))
		s.metrics.IncImportItem("failed")
	} else if resolution.Created {
		outcome.recordSuccess(false)
		s.metrics.IncImportItem("created")
	} else {
		outcome.recordSuccess(true)
		s.metrics.IncImportItem("linked")
	}

	if _, err := s.state.BumpImportProgress(ctx, job.ID.String(), 1, s.cfg.JobProgressTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithJobID(ctx, job.ID.String()), "import progress bump failed")
	}
}

func (s *service) finalize(ctx context.Context, job *models.ImportJob, started time.Time) error {
	now := time.Now().UTC()
	job.FinishedAt = &now
	if err := s.repo.Save(ctx, job); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: finalize import job")
	}
	s.metrics.ObserveImportDuration(job.Source, time.Since(started))
	return nil
}

func (s *service) loadJob(ctx context.Context, jobID uuid.UUID) (*models.ImportJob, error) {
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load import job")
	}
	return job, nil
}

func itemError(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
