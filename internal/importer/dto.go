package importer

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// PreviewItem is one candidate's dry-run verdict.
type PreviewItem struct {
	Index int                 `json:"index"`
	Name  string              `json:"name"`
	Match catalog.MatchResult `json:"match"`
}

// PreviewResult summarizes a dry run over a candidate batch. Nothing is
// written; exact matches count as duplicates, everything else as new.
type PreviewResult struct {
	Items                     []PreviewItem `json:"items"`
	EstimatedNew              int           `json:"estimated_new"`
	EstimatedDuplicates       int           `json:"estimated_duplicates"`
	EstimatedProcessingTimeMS int64         `json:"estimated_processing_time_ms"`
}

// CommitInput starts an asynchronous import job. IdempotencyKey guards
// against double submission of the same batch.
type CommitInput struct {
	Source         string
	Candidates     []catalog.Candidate
	IdempotencyKey *string
}

// JobDTO is the poll shape for an import job. Processed comes from the live
// progress counter while the job runs; the row counts are settled on finish.
type JobDTO struct {
	ID              uuid.UUID             `json:"id"`
	Source          string                `json:"source"`
	SubmittedBy     string                `json:"submitted_by"`
	Status          enums.ImportJobStatus `json:"status"`
	Total           int                   `json:"total"`
	Processed       int64                 `json:"processed"`
	Successful      int                   `json:"successful"`
	Failed          int                   `json:"failed"`
	DuplicatesFound int                   `json:"duplicates_found"`
	Errors          []string              `json:"errors,omitempty"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	FinishedAt      *time.Time            `json:"finished_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// NewJobDTO maps a job row to its poll shape.
func NewJobDTO(job *models.ImportJob) *JobDTO {
	if job == nil {
		return nil
	}
	return &JobDTO{
		ID:              job.ID,
		Source:          job.Source,
		SubmittedBy:     job.SubmittedBy,
		Status:          job.Status,
		Total:           job.Total,
		Successful:      job.Successful,
		Failed:          job.Failed,
		DuplicatesFound: job.DuplicatesFound,
		Errors:          job.Errors,
		StartedAt:       job.StartedAt,
		FinishedAt:      job.FinishedAt,
		CreatedAt:       job.CreatedAt,
	}
}
