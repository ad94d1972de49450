package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/shopgrid/catalog-engine/pkg/enums"
)

// ImportJob tracks one bulk import commit for asynchronous polling.
type ImportJob struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Source      string                `gorm:"column:source;not null"`
	SubmittedBy string                `gorm:"column:submitted_by;not null"`
	Status      enums.ImportJobStatus `gorm:"column:status;not null;default:queued"`

	Total           int `gorm:"column:total;not null;default:0"`
	Successful      int `gorm:"column:successful;not null;default:0"`
	Failed          int `gorm:"column:failed;not null;default:0"`
	DuplicatesFound int `gorm:"column:duplicates_found;not null;default:0"`

	// Errors holds per-item failure messages, one entry per failed candidate.
	Errors pq.StringArray `gorm:"column:errors;type:text[]"`

	// Payload is the submitted candidate list, stored so the job can run
	// asynchronously after the commit request returns.
	Payload []byte `gorm:"column:payload;type:jsonb"`

	StartedAt  *time.Time `gorm:"column:started_at"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
