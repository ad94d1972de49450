package importer

import (
	"sync"

	"github.com/shopgrid/catalog-engine/pkg/db/models"
)

// runOutcome accumulates per-item results from the worker pool. Error slots
// are indexed so message order is stable no matter how workers interleave.
type runOutcome struct {
	mu         sync.Mutex
	successful int
	failed     int
	duplicates int
	errorSlots []string
}

func newRunOutcome(total int) *runOutcome {
	return &runOutcome{errorSlots: make([]string, total)}
}

func (o *runOutcome) recordSuccess(duplicate bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successful++
	if duplicate {
		o.duplicates++
	}
}

func (o *runOutcome) recordFailure(index int, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed++
	if index >= 0 && index < len(o.errorSlots) {
		o.errorSlots[index] = message
	}
}

func (o *runOutcome) apply(job *models.ImportJob) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job.Successful = o.successful
	job.Failed = o.failed
	job.DuplicatesFound = o.duplicates
	for _, message := range o.errorSlots {
		if message != "" {
			job.Errors = append(job.Errors, message)
		}
	}
}
