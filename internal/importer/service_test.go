package importer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/config"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

func setupImporterTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	jobs := `
CREATE TABLE IF NOT EXISTS import_jobs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  submitted_by TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'queued',
  total INTEGER NOT NULL DEFAULT 0,
  successful INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  duplicates_found INTEGER NOT NULL DEFAULT 0,
  errors TEXT,
  payload TEXT,
  started_at DATETIME,
  finished_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(jobs).Error)
	return conn
}

// fakeResolver links candidates whose barcode it already knows and fails the
// ones it is told to fail.
type fakeResolver struct {
	mu       sync.Mutex
	existing map[string]uuid.UUID
	failing  map[string]bool
	calls    int
}

func (f *fakeResolver) Resolve(_ context.Context, input catalog.ResolveInput) (*catalog.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.failing[input.Candidate.Name] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	product := &models.Product{
		ID:     uuid.New(),
		Source: enums.ProductSourceGlobalCatalog,
		Name:   input.Candidate.Name,
		Status: input.Status,
	}
	if input.Candidate.Barcode != nil {
		if id, ok := f.existing[*input.Candidate.Barcode]; ok {
			product.ID = id
			return &catalog.Resolution{Product: product, Created: false}, nil
		}
		f.existing[*input.Candidate.Barcode] = product.ID
	}
	return &catalog.Resolution{Product: product, Created: true}, nil
}

type fakeMatcher struct {
	knownBarcodes map[string]uuid.UUID
	calls         int
}

func (f *fakeMatcher) Match(_ context.Context, candidate catalog.Candidate) (*catalog.MatchResult, error) {
	f.calls++
	if candidate.Barcode != nil {
		if id, ok := f.knownBarcodes[*candidate.Barcode]; ok {
			return &catalog.MatchResult{Type: enums.MatchTypeExact, ProductID: &id, Confidence: 1.0}, nil
		}
	}
	return &catalog.MatchResult{Type: enums.MatchTypeNone}, nil
}

type fakeJobState struct {
	mu        sync.Mutex
	progress  map[string]int64
	cancelled map[string]bool
	keys      map[string]bool
}

func newFakeJobState() *fakeJobState {
	return &fakeJobState{
		progress:  map[string]int64{},
		cancelled: map[string]bool{},
		keys:      map[string]bool{},
	}
}

func (f *fakeJobState) BumpImportProgress(_ context.Context, jobID string, delta int64, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[jobID] += delta
	return f.progress[jobID], nil
}

func (f *fakeJobState) ImportProgress(_ context.Context, jobID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress[jobID], nil
}

func (f *fakeJobState) MarkImportCancelled(_ context.Context, jobID string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled[jobID] = true
	return nil
}

func (f *fakeJobState) ImportCancelled(_ context.Context, jobID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled[jobID], nil
}

func (f *fakeJobState) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeJobState) IdempotencyKey(scope, id string) string {
	return "catalog:idempotency:" + scope + ":" + id
}

type importerFixture struct {
	svc      Service
	repo     *Repository
	resolver *fakeResolver
	matcher  *fakeMatcher
	state    *fakeJobState
}

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		Workers:          2,
		ChunkSize:        3,
		ItemTimeout:      time.Second,
		PerItemEstimate:  150 * time.Millisecond,
		JobProgressTTL:   time.Hour,
		CommitIdempotTTL: time.Hour,
	}
}

func newImporterFixture(t *testing.T) *importerFixture {
	t.Helper()
	conn := setupImporterTestDB(t)
	repo := NewRepository(conn)

	resolver := &fakeResolver{existing: map[string]uuid.UUID{}, failing: map[string]bool{}}
	matcher := &fakeMatcher{knownBarcodes: map[string]uuid.UUID{}}
	state := newFakeJobState()

	svc, err := NewService(repo, matcher, resolver, state, testImportConfig(), nil, nil)
	require.NoError(t, err)
	return &importerFixture{svc: svc, repo: repo, resolver: resolver, matcher: matcher, state: state}
}

func importAdmin() types.Principal {
	return types.Principal{StoreID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func strPtr(s string) *string { return &s }

func namedCandidates(names ...string) []catalog.Candidate {
	out := make([]catalog.Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, catalog.Candidate{Name: name})
	}
	return out
}

func TestPreviewCountsExactMatchesAsDuplicates(t *testing.T) {
	f := newImporterFixture(t)
	f.matcher.knownBarcodes["8901234567890"] = uuid.New()

	candidates := namedCandidates("A", "B", "C", "D", "E", "F", "G")
	dup := catalog.Candidate{Name: "Basmati Rice 1kg", Barcode: strPtr("8901234567890")}
	candidates = append(candidates, dup)

	result, err := f.svc.Preview(context.Background(), importAdmin(), candidates)
	require.NoError(t, err)
	assert.Equal(t, 7, result.EstimatedNew)
	assert.Equal(t, 1, result.EstimatedDuplicates)
	assert.Len(t, result.Items, 8)
	assert.Equal(t, enums.MatchTypeExact, result.Items[7].Match.Type)
	assert.Equal(t, int64(8*150), result.EstimatedProcessingTimeMS)

	// Dry run only: nothing went through the coordinator.
	assert.Zero(t, f.resolver.calls)
}

func TestCommitRequiresAdmin(t *testing.T) {
	f := newImporterFixture(t)
	principal := types.Principal{StoreID: uuid.New(), Role: enums.ActorRoleOwner}

	_, err := f.svc.Commit(context.Background(), principal, CommitInput{
		Source:     "supplier-feed",
		Candidates: namedCandidates("A"),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestCommitIdempotencyKeyBlocksResubmission(t *testing.T) {
	f := newImporterFixture(t)
	ctx := context.Background()
	input := CommitInput{
		Source:         "supplier-feed",
		Candidates:     namedCandidates("A", "B"),
		IdempotencyKey: strPtr("batch-42"),
	}

	_, err := f.svc.Commit(ctx, importAdmin(), input)
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, importAdmin(), input)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRunProcessesBatchAndRecordsOutcome(t *testing.T) {
	f := newImporterFixture(t)
	ctx := context.Background()
	admin := importAdmin()

	existingID := uuid.New()
	f.resolver.existing["8901234567890"] = existingID
	f.resolver.failing["Broken Item"] = true

	candidates := []catalog.Candidate{
		{Name: "Fresh Item A", Barcode: strPtr("1110001112223")},
		{Name: "Basmati Rice 1kg", Barcode: strPtr("8901234567890")},
		{Name: "Broken Item"},
		{Name: "Fresh Item B"},
	}
	job, err := f.svc.Commit(ctx, admin, CommitInput{Source: "supplier-feed", Candidates: candidates})
	require.NoError(t, err)
	assert.Equal(t, enums.ImportJobStatusQueued, job.Status)
	assert.Equal(t, 4, job.Total)

	require.NoError(t, f.svc.Run(ctx, job.ID))

	polled, err := f.svc.GetJob(ctx, admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportJobStatusCompleted, polled.Status)
	assert.Equal(t, 3, polled.Successful)
	assert.Equal(t, 1, polled.Failed)
	assert.Equal(t, 1, polled.DuplicatesFound)
	assert.Equal(t, int64(4), polled.Processed)
	require.Len(t, polled.Errors, 1)
	assert.True(t, strings.Contains(polled.Errors[0], "Broken Item"))
	require.NotNil(t, polled.StartedAt)
	require.NotNil(t, polled.FinishedAt)

	progress, err := f.state.ImportProgress(ctx, job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(4), progress)
}

func TestRunRejectsJobThatIsNotQueued(t *testing.T) {
	f := newImporterFixture(t)
	ctx := context.Background()

	job, err := f.svc.Commit(ctx, importAdmin(), CommitInput{Source: "feed", Candidates: namedCandidates("A")})
	require.NoError(t, err)
	require.NoError(t, f.svc.Run(ctx, job.ID))

	err = f.svc.Run(ctx, job.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRunStopsAtChunkBoundaryWhenCancelled(t *testing.T) {
	f := newImporterFixture(t)
	ctx := context.Background()
	admin := importAdmin()

	job, err := f.svc.Commit(ctx, admin, CommitInput{Source: "feed", Candidates: namedCandidates("A", "B", "C", "D")})
	require.NoError(t, err)

	require.NoError(t, f.state.MarkImportCancelled(ctx, job.ID.String(), time.Hour))
	require.NoError(t, f.svc.Run(ctx, job.ID))

	polled, err := f.svc.GetJob(ctx, admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportJobStatusCancelled, polled.Status)
	assert.Zero(t, polled.Successful)
	assert.Zero(t, f.resolver.calls)
}

func TestCancelQueuedJobSettlesImmediately(t *testing.T) {
	f := newImporterFixture(t)
	ctx := context.Background()
	admin := importAdmin()

	job, err := f.svc.Commit(ctx, admin, CommitInput{Source: "feed", Candidates: namedCandidates("A")})
	require.NoError(t, err)

	cancelled, err := f.svc.CancelJob(ctx, admin, job.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ImportJobStatusCancelled, cancelled.Status)

	_, err = f.svc.CancelJob(ctx, admin, job.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
