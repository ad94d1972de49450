package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/db"
	"github.com/shopgrid/catalog-engine/pkg/db/models"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/types"
)

func setupModerationTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  product_source TEXT NOT NULL DEFAULT 'global_catalog',
  source_store_id TEXT,
  barcode TEXT,
  image_hash TEXT,
  name TEXT NOT NULL,
  brand TEXT,
  category TEXT,
  description TEXT,
  weight_grams REAL,
  tags TEXT,
  image_url TEXT,
  thumbnail_url TEXT,
  medium_url TEXT,
  status TEXT NOT NULL,
  promotion_status TEXT NOT NULL DEFAULT 'none',
  promoted_product_id TEXT,
  quality_score INTEGER NOT NULL DEFAULT 0,
  import_source TEXT,
  last_updated_by TEXT,
  admin_notes TEXT,
  stores_using_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	barcodeIndex := `
CREATE UNIQUE INDEX IF NOT EXISTS uq_products_barcode
  ON products (barcode)
  WHERE barcode IS NOT NULL AND product_source = 'global_catalog';`
	statusChanges := `
CREATE TABLE IF NOT EXISTS product_status_changes (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  updated_by TEXT NOT NULL,
  notes TEXT,
  created_at DATETIME
);`
	require.NoError(t, conn.Exec(products).Error)
	require.NoError(t, conn.Exec(barcodeIndex).Error)
	require.NoError(t, conn.Exec(statusChanges).Error)
	return conn
}

type relinkCall struct {
	StoreID uuid.UUID
	From    uuid.UUID
	To      uuid.UUID
}

type fakeRelinker struct {
	calls []relinkCall
	err   error
}

// RelinkInTx mimics the real handover's usage-counter write through the
// caller's transaction so rollback behavior is observable in tests.
func (f *fakeRelinker) RelinkInTx(_ context.Context, tx *gorm.DB, storeID, fromProductID, toProductID uuid.UUID) error {
	f.calls = append(f.calls, relinkCall{StoreID: storeID, From: fromProductID, To: toProductID})
	if err := tx.Exec("UPDATE products SET stores_using_count = stores_using_count + 1 WHERE id = ?", toProductID).Error; err != nil {
		return err
	}
	return f.err
}

type moderationFixture struct {
	svc      Service
	repo     *catalog.Repository
	relinker *fakeRelinker
	db       *gorm.DB
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	conn := setupModerationTestDB(t)
	repo := catalog.NewRepository(conn)

	resolver, err := catalog.NewResolver(repo, 3, time.Millisecond, nil, nil)
	require.NoError(t, err)

	relinker := &fakeRelinker{}
	svc, err := NewService(repo, db.FromGorm(conn), resolver, relinker, 60, nil)
	require.NoError(t, err)

	return &moderationFixture{svc: svc, repo: repo, relinker: relinker, db: conn}
}

func owner(storeID uuid.UUID) types.Principal {
	return types.Principal{StoreID: storeID, Role: enums.ActorRoleOwner}
}

func admin() types.Principal {
	return types.Principal{StoreID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func strPtr(s string) *string { return &s }

func seedGlobalProduct(t *testing.T, f *moderationFixture, name string, status enums.ProductStatus) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:     uuid.New(),
		Source: enums.ProductSourceGlobalCatalog,
		Name:   name,
		Status: status,
	}
	require.NoError(t, f.repo.Create(context.Background(), p))
	return p
}

func seedCustomProduct(t *testing.T, f *moderationFixture, storeID uuid.UUID, name string, score int) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:            uuid.New(),
		Source:        enums.ProductSourceStoreCustom,
		SourceStoreID: &storeID,
		Name:          name,
		Status:        enums.ProductStatusCommunity,
		QualityScore:  score,
	}
	require.NoError(t, f.repo.Create(context.Background(), p))
	return p
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected a typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestUpdateStatusRequiresAdmin(t *testing.T) {
	f := newModerationFixture(t)
	p := seedGlobalProduct(t, f, "Basmati Rice 1kg", enums.ProductStatusPending)

	_, err := f.svc.UpdateStatus(context.Background(), owner(uuid.New()), StatusUpdateInput{
		ProductID: p.ID,
		NewStatus: enums.ProductStatusVerified,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateStatusVerifiesAndRecordsHistory(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	reviewer := admin()
	p := seedGlobalProduct(t, f, "Basmati Rice 1kg", enums.ProductStatusPending)

	dto, err := f.svc.UpdateStatus(ctx, reviewer, StatusUpdateInput{
		ProductID: p.ID,
		NewStatus: enums.ProductStatusVerified,
		Notes:     strPtr("checked against supplier data"),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusVerified, dto.Status)

	stored, err := f.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusVerified, stored.Status)
	require.NotNil(t, stored.LastUpdatedBy)
	assert.Equal(t, reviewer.StoreID.String(), *stored.LastUpdatedBy)
	require.NotNil(t, stored.AdminNotes)
	assert.Equal(t, "checked against supplier data", *stored.AdminNotes)

	history, err := f.svc.GetStatusHistory(ctx, reviewer, p.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.ProductStatusPending, history[0].FromStatus)
	assert.Equal(t, enums.ProductStatusVerified, history[0].ToStatus)
}

func TestUpdateStatusRejectsDisallowedTransition(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()

	adminCreated := seedGlobalProduct(t, f, "Olive Oil 500ml", enums.ProductStatusAdminCreated)
	_, err := f.svc.UpdateStatus(ctx, admin(), StatusUpdateInput{
		ProductID: adminCreated.ID,
		NewStatus: enums.ProductStatusVerified,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)

	stored, err := f.repo.FindByID(ctx, adminCreated.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusAdminCreated, stored.Status)

	var historyCount int64
	require.NoError(t, f.db.Model(&models.ProductStatusChange{}).Count(&historyCount).Error)
	assert.Zero(t, historyCount)
}

func TestFlaggedOnlyClearedExplicitly(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	reviewer := admin()

	flagged := seedGlobalProduct(t, f, "Suspicious Soda", enums.ProductStatusFlagged)

	_, err := f.svc.UpdateStatus(ctx, reviewer, StatusUpdateInput{
		ProductID: flagged.ID,
		NewStatus: enums.ProductStatusCommunity,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)

	dto, err := f.svc.UpdateStatus(ctx, reviewer, StatusUpdateInput{
		ProductID: flagged.ID,
		NewStatus: enums.ProductStatusVerified,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusVerified, dto.Status)
}

func TestUpdateStatusPromotedIsFrozen(t *testing.T) {
	f := newModerationFixture(t)
	promoted := seedGlobalProduct(t, f, "Promoted Granola", enums.ProductStatusPromoted)

	_, err := f.svc.UpdateStatus(context.Background(), admin(), StatusUpdateInput{
		ProductID: promoted.ID,
		NewStatus: enums.ProductStatusFlagged,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestBulkUpdateStatusReportsPartialFailure(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()

	ok := seedGlobalProduct(t, f, "Green Tea 100g", enums.ProductStatusPending)
	frozen := seedGlobalProduct(t, f, "Frozen Record", enums.ProductStatusPromoted)
	missing := uuid.New()

	result, err := f.svc.BulkUpdateStatus(ctx, admin(), BulkStatusUpdateInput{
		ProductIDs: []uuid.UUID{ok.ID, frozen.ID, missing},
		NewStatus:  enums.ProductStatusVerified,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, frozen.ID, result.Errors[0].ProductID)
	assert.Equal(t, missing, result.Errors[1].ProductID)

	stored, err := f.repo.FindByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusVerified, stored.Status)
}

func TestGetStatusHistoryHidesForeignCustomProducts(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "House Blend Coffee", 40)

	_, err := f.svc.GetStatusHistory(ctx, owner(uuid.New()), custom.ID)
	assertCode(t, err, pkgerrors.CodeNotFound)

	history, err := f.svc.GetStatusHistory(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRequestPromotionEnforcesQualityGate(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	low := seedCustomProduct(t, f, ownerStore, "Bulk Spice Mix", 59)
	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), low.ID)
	assertCode(t, err, pkgerrors.CodeValidation)

	high := seedCustomProduct(t, f, ownerStore, "Signature Spice Mix", 60)
	dto, err := f.svc.RequestPromotion(ctx, owner(ownerStore), high.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PromotionStatusPendingReview, dto.PromotionStatus)
}

func TestRequestPromotionOwnershipAndSource(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "House Granola", 80)
	_, err := f.svc.RequestPromotion(ctx, owner(uuid.New()), custom.ID)
	assertCode(t, err, pkgerrors.CodeForbidden)

	global := seedGlobalProduct(t, f, "Already Shared Granola", enums.ProductStatusVerified)
	_, err = f.svc.RequestPromotion(ctx, owner(ownerStore), global.ID)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRequestPromotionRejectsDoubleSubmission(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "House Granola", 80)
	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	_, err = f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestApprovePromotionCreatesCanonicalCopy(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "Signature Hot Sauce", 75)
	custom.Barcode = strPtr("7778889990001")
	require.NoError(t, f.repo.Save(ctx, custom))

	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	result, err := f.svc.ApprovePromotion(ctx, admin(), custom.ID, strPtr("meets catalog standards"))
	require.NoError(t, err)
	assert.True(t, result.Created)
	require.NotNil(t, result.Promoted)
	assert.NotEqual(t, custom.ID, result.Promoted.ID)
	assert.Equal(t, enums.ProductStatusVerified, result.Promoted.Status)

	stored, err := f.repo.FindByID(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusPromoted, stored.Status)
	assert.Equal(t, enums.PromotionStatusPromoted, stored.PromotionStatus)
	require.NotNil(t, stored.PromotedProductID)
	assert.Equal(t, result.Promoted.ID, *stored.PromotedProductID)

	canonical, err := f.repo.FindByBarcode(ctx, "7778889990001")
	require.NoError(t, err)
	assert.Equal(t, result.Promoted.ID, canonical.ID)
	assert.Equal(t, 1, canonical.StoresUsingCount, "relink write must commit with the finalize")

	require.Len(t, f.relinker.calls, 1)
	assert.Equal(t, ownerStore, f.relinker.calls[0].StoreID)
	assert.Equal(t, custom.ID, f.relinker.calls[0].From)
	assert.Equal(t, canonical.ID, f.relinker.calls[0].To)

	history, err := f.svc.GetStatusHistory(ctx, admin(), custom.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enums.ProductStatusPromoted, history[0].ToStatus)
}

func TestApprovePromotionLinksExistingGlobalRecord(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	existing := seedGlobalProduct(t, f, "Basmati Rice 1kg", enums.ProductStatusVerified)
	existing.Barcode = strPtr("8901234567890")
	require.NoError(t, f.repo.Save(ctx, existing))

	custom := seedCustomProduct(t, f, ownerStore, "Our Basmati Rice", 70)
	custom.Barcode = strPtr("8901234567890")
	require.NoError(t, f.repo.Save(ctx, custom))

	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	result, err := f.svc.ApprovePromotion(ctx, admin(), custom.ID, nil)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, existing.ID, result.Promoted.ID)

	require.Len(t, f.relinker.calls, 1)
	assert.Equal(t, existing.ID, f.relinker.calls[0].To)
}

func TestApprovePromotionFailedFinalizeLeavesNoPartialState(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "Single Origin Beans", 80)
	custom.Barcode = strPtr("5550001112223")
	require.NoError(t, f.repo.Save(ctx, custom))

	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	f.relinker.err = errors.New("relink write failed")

	_, err = f.svc.ApprovePromotion(ctx, admin(), custom.ID, nil)
	require.Error(t, err)

	reloaded, err := f.repo.FindByID(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PromotionStatusPendingReview, reloaded.PromotionStatus)
	assert.NotEqual(t, enums.ProductStatusPromoted, reloaded.Status)
	assert.Nil(t, reloaded.PromotedProductID)

	// The relinker wrote through the shared transaction, so its counter bump
	// must have rolled back with everything else.
	require.Len(t, f.relinker.calls, 1)
	canonical, err := f.repo.FindByID(ctx, f.relinker.calls[0].To)
	require.NoError(t, err)
	assert.Equal(t, 0, canonical.StoresUsingCount)

	var historyCount int64
	require.NoError(t, f.db.Model(&models.ProductStatusChange{}).Where("product_id = ?", custom.ID).Count(&historyCount).Error)
	assert.Zero(t, historyCount)
}

func TestApprovePromotionToleratesMissingInventoryEntry(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "Cold Brew Concentrate", 85)
	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	// The owner dropped the entry while review was pending.
	f.relinker.err = pkgerrors.New(pkgerrors.CodeNotFound, "inventory entry not found")

	result, err := f.svc.ApprovePromotion(ctx, admin(), custom.ID, nil)
	require.NoError(t, err)

	stored, err := f.repo.FindByID(ctx, custom.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusPromoted, stored.Status)
	require.NotNil(t, stored.PromotedProductID)
	assert.Equal(t, result.Promoted.ID, *stored.PromotedProductID)
}

func TestApprovePromotionRequiresPendingReview(t *testing.T) {
	f := newModerationFixture(t)
	custom := seedCustomProduct(t, f, uuid.New(), "House Granola", 80)

	_, err := f.svc.ApprovePromotion(context.Background(), admin(), custom.ID, nil)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRejectPromotionAllowsResubmission(t *testing.T) {
	f := newModerationFixture(t)
	ctx := context.Background()
	ownerStore := uuid.New()

	custom := seedCustomProduct(t, f, ownerStore, "House Granola", 80)
	_, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)

	dto, err := f.svc.RejectPromotion(ctx, admin(), custom.ID, strPtr("needs a barcode"))
	require.NoError(t, err)
	assert.Equal(t, enums.PromotionStatusRejected, dto.PromotionStatus)

	again, err := f.svc.RequestPromotion(ctx, owner(ownerStore), custom.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PromotionStatusPendingReview, again.PromotionStatus)
}
