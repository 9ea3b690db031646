package feedback

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvo-fracture-risk-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	return store
}

func sampleFeedback(caseKey string) *Feedback {
	return &Feedback{
		CaseKey:           caseKey,
		Sex:               domain.FEMALE,
		Age:               78,
		Band:              domain.BAND_10_PLUS,
		SuggestedStrategy: domain.STRATEGY_START_OSTEOANABOLIC,
		ChosenStrategy:    domain.STRATEGY_ANTIRESORPTIVE,
		ChosenSubstanceID: "alendronate",
		UserAgreed:        false,
		Notes:             "Patient declined injectable therapy",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "feedback-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	fb := sampleFeedback("female|78|none|timed_up_and_go")

	err := store.Save(ctx, fb)
	require.NoError(t, err)
	assert.NotZero(t, fb.ID, "ID should be assigned")
	assert.False(t, fb.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.False(t, fb.UpdatedAt.IsZero(), "UpdatedAt should be set")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	fb := sampleFeedback("female|78|none|timed_up_and_go")
	require.NoError(t, store.Save(ctx, fb))
	originalID := fb.ID

	// Saving the same case key again updates in place.
	fb.ChosenStrategy = domain.STRATEGY_START_OSTEOANABOLIC
	fb.ChosenSubstanceID = "teriparatide"
	fb.UserAgreed = true
	fb.Notes = "Revised after specialist consult"
	require.NoError(t, store.Save(ctx, fb))

	assert.Equal(t, originalID, fb.ID, "Should update existing record")

	retrieved, err := store.Get(ctx, "female|78|none|timed_up_and_go")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, domain.STRATEGY_START_OSTEOANABOLIC, retrieved.ChosenStrategy)
	assert.Equal(t, "teriparatide", retrieved.ChosenSubstanceID)
	assert.True(t, retrieved.UserAgreed)
	assert.Equal(t, "Revised after specialist consult", retrieved.Notes)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	retrieved, err := store.Get(context.Background(), "male|65|-2.5|")
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	keys := []string{"case-a", "case-b", "case-c"}
	for _, key := range keys {
		require.NoError(t, store.Save(ctx, sampleFeedback(key)))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestSQLiteStore_Summarize(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	empty, err := store.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Total)
	assert.Zero(t, empty.AgreementRate)

	agreed := sampleFeedback("case-agreed")
	agreed.ChosenStrategy = agreed.SuggestedStrategy
	agreed.UserAgreed = true
	require.NoError(t, store.Save(ctx, agreed))
	require.NoError(t, store.Save(ctx, sampleFeedback("case-disagreed")))

	summary, err := store.Summarize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Agreed)
	assert.InDelta(t, 0.5, summary.AgreementRate, 1e-9)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	fb := sampleFeedback("case-to-delete")
	require.NoError(t, store.Save(ctx, fb))

	require.NoError(t, store.Delete(ctx, fb.ID))

	retrieved, err := store.Get(ctx, "case-to-delete")
	require.NoError(t, err)
	assert.Nil(t, retrieved)
}

func TestSQLiteStore_ExportImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleFeedback("case-a")))
	require.NoError(t, store.Save(ctx, sampleFeedback("case-b")))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	// Import into a fresh store
	target := createTestStore(t)
	defer target.Close()

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	// Re-importing skips existing case keys
	imported, skipped, err = target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)

	retrieved, err := target.Get(ctx, "case-a")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, domain.BAND_10_PLUS, retrieved.Band)
}

func TestSQLiteStore_ImportJSON_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}
