package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/store"
	"github.com/nhle/planeissues/tests/testutil"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func record(id, issueID string, state model.UploadState, failedPhase string, age time.Duration) model.UploadRecord {
	return model.UploadRecord{
		ID:          id,
		IssueID:     issueID,
		FileName:    id + ".png",
		FileSize:    1024,
		ContentType: "image/png",
		AssetID:     "asset-" + id,
		State:       state,
		FailedPhase: failedPhase,
		CreatedAt:   base.Add(-age),
		UpdatedAt:   base.Add(-age),
	}
}

func seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []model.UploadRecord{
		record("done", "iss-1", model.UploadCompleted, "", 3*time.Hour),
		record("storage", "iss-1", model.UploadCredentialsAcquired, "storage_write", 2*time.Hour),
		record("orphan", "iss-2", model.UploadStorageWritten, "complete", time.Hour),
	} {
		require.NoError(t, s.SaveUploadRecord(ctx, rec))
	}
}

func ids(records []model.UploadRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestSaveAndGetUploadRecord(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := record("up-1", "iss-1", model.UploadStorageWritten, "complete", 0)
	rec.Error = "complete: tracker returned 500"
	require.NoError(t, s.SaveUploadRecord(ctx, rec))

	got, err := s.GetUploadRecord(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, rec.IssueID, got.IssueID)
	assert.Equal(t, rec.AssetID, got.AssetID)
	assert.Equal(t, rec.State, got.State)
	assert.Equal(t, rec.Error, got.Error)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, got.NeedsReconciliation())
}

func TestSaveUploadRecord_ReplacesByID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	rec := record("up-1", "iss-1", model.UploadValidating, "", 0)
	require.NoError(t, s.SaveUploadRecord(ctx, rec))

	rec.State = model.UploadCompleted
	rec.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, s.SaveUploadRecord(ctx, rec))

	all, err := s.ListUploadRecords(ctx, store.UploadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.UploadCompleted, all[0].State)
}

func TestSaveUploadRecord_DefaultsIDAndTimestamps(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUploadRecord(ctx, model.UploadRecord{
		IssueID:  "iss-1",
		FileName: "a.txt",
		State:    model.UploadValidating,
	}))

	all, err := s.ListUploadRecords(ctx, store.UploadFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestSaveUploadRecord_RejectsUnknownState(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.SaveUploadRecord(context.Background(), record("bad", "iss-1", "exploded", "", 0))
	assert.Error(t, err)
}

func TestListUploadRecords_Filters(t *testing.T) {
	s := testutil.NewTestStore(t)
	seed(t, s)
	ctx := context.Background()
	issue1 := "iss-1"

	tests := []struct {
		name   string
		filter store.UploadFilter
		want   []string
	}{
		{name: "all newest first", filter: store.UploadFilter{}, want: []string{"orphan", "storage", "done"}},
		{name: "by issue", filter: store.UploadFilter{IssueID: &issue1}, want: []string{"storage", "done"}},
		{name: "failed", filter: store.UploadFilter{FailedOnly: true}, want: []string{"orphan", "storage"}},
		{name: "needs reconciliation", filter: store.UploadFilter{NeedsReconciliation: true}, want: []string{"orphan"}},
		{name: "limit", filter: store.UploadFilter{Limit: 1}, want: []string{"orphan"}},
		{name: "limit and offset", filter: store.UploadFilter{Limit: 1, Offset: 1}, want: []string{"storage"}},
		{name: "offset only", filter: store.UploadFilter{Offset: 2}, want: []string{"done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListUploadRecords(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestListUploadRecords_EmptyIsNotNil(t *testing.T) {
	s := testutil.NewTestStore(t)

	got, err := s.ListUploadRecords(context.Background(), store.UploadFilter{FailedOnly: true})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeleteUploadRecord(t *testing.T) {
	s := testutil.NewTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.DeleteUploadRecord(ctx, "orphan"))

	_, err := s.GetUploadRecord(ctx, "orphan")
	assert.ErrorContains(t, err, "not found")

	assert.ErrorContains(t, s.DeleteUploadRecord(ctx, "orphan"), "not found")
}

func TestNewSQLiteStore_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveUploadRecord(context.Background(), record("a", "iss-1", model.UploadValidating, "", 0)))
	require.NoError(t, s.Close())

	// Reopening skips applied migrations and keeps the data.
	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetUploadRecord(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "iss-1", got.IssueID)
}
