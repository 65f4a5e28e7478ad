package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/planeissues/internal/model"
)

// SaveUploadRecord inserts or replaces the journal entry for an upload attempt.
// If the record has no ID, a new UUID is generated.
func (s *SQLiteStore) SaveUploadRecord(ctx context.Context, rec model.UploadRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO uploads (
			id, issue_id, file_name, file_size, content_type,
			asset_id, state, failed_phase, error,
			created_at, updated_at
		) VALUES (
			:id, :issue_id, :file_name, :file_size, :content_type,
			:asset_id, :state, :failed_phase, :error,
			:created_at, :updated_at
		)`, rec)
	if err != nil {
		return fmt.Errorf("saving upload record %s: %w", rec.ID, err)
	}
	return nil
}

// GetUploadRecord retrieves a single upload attempt by its ID.
func (s *SQLiteStore) GetUploadRecord(ctx context.Context, id string) (*model.UploadRecord, error) {
	var rec model.UploadRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM uploads WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting upload record %s: %w", id, err)
	}
	return &rec, nil
}

// ListUploadRecords retrieves upload attempts matching filter, newest first.
func (s *SQLiteStore) ListUploadRecords(
	ctx context.Context,
	filter UploadFilter,
) ([]model.UploadRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.IssueID != nil {
		conditions = append(conditions, "issue_id = ?")
		args = append(args, *filter.IssueID)
	}
	if filter.FailedOnly {
		conditions = append(conditions, "failed_phase != ''")
	}
	if filter.NeedsReconciliation {
		conditions = append(conditions, "failed_phase != '' AND state = ?")
		args = append(args, string(model.UploadStorageWritten))
	}

	query := "SELECT * FROM uploads"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	records := []model.UploadRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("querying upload records: %w", err)
	}
	return records, nil
}

// DeleteUploadRecord removes an upload attempt, typically once it has been
// reconciled by hand.
func (s *SQLiteStore) DeleteUploadRecord(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM uploads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting upload record %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("upload record %s not found", id)
	}
	return nil
}
