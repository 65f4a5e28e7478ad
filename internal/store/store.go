package store

import (
	"context"

	"github.com/nhle/planeissues/internal/model"
)

// UploadFilter controls filtering and pagination for upload journal queries.
type UploadFilter struct {
	IssueID *string

	// FailedOnly keeps attempts that ended in failure.
	FailedOnly bool

	// NeedsReconciliation keeps attempts that stored a file but never
	// linked it to the issue.
	NeedsReconciliation bool

	Limit  int
	Offset int
}

// Store defines the persistence interface for the upload journal.
type Store interface {
	SaveUploadRecord(ctx context.Context, rec model.UploadRecord) error
	GetUploadRecord(ctx context.Context, id string) (*model.UploadRecord, error)
	ListUploadRecords(ctx context.Context, filter UploadFilter) ([]model.UploadRecord, error)
	DeleteUploadRecord(ctx context.Context, id string) error
	Close() error
}
