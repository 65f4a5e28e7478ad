package source

import (
	"context"

	"github.com/nhle/planeissues/internal/model"
)

// Tracker is the contract the command layer consumes. Plane is the only
// implementation; the interface keeps commands testable against fakes.
type Tracker interface {
	// ListIssues returns the newest page of issues matching filter,
	// with states and labels resolved.
	ListIssues(ctx context.Context, filter model.IssueFilter) (*model.IssuePage, error)

	// CreateIssue creates an issue and returns the tracker's raw record.
	CreateIssue(
		ctx context.Context,
		title string,
		description string,
		priority model.Priority,
	) (*model.RawIssue, error)

	// GetIssueByID fetches one issue by its tracker id, including attachments.
	GetIssueByID(ctx context.Context, issueID string) (*model.EnrichedIssue, error)

	// GetIssueBySequenceID fetches one issue by its human-facing id
	// (e.g., PROJ-42), including attachments.
	GetIssueBySequenceID(ctx context.Context, sequenceID string) (*model.EnrichedIssue, error)

	// UploadAttachment attaches payload to the issue. It returns an
	// Attachment only when every upload phase succeeded.
	UploadAttachment(
		ctx context.Context,
		issueID string,
		payload []byte,
		fileName string,
		contentType string,
	) (*model.Attachment, error)

	// IssueURL returns the web link for an issue.
	IssueURL(issueID string) string
}
