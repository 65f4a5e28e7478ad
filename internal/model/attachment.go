package model

import "time"

// FormField is one name/value pair of a signed-POST policy.
type FormField struct {
	Name  string
	Value string
}

// UploadCredential authorizes a single direct upload to object storage.
// FormFields must be sent in the order given; the storage signature
// depends on it.
type UploadCredential struct {
	AssetID    string
	StorageURL string
	FormFields []FormField
}

// Attachment is a file that has been fully uploaded and linked to an issue.
type Attachment struct {
	ID            string `json:"id"`
	IssueID       string `json:"issue_id"`
	FileName      string `json:"file_name"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	ContentType   string `json:"content_type"`
}

// UploadState is a step of the upload state machine.
type UploadState string

const (
	UploadValidating          UploadState = "validating"
	UploadCredentialsAcquired UploadState = "credentials_acquired"
	UploadStorageWritten      UploadState = "storage_written"
	UploadCompleted           UploadState = "completed"
)

// UploadRecord is the journal entry for one upload attempt.
type UploadRecord struct {
	ID          string `db:"id" json:"id"`
	IssueID     string `db:"issue_id" json:"issue_id"`
	FileName    string `db:"file_name" json:"file_name"`
	FileSize    int64  `db:"file_size" json:"file_size"`
	ContentType string `db:"content_type" json:"content_type"`
	AssetID     string `db:"asset_id" json:"asset_id"`

	// State is the last state the attempt reached.
	State UploadState `db:"state" json:"state"`

	// FailedPhase names the phase that failed; empty while the attempt is
	// in flight or once it has completed.
	FailedPhase string    `db:"failed_phase" json:"failed_phase"`
	Error       string    `db:"error" json:"error"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Failed reports whether the attempt ended in failure.
func (r UploadRecord) Failed() bool {
	return r.FailedPhase != ""
}

// NeedsReconciliation reports whether the attempt left a stored object
// that is not linked to its issue.
func (r UploadRecord) NeedsReconciliation() bool {
	return r.Failed() && r.State == UploadStorageWritten
}
