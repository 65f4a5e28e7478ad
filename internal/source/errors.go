package source

import (
	"errors"
	"fmt"
	"net/http"
)

// Phase names the operation or upload step an error originated in.
type Phase string

// Upload phases, in execution order.
const (
	PhaseValidate    Phase = "validate"
	PhaseCredentials Phase = "acquire_credentials"
	PhaseStorage     Phase = "storage_write"
	PhaseComplete    Phase = "complete"
)

// Tracker operations outside the upload protocol.
const (
	PhaseListIssues     Phase = "list_issues"
	PhaseCreateIssue    Phase = "create_issue"
	PhaseGetIssue       Phase = "get_issue"
	PhaseGetAttachments Phase = "get_attachments"
	PhaseStates         Phase = "get_states"
	PhaseLabels         Phase = "get_labels"
	PhaseProject        Phase = "get_project"
)

// ErrFileTooLarge is wrapped by the ValidationError returned for payloads
// over the upload limit, whether the limit was enforced locally or by the
// tracker.
var ErrFileTooLarge = errors.New("file too large")

// NotFoundError reports an issue (or sequence id) the tracker does not know.
type NotFoundError struct {
	Phase    Phase
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %q not found", e.Phase, e.Resource, e.ID)
}

// ValidationError reports input rejected before or by the tracker.
type ValidationError struct {
	Phase   Phase
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Phase, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Phase, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports a transport or server failure from the tracker.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Phase      Phase
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: tracker returned %d: %v", e.Phase, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StorageError reports a failed write to object storage. The upload
// credential used for the attempt is spent; it is not cleaned up.
type StorageError struct {
	AssetID    string
	StatusCode int
	Err        error
}

func (e *StorageError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: storage returned %d: %v", PhaseStorage, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", PhaseStorage, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PartialUploadError reports that the file reached storage but the tracker
// was never told the upload finished, so no attachment is linked to the
// issue. AssetID identifies the orphaned object for manual reconciliation.
// Recovery is a fresh upload; credentials are single-use.
type PartialUploadError struct {
	IssueID string
	AssetID string
	Err     error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf(
		"%s: asset %s stored but not linked to issue %s: %v",
		PhaseComplete, e.AssetID, e.IssueID, e.Err,
	)
}

func (e *PartialUploadError) Unwrap() error { return e.Err }

// PhaseOf returns the phase recorded on the first tagged error in err's
// chain, or "" when err carries none.
func PhaseOf(err error) Phase {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		upstream   *UpstreamError
		storage    *StorageError
		partial    *PartialUploadError
	)
	switch {
	case errors.As(err, &partial):
		return PhaseComplete
	case errors.As(err, &storage):
		return PhaseStorage
	case errors.As(err, &notFound):
		return notFound.Phase
	case errors.As(err, &validation):
		return validation.Phase
	case errors.As(err, &upstream):
		return upstream.Phase
	}
	return ""
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// UserMessage renders err as a single sentence suitable for showing to the
// person who issued the command. The full chain stays available for logs.
func UserMessage(err error) string {
	var (
		notFound   *NotFoundError
		validation *ValidationError
		upstream   *UpstreamError
		storage    *StorageError
		partial    *PartialUploadError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFileTooLarge):
		return "The file is too large. Attachments are limited to 10 MB."
	case errors.As(err, &partial):
		return fmt.Sprintf(
			"The file was stored but could not be linked to the issue "+
				"(asset %s). Please upload it again.", partial.AssetID,
		)
	case errors.As(err, &storage):
		return "The file could not be written to storage. Please try again."
	case errors.As(err, &notFound):
		return fmt.Sprintf("%s %s was not found.", capitalize(notFound.Resource), notFound.ID)
	case errors.As(err, &validation):
		return capitalize(validation.Message) + "."
	case errors.As(err, &upstream):
		switch upstream.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "Plane rejected the API key. Check PLANE_API_KEY or run login."
		case http.StatusTooManyRequests:
			return "Plane is rate limiting requests. Try again in a minute."
		}
		return "Plane could not complete the request. Please try again later."
	}
	return "An unexpected error occurred."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
