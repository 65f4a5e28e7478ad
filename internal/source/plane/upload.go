package plane

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/source"
)

// MaxUploadSize is the largest attachment accepted, 10 MiB.
const MaxUploadSize = 10 << 20

// storageErrorSnippet caps how much of a storage error body is kept.
const storageErrorSnippet = 512

// UploadJournal records the progress of upload attempts.
type UploadJournal interface {
	SaveUploadRecord(ctx context.Context, rec model.UploadRecord) error
}

// UploadRequest describes one file to attach to an issue.
type UploadRequest struct {
	IssueID  string
	FileName string

	// ContentType is derived from FileName and the payload when empty.
	ContentType string
	Payload     []byte
}

// UploadCoordinator attaches files to issues in three phases: acquire a
// signed-POST credential from Plane, write the file to object storage,
// then tell Plane the upload is complete.
type UploadCoordinator struct {
	client      *Client
	storage     *http.Client
	projectPath string
	timeouts    model.UploadConfig
	journal     UploadJournal
	logger      *slog.Logger
}

// transitions lists the only state each upload state may advance to.
var transitions = map[model.UploadState]model.UploadState{
	model.UploadValidating:          model.UploadCredentialsAcquired,
	model.UploadCredentialsAcquired: model.UploadStorageWritten,
	model.UploadStorageWritten:      model.UploadCompleted,
}

// uploadAttempt tracks one run through the upload state machine and
// mirrors it into the journal.
type uploadAttempt struct {
	coord  *UploadCoordinator
	record model.UploadRecord
}

func (u *UploadCoordinator) begin(ctx context.Context, req UploadRequest) *uploadAttempt {
	now := time.Now().UTC()
	att := &uploadAttempt{
		coord: u,
		record: model.UploadRecord{
			ID:          uuid.New().String(),
			IssueID:     req.IssueID,
			FileName:    req.FileName,
			FileSize:    int64(len(req.Payload)),
			ContentType: req.ContentType,
			State:       model.UploadValidating,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	att.save(ctx)
	return att
}

// advance moves the attempt to next, which must follow the current state.
func (a *uploadAttempt) advance(ctx context.Context, next model.UploadState) {
	if transitions[a.record.State] != next {
		panic(fmt.Sprintf("upload: illegal transition %s -> %s", a.record.State, next))
	}
	a.record.State = next
	a.record.UpdatedAt = time.Now().UTC()
	a.save(ctx)

	a.coord.logger.Debug("upload advanced",
		"upload_id", a.record.ID, "issue_id", a.record.IssueID, "state", next,
	)
}

// fail marks the attempt failed in phase and returns err unchanged.
func (a *uploadAttempt) fail(ctx context.Context, phase source.Phase, err error) error {
	a.record.FailedPhase = string(phase)
	a.record.Error = err.Error()
	a.record.UpdatedAt = time.Now().UTC()
	a.save(ctx)

	a.coord.logger.Error("upload failed",
		"upload_id", a.record.ID,
		"issue_id", a.record.IssueID,
		"asset_id", a.record.AssetID,
		"state", a.record.State,
		"phase", phase,
		"error", err,
	)
	return err
}

// save writes the record to the journal. Journal failures never affect
// the upload itself.
func (a *uploadAttempt) save(ctx context.Context) {
	if a.coord.journal == nil {
		return
	}
	if err := a.coord.journal.SaveUploadRecord(context.WithoutCancel(ctx), a.record); err != nil {
		a.coord.logger.Warn("recording upload attempt failed",
			"upload_id", a.record.ID, "error", err,
		)
	}
}

// Upload runs the full protocol. It returns an Attachment only if every
// phase succeeded; otherwise the error is one of the source error types
// tagged with the failing phase.
//
// Once the storage write starts the upload is no longer cancelled by ctx:
// abandoning it then would leave an orphaned object. Each phase is bounded
// by its configured timeout instead.
func (u *UploadCoordinator) Upload(ctx context.Context, req UploadRequest) (*model.Attachment, error) {
	if req.ContentType == "" {
		req.ContentType = ContentTypeFor(req.FileName, req.Payload)
	}
	att := u.begin(ctx, req)

	if err := validateUpload(req); err != nil {
		return nil, att.fail(ctx, source.PhaseValidate, err)
	}

	cred, err := u.acquireCredential(ctx, req)
	if err != nil {
		return nil, att.fail(ctx, source.PhaseCredentials, err)
	}
	att.record.AssetID = cred.AssetID
	att.advance(ctx, model.UploadCredentialsAcquired)

	detached := context.WithoutCancel(ctx)

	if err := u.writeStorage(detached, cred, req); err != nil {
		return nil, att.fail(detached, source.PhaseStorage, err)
	}
	att.advance(detached, model.UploadStorageWritten)

	attachment, err := u.complete(detached, cred, req)
	if err != nil {
		return nil, att.fail(detached, source.PhaseComplete, err)
	}
	att.advance(detached, model.UploadCompleted)

	u.logger.Info("file uploaded",
		"upload_id", att.record.ID,
		"issue_id", req.IssueID,
		"asset_id", cred.AssetID,
		"file_name", req.FileName,
		"size", len(req.Payload),
	)
	return attachment, nil
}

// validateUpload checks the request without touching the network.
func validateUpload(req UploadRequest) error {
	switch {
	case len(req.Payload) > MaxUploadSize:
		return &source.ValidationError{
			Phase:   source.PhaseValidate,
			Message: fmt.Sprintf("file is %d bytes, the limit is %d", len(req.Payload), MaxUploadSize),
			Err:     source.ErrFileTooLarge,
		}
	case strings.TrimSpace(req.IssueID) == "":
		return &source.ValidationError{Phase: source.PhaseValidate, Message: "issue id is required"}
	case strings.TrimSpace(req.FileName) == "":
		return &source.ValidationError{Phase: source.PhaseValidate, Message: "file name is required"}
	}
	return nil
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (u *UploadCoordinator) attachmentsPath(issueID string) string {
	return fmt.Sprintf("%s/issues/%s/issue-attachments/", u.projectPath, url.PathEscape(issueID))
}

// acquireCredential asks Plane for a signed-POST credential for the file.
func (u *UploadCoordinator) acquireCredential(
	ctx context.Context,
	req UploadRequest,
) (*model.UploadCredential, error) {
	ctx, cancel := withTimeout(ctx, u.timeouts.CredentialTimeout)
	defer cancel()

	body := map[string]interface{}{
		"name": req.FileName,
		"type": req.ContentType,
		"size": len(req.Payload),
	}

	var resp UploadCredentialResponse
	if err := u.client.Post(ctx, u.attachmentsPath(req.IssueID), body, &resp); err != nil {
		return nil, classifyCredentialError(err, req.IssueID)
	}

	if resp.AssetID == "" || resp.UploadData.URL == "" {
		return nil, &source.UpstreamError{
			Phase: source.PhaseCredentials,
			Err:   errors.New("incomplete upload credential: missing asset id or storage url"),
		}
	}

	return &model.UploadCredential{
		AssetID:    resp.AssetID,
		StorageURL: resp.UploadData.URL,
		FormFields: resp.UploadData.Fields,
	}, nil
}

// classifyCredentialError maps a credential request failure: 404 means the
// issue is gone, 413 (or a 400 whose message says the file is too large or
// exceeds the limit) means the file is too large. Field validation errors
// on a 400 stay upstream errors.
func classifyCredentialError(err error, issueID string) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		tooLarge := statusErr.StatusCode == http.StatusRequestEntityTooLarge
		if statusErr.StatusCode == http.StatusBadRequest {
			msg := strings.ToLower(statusErr.apiMessage())
			tooLarge = strings.Contains(msg, "too large") || strings.Contains(msg, "exceeds")
		}
		if tooLarge {
			return &source.ValidationError{
				Phase:   source.PhaseCredentials,
				Message: "file rejected by the tracker",
				Err:     fmt.Errorf("%w: %v", source.ErrFileTooLarge, err),
			}
		}
	}
	return classify(err, source.PhaseCredentials, "issue", issueID)
}

// quoteEscaper escapes a file name for a Content-Disposition header.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// writeStorage POSTs the file to object storage as multipart/form-data: the
// signed fields in credential order, then the file as the last part.
func (u *UploadCoordinator) writeStorage(
	ctx context.Context,
	cred *model.UploadCredential,
	req UploadRequest,
) error {
	ctx, cancel := withTimeout(ctx, u.timeouts.StorageTimeout)
	defer cancel()

	body, contentType, err := buildStorageForm(cred.FormFields, req)
	if err != nil {
		return &source.StorageError{AssetID: cred.AssetID, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.StorageURL, body)
	if err != nil {
		return &source.StorageError{AssetID: cred.AssetID, Err: fmt.Errorf("creating request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := u.storage.Do(httpReq)
	if err != nil {
		return &source.StorageError{AssetID: cred.AssetID, Err: fmt.Errorf("posting to storage: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, storageErrorSnippet))
		return &source.StorageError{
			AssetID:    cred.AssetID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("storage rejected upload: %s", strings.TrimSpace(string(snippet))),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// buildStorageForm encodes the signed-POST form. It returns the body and
// its multipart Content-Type.
func buildStorageForm(fields []model.FormField, req UploadRequest) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.FileName),
	))
	header.Set("Content-Type", req.ContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(req.Payload); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &body, w.FormDataContentType(), nil
}

// complete tells Plane the asset has been uploaded. Any failure here is a
// PartialUploadError: the object exists in storage but is not linked.
func (u *UploadCoordinator) complete(
	ctx context.Context,
	cred *model.UploadCredential,
	req UploadRequest,
) (*model.Attachment, error) {
	ctx, cancel := withTimeout(ctx, u.timeouts.CompleteTimeout)
	defer cancel()

	path := u.attachmentsPath(req.IssueID) + url.PathEscape(cred.AssetID) + "/"
	body := map[string]interface{}{"is_uploaded": true}

	if err := u.client.Patch(ctx, path, body, nil); err != nil {
		return nil, &source.PartialUploadError{
			IssueID: req.IssueID,
			AssetID: cred.AssetID,
			Err:     classify(err, source.PhaseComplete, "", ""),
		}
	}

	return &model.Attachment{
		ID:            cred.AssetID,
		IssueID:       req.IssueID,
		FileName:      req.FileName,
		FileSizeBytes: int64(len(req.Payload)),
		ContentType:   req.ContentType,
	}, nil
}

// ContentTypeFor picks a MIME type for an upload from the file extension,
// falling back to sniffing the payload.
func ContentTypeFor(fileName string, payload []byte) string {
	candidate := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	if candidate == "" && len(payload) > 0 {
		candidate = http.DetectContentType(payload)
	}
	if mediaType, _, err := mime.ParseMediaType(candidate); err == nil {
		return mediaType
	}
	return "application/octet-stream"
}
