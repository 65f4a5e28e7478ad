package source

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Phase
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("x"), want: ""},
		{name: "not found", err: &NotFoundError{Phase: PhaseGetIssue}, want: PhaseGetIssue},
		{name: "validation", err: &ValidationError{Phase: PhaseValidate}, want: PhaseValidate},
		{name: "upstream", err: &UpstreamError{Phase: PhaseStates}, want: PhaseStates},
		{name: "storage", err: &StorageError{AssetID: "a"}, want: PhaseStorage},
		{
			name: "partial wraps upstream",
			err:  &PartialUploadError{AssetID: "a", Err: &UpstreamError{Phase: PhaseComplete, StatusCode: 500}},
			want: PhaseComplete,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("loading project identity: %w", &UpstreamError{Phase: PhaseProject}),
			want: PhaseProject,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PhaseOf(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "too large",
			err:  &ValidationError{Phase: PhaseValidate, Message: "file is big", Err: ErrFileTooLarge},
			want: "The file is too large. Attachments are limited to 10 MB.",
		},
		{
			name: "partial",
			err:  &PartialUploadError{IssueID: "i", AssetID: "asset-9", Err: errors.New("boom")},
			want: "The file was stored but could not be linked to the issue (asset asset-9). Please upload it again.",
		},
		{
			name: "storage",
			err:  &StorageError{AssetID: "a", StatusCode: 403},
			want: "The file could not be written to storage. Please try again.",
		},
		{
			name: "not found",
			err:  &NotFoundError{Phase: PhaseGetIssue, Resource: "issue", ID: "WEB-9"},
			want: "Issue WEB-9 was not found.",
		},
		{
			name: "validation",
			err:  &ValidationError{Phase: PhaseCreateIssue, Message: "issue title is required"},
			want: "Issue title is required.",
		},
		{
			name: "unauthorized",
			err:  &UpstreamError{Phase: PhaseListIssues, StatusCode: http.StatusUnauthorized},
			want: "Plane rejected the API key. Check PLANE_API_KEY or run login.",
		},
		{
			name: "rate limited",
			err:  &UpstreamError{Phase: PhaseListIssues, StatusCode: http.StatusTooManyRequests},
			want: "Plane is rate limiting requests. Try again in a minute.",
		},
		{
			name: "server error",
			err:  &UpstreamError{Phase: PhaseListIssues, StatusCode: 502, Err: errors.New("bad gateway")},
			want: "Plane could not complete the request. Please try again later.",
		},
		{
			name: "unknown",
			err:  errors.New("disk on fire"),
			want: "An unexpected error occurred.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}

	assert.Empty(t, UserMessage(nil))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t,
		`get_issue: issue "WEB-1" not found`,
		(&NotFoundError{Phase: PhaseGetIssue, Resource: "issue", ID: "WEB-1"}).Error(),
	)
	assert.Equal(t,
		"storage_write: storage returned 403: denied",
		(&StorageError{StatusCode: 403, Err: errors.New("denied")}).Error(),
	)
	assert.Equal(t,
		"complete: asset a-1 stored but not linked to issue i-1: boom",
		(&PartialUploadError{IssueID: "i-1", AssetID: "a-1", Err: errors.New("boom")}).Error(),
	)
	assert.True(t, errors.Is(
		&ValidationError{Phase: PhaseCredentials, Err: fmt.Errorf("%w: 413", ErrFileTooLarge)},
		ErrFileTooLarge,
	))
}
