package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{in: "", want: PriorityNone},
		{in: "urgent", want: PriorityUrgent},
		{in: " High ", want: PriorityHigh},
		{in: "MEDIUM", want: PriorityMedium},
		{in: "low", want: PriorityLow},
		{in: "none", want: PriorityNone},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriority(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParsePriority("critical")
	assert.ErrorContains(t, err, "unknown priority")
}

func TestUploadRecord_Status(t *testing.T) {
	inFlight := UploadRecord{State: UploadCredentialsAcquired}
	assert.False(t, inFlight.Failed())
	assert.False(t, inFlight.NeedsReconciliation())

	storageFailed := UploadRecord{State: UploadCredentialsAcquired, FailedPhase: "storage_write"}
	assert.True(t, storageFailed.Failed())
	assert.False(t, storageFailed.NeedsReconciliation())

	orphan := UploadRecord{State: UploadStorageWritten, FailedPhase: "complete"}
	assert.True(t, orphan.NeedsReconciliation())
}
