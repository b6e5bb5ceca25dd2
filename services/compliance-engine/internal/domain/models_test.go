package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/errors"
)

func TestNewSubmission(t *testing.T) {
	submission := NewSubmission("tenant-1", "invoice-1")

	require.NotNil(t, submission)
	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, "tenant-1", submission.TenantID)
	assert.Equal(t, "invoice-1", submission.InvoiceID)
	assert.Equal(t, SubmissionStatusDraft, submission.Status)
	assert.Empty(t, submission.GatewayTrackingID)
	assert.Equal(t, 0, submission.AttemptCount)
	assert.NotZero(t, submission.CreatedAt)
	assert.NotZero(t, submission.UpdatedAt)
}

func TestSubmission_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    SubmissionStatus
		to      SubmissionStatus
		allowed bool
	}{
		{"draft to pending", SubmissionStatusDraft, SubmissionStatusPending, true},
		{"draft to cancelled", SubmissionStatusDraft, SubmissionStatusCancelled, true},
		{"draft to submitted", SubmissionStatusDraft, SubmissionStatusSubmitted, false},
		{"draft to accepted", SubmissionStatusDraft, SubmissionStatusAccepted, false},
		{"pending to submitted", SubmissionStatusPending, SubmissionStatusSubmitted, true},
		{"pending to error", SubmissionStatusPending, SubmissionStatusError, true},
		{"pending to draft", SubmissionStatusPending, SubmissionStatusDraft, false},
		{"submitted to in_progress", SubmissionStatusSubmitted, SubmissionStatusInProgress, true},
		{"submitted to accepted", SubmissionStatusSubmitted, SubmissionStatusAccepted, true},
		{"submitted to rejected", SubmissionStatusSubmitted, SubmissionStatusRejected, true},
		{"submitted to pending", SubmissionStatusSubmitted, SubmissionStatusPending, false},
		{"in_progress to accepted", SubmissionStatusInProgress, SubmissionStatusAccepted, true},
		{"in_progress to rejected", SubmissionStatusInProgress, SubmissionStatusRejected, true},
		{"in_progress to error", SubmissionStatusInProgress, SubmissionStatusError, true},
		{"in_progress to cancelled", SubmissionStatusInProgress, SubmissionStatusCancelled, true},
		{"in_progress to submitted", SubmissionStatusInProgress, SubmissionStatusSubmitted, false},
		{"accepted is terminal", SubmissionStatusAccepted, SubmissionStatusInProgress, false},
		{"accepted to rejected", SubmissionStatusAccepted, SubmissionStatusRejected, false},
		{"rejected is terminal", SubmissionStatusRejected, SubmissionStatusAccepted, false},
		{"error is terminal", SubmissionStatusError, SubmissionStatusInProgress, false},
		{"cancelled is terminal", SubmissionStatusCancelled, SubmissionStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submission := &Submission{Status: tt.from}
			err := submission.TransitionTo(tt.to)

			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, submission.Status)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
				assert.Equal(t, tt.from, submission.Status, "state must not change on rejected transition")
			}
		})
	}
}

func TestSubmission_IsTerminal(t *testing.T) {
	tests := []struct {
		status   SubmissionStatus
		expected bool
	}{
		{SubmissionStatusDraft, false},
		{SubmissionStatusPending, false},
		{SubmissionStatusSubmitted, false},
		{SubmissionStatusInProgress, false},
		{SubmissionStatusAccepted, true},
		{SubmissionStatusRejected, true},
		{SubmissionStatusError, true},
		{SubmissionStatusCancelled, true},
	}

	for _, tt := range tests {
		submission := &Submission{Status: tt.status}
		assert.Equal(t, tt.expected, submission.IsTerminal(), "status %s", tt.status)
	}
}

func TestSubmission_MarkSubmitted(t *testing.T) {
	submission := NewSubmission("tenant-1", "invoice-1")
	require.NoError(t, submission.TransitionTo(SubmissionStatusPending))

	err := submission.MarkSubmitted("T-123")

	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusSubmitted, submission.Status)
	assert.Equal(t, "T-123", submission.GatewayTrackingID)
}

func TestSubmission_MarkSubmitted_FromDraft(t *testing.T) {
	submission := NewSubmission("tenant-1", "invoice-1")

	err := submission.MarkSubmitted("T-123")

	require.Error(t, err)
	assert.Empty(t, submission.GatewayTrackingID, "tracking id must not be assigned on rejected transition")
}

func TestSubmission_MarkError_KeepsTrackingID(t *testing.T) {
	submission := &Submission{
		Status:            SubmissionStatusInProgress,
		GatewayTrackingID: "T-123",
	}

	err := submission.MarkError("poll attempts exhausted")

	require.NoError(t, err)
	assert.Equal(t, SubmissionStatusError, submission.Status)
	assert.Equal(t, "T-123", submission.GatewayTrackingID)
	assert.Equal(t, "poll attempts exhausted", submission.LastError)
}

func TestSubmission_Cancel_AdvisoryAfterSubmit(t *testing.T) {
	submission := &Submission{
		Status:            SubmissionStatusInProgress,
		GatewayTrackingID: "T-123",
	}

	require.NoError(t, submission.Cancel())

	assert.Equal(t, SubmissionStatusCancelled, submission.Status)
	assert.True(t, submission.CancelledLocally)
	// Шлюз остается источником истины: отмененная локально подача
	// продолжает опрашиваться до терминального вердикта
	assert.True(t, submission.IsPollable())
}

func TestSubmission_Cancel_BeforeSubmit(t *testing.T) {
	submission := NewSubmission("tenant-1", "invoice-1")

	require.NoError(t, submission.Cancel())

	assert.Equal(t, SubmissionStatusCancelled, submission.Status)
	assert.False(t, submission.IsPollable(), "cancelled draft has no tracking id to poll")
}

func TestSubmission_Reconcile(t *testing.T) {
	submission := &Submission{
		Status:            SubmissionStatusCancelled,
		GatewayTrackingID: "T-123",
		CancelledLocally:  true,
	}

	submission.Reconcile(SubmissionStatusAccepted)

	assert.Equal(t, SubmissionStatusAccepted, submission.Status)
	assert.False(t, submission.CancelledLocally)
	assert.False(t, submission.IsPollable())
}

func TestSubmission_ResetForRetry(t *testing.T) {
	t.Run("with tracking id returns to polling", func(t *testing.T) {
		submission := &Submission{
			Status:            SubmissionStatusError,
			GatewayTrackingID: "T-123",
			AttemptCount:      5,
			LastError:         "timeout",
		}

		require.NoError(t, submission.ResetForRetry())

		assert.Equal(t, SubmissionStatusInProgress, submission.Status)
		assert.Equal(t, 0, submission.AttemptCount)
		assert.Empty(t, submission.LastError)
		assert.Equal(t, "T-123", submission.GatewayTrackingID)
	})

	t.Run("without tracking id returns to draft", func(t *testing.T) {
		submission := &Submission{
			Status:       SubmissionStatusError,
			AttemptCount: 3,
		}

		require.NoError(t, submission.ResetForRetry())

		assert.Equal(t, SubmissionStatusDraft, submission.Status)
		assert.Equal(t, 0, submission.AttemptCount)
	})

	t.Run("not allowed from non-error state", func(t *testing.T) {
		submission := &Submission{Status: SubmissionStatusInProgress}

		err := submission.ResetForRetry()

		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
	})
}

func TestSubmission_TrackingIDOnlyAfterSubmit(t *testing.T) {
	// Tracking id присутствует тогда и только тогда, когда подача
	// прошла через SUBMITTED
	submission := NewSubmission("tenant-1", "invoice-1")
	assert.Empty(t, submission.GatewayTrackingID)

	require.NoError(t, submission.TransitionTo(SubmissionStatusPending))
	assert.Empty(t, submission.GatewayTrackingID)

	require.NoError(t, submission.MarkSubmitted("T-42"))
	assert.NotEmpty(t, submission.GatewayTrackingID)

	require.NoError(t, submission.TransitionTo(SubmissionStatusInProgress))
	require.NoError(t, submission.MarkError("gateway unreachable"))
	assert.NotEmpty(t, submission.GatewayTrackingID, "ERROR after submit retains tracking id")
}

func TestTransportDocument_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    TransportStatus
		to      TransportStatus
		allowed bool
	}{
		{"draft to validated", TransportStatusDraft, TransportStatusValidated, true},
		{"draft to cancelled", TransportStatusDraft, TransportStatusCancelled, true},
		{"draft to submitted", TransportStatusDraft, TransportStatusSubmitted, false},
		{"validated to submitted", TransportStatusValidated, TransportStatusSubmitted, true},
		{"validated to cancelled", TransportStatusValidated, TransportStatusCancelled, true},
		{"submitted to approved", TransportStatusSubmitted, TransportStatusApproved, true},
		{"submitted to rejected", TransportStatusSubmitted, TransportStatusRejected, true},
		{"submitted to cancelled", TransportStatusSubmitted, TransportStatusCancelled, true},
		{"approved to in_transit", TransportStatusApproved, TransportStatusInTransit, true},
		{"approved to cancelled", TransportStatusApproved, TransportStatusCancelled, true},
		{"in_transit to completed", TransportStatusInTransit, TransportStatusCompleted, true},
		{"in_transit cannot be cancelled", TransportStatusInTransit, TransportStatusCancelled, false},
		{"completed is terminal", TransportStatusCompleted, TransportStatusInTransit, false},
		{"rejected is terminal", TransportStatusRejected, TransportStatusSubmitted, false},
		{"cancelled is terminal", TransportStatusCancelled, TransportStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &TransportDocument{Status: tt.from}
			err := transport.TransitionTo(tt.to)

			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, transport.Status)
			} else {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
				assert.Equal(t, tt.from, transport.Status)
			}
		})
	}
}

func TestTransportDocument_MarkApproved(t *testing.T) {
	transport := NewTransportDocument("tenant-1", "B123ABC", "Bucuresti", "Cluj-Napoca", "14399840")
	require.NoError(t, transport.TransitionTo(TransportStatusValidated))
	require.NoError(t, transport.TransitionTo(TransportStatusSubmitted))

	err := transport.MarkApproved("UIT1234567890")

	require.NoError(t, err)
	assert.Equal(t, TransportStatusApproved, transport.Status)
	assert.Equal(t, "UIT1234567890", transport.GatewayUitCode)
}

func TestGatewayMessage_MarkRead(t *testing.T) {
	message := &GatewayMessage{MessageID: "3001", Read: false}

	message.MarkRead()

	assert.True(t, message.Read)
}

func TestIsValidStatuses(t *testing.T) {
	assert.True(t, IsValidSubmissionStatus(SubmissionStatusInProgress))
	assert.False(t, IsValidSubmissionStatus(SubmissionStatus("UNKNOWN")))
	assert.True(t, IsValidTransportStatus(TransportStatusInTransit))
	assert.False(t, IsValidTransportStatus(TransportStatus("UNKNOWN")))
}
