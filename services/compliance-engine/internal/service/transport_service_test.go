package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/validation"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/mocks"
)

type transportFixture struct {
	service    TransportService
	transports *mocks.MockTransportRepository
	tenants    *mocks.MockTenantRepository
	syncLog    *mocks.MockSyncLogRepository
	gateway    *mocks.MockGatewayClient
	publisher  *mocks.RecordingPublisher
}

func newTransportFixture(t *testing.T) *transportFixture {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "service-test")
	require.NoError(t, err)

	f := &transportFixture{
		transports: new(mocks.MockTransportRepository),
		tenants:    new(mocks.MockTenantRepository),
		syncLog:    new(mocks.MockSyncLogRepository),
		gateway:    new(mocks.MockGatewayClient),
		publisher:  new(mocks.RecordingPublisher),
	}
	f.service = NewTransportService(
		f.transports,
		f.tenants,
		f.syncLog,
		&fakeTokenManager{token: "access-token"},
		f.gateway,
		validation.NewValidator(),
		f.publisher,
		log,
	)
	return f
}

func validTransport() *domain.TransportDocument {
	doc := domain.NewTransportDocument("tenant-1", "B-123-ABC", "Bucuresti", "Cluj-Napoca", "RO14399840")
	doc.DriverCnp = "1960101123456"
	return doc
}

func TestTransportValidate_CollectsAllFields(t *testing.T) {
	f := newTransportFixture(t)

	doc := domain.NewTransportDocument("tenant-1", "", "Bucuresti", "", "14399841")
	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.service.Validate(context.Background(), doc.ID)
	require.Error(t, err)

	assert.True(t, errors.IsCode(err, errors.ErrValidation))
	fields := errors.Fields(err)
	assert.Contains(t, fields, "vehiclePlate")
	assert.Contains(t, fields, "routeTo")
	assert.Contains(t, fields, "carrierCui")

	// Декларация остается в DRAFT, событий нет
	assert.Equal(t, domain.TransportStatusDraft, doc.Status)
	assert.Equal(t, 0, f.publisher.Count())
}

func TestTransportValidate_Success(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.transports.On("Update", mock.Anything, mock.Anything).Return(nil)

	validated, err := f.service.Validate(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TransportStatusValidated, validated.Status)
	events := f.publisher.ByType(domain.EventTransportStatusChanged)
	require.Len(t, events, 1)
}

func TestTransportSubmit_RequiresValidated(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.service.Submit(context.Background(), doc.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
	f.gateway.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransportSubmit_HappyPath(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	require.NoError(t, doc.TransitionTo(domain.TransportStatusValidated))

	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.transports.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.tenants.On("GetByID", mock.Anything, "tenant-1").
		Return(&domain.Tenant{ID: "tenant-1", Cif: "14399840"}, nil)
	f.syncLog.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.gateway.On("Upload", mock.Anything, "access-token", "14399840", anaf.StandardTransport, mock.Anything).
		Return("T-777", nil)

	submitted, err := f.service.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TransportStatusSubmitted, submitted.Status)
	assert.Equal(t, "T-777", submitted.GatewayTrackingID)
	events := f.publisher.ByType(domain.EventTransportStatusChanged)
	require.Len(t, events, 1)
	payload := events[0].Payload.(domain.TransportStatusPayload)
	assert.Equal(t, domain.TransportStatusValidated, payload.OldStatus)
	assert.Equal(t, domain.TransportStatusSubmitted, payload.NewStatus)
}

func TestTransportLifecycle_ApprovedToCompleted(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	require.NoError(t, doc.TransitionTo(domain.TransportStatusValidated))
	require.NoError(t, doc.TransitionTo(domain.TransportStatusSubmitted))
	require.NoError(t, doc.MarkApproved("UIT-0001"))

	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.transports.On("Update", mock.Anything, mock.Anything).Return(nil)

	inTransit, err := f.service.Start(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransportStatusInTransit, inTransit.Status)
	assert.Equal(t, "UIT-0001", inTransit.GatewayUitCode)

	completed, err := f.service.Complete(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransportStatusCompleted, completed.Status)
	assert.True(t, completed.IsTerminal())
}

func TestTransportCancel_ForbiddenInTransit(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	require.NoError(t, doc.TransitionTo(domain.TransportStatusValidated))
	require.NoError(t, doc.TransitionTo(domain.TransportStatusSubmitted))
	require.NoError(t, doc.MarkApproved("UIT-0001"))
	require.NoError(t, doc.TransitionTo(domain.TransportStatusInTransit))

	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)

	_, err := f.service.Cancel(context.Background(), doc.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestTransportCancel_BeforeTransit(t *testing.T) {
	f := newTransportFixture(t)

	doc := validTransport()
	require.NoError(t, doc.TransitionTo(domain.TransportStatusValidated))

	f.transports.On("GetByID", mock.Anything, doc.ID).Return(doc, nil)
	f.transports.On("Update", mock.Anything, mock.Anything).Return(nil)

	cancelled, err := f.service.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransportStatusCancelled, cancelled.Status)
}
