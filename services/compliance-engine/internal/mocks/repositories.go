package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// MockSubmissionRepository - мок для repository.SubmissionRepository
type MockSubmissionRepository struct {
	mock.Mock
}

func (m *MockSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) GetByTrackingID(ctx context.Context, trackingID string) (*domain.Submission, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) Update(ctx context.Context, submission *domain.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockSubmissionRepository) List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) ListPollable(ctx context.Context, tenantID string) ([]*domain.Submission, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Submission), args.Error(1)
}

func (m *MockSubmissionRepository) CountNonTerminal(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

// MockTransportRepository - мок для repository.TransportRepository
type MockTransportRepository struct {
	mock.Mock
}

func (m *MockTransportRepository) Create(ctx context.Context, doc *domain.TransportDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockTransportRepository) GetByID(ctx context.Context, id string) (*domain.TransportDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransportDocument), args.Error(1)
}

func (m *MockTransportRepository) Update(ctx context.Context, doc *domain.TransportDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockTransportRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TransportDocument, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TransportDocument), args.Error(1)
}

func (m *MockTransportRepository) ListPollable(ctx context.Context, tenantID string) ([]*domain.TransportDocument, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TransportDocument), args.Error(1)
}

// MockMessageRepository - мок для repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.GatewayMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*domain.GatewayMessage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GatewayMessage), args.Error(1)
}

func (m *MockMessageRepository) ExistsByMessageID(ctx context.Context, tenantID, messageID string) (bool, error) {
	args := m.Called(ctx, tenantID, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) List(ctx context.Context, filter domain.MessageFilter) ([]*domain.GatewayMessage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GatewayMessage), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockTokenRepository - мок для repository.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Save(ctx context.Context, token *domain.OAuthToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.OAuthToken, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OAuthToken), args.Error(1)
}

func (m *MockTokenRepository) UpdateStatus(ctx context.Context, tenantID string, status domain.TokenStatus) error {
	args := m.Called(ctx, tenantID, status)
	return args.Error(0)
}

func (m *MockTokenRepository) ListActiveTenantIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockTenantRepository - мок для repository.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

// MockSyncLogRepository - мок для repository.SyncLogRepository
type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) Append(ctx context.Context, entry *domain.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSyncLogRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.SyncLogEntry, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SyncLogEntry), args.Error(1)
}

// MockPollStateRepository - мок для repository.PollStateRepository
type MockPollStateRepository struct {
	mock.Mock
}

func (m *MockPollStateRepository) TryMarkInFlight(ctx context.Context, documentID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, documentID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockPollStateRepository) ClearInFlight(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockPollStateRepository) SetBackoff(ctx context.Context, documentID string, delay time.Duration) error {
	args := m.Called(ctx, documentID, delay)
	return args.Error(0)
}

func (m *MockPollStateRepository) InBackoff(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPollStateRepository) ClearBackoff(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockPollStateRepository) SetTenantBackoff(ctx context.Context, tenantID string, delay time.Duration) error {
	args := m.Called(ctx, tenantID, delay)
	return args.Error(0)
}

func (m *MockPollStateRepository) TenantInBackoff(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)
	return args.Bool(0), args.Error(1)
}

// MockOAuthStateRepository - мок для repository.OAuthStateRepository
type MockOAuthStateRepository struct {
	mock.Mock
}

func (m *MockOAuthStateRepository) Save(ctx context.Context, state, tenantID string, ttl time.Duration) error {
	args := m.Called(ctx, state, tenantID, ttl)
	return args.Error(0)
}

func (m *MockOAuthStateRepository) Consume(ctx context.Context, state string) (string, error) {
	args := m.Called(ctx, state)
	return args.String(0), args.Error(1)
}
