package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"EFacturaPlatform/services/compliance-engine/internal/anaf"
)

// MockGatewayClient - мок для anaf.Client
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) Upload(ctx context.Context, accessToken, cif string, standard anaf.DocumentStandard, document []byte) (string, error) {
	args := m.Called(ctx, accessToken, cif, standard, document)
	return args.String(0), args.Error(1)
}

func (m *MockGatewayClient) GetStatus(ctx context.Context, accessToken, trackingID string) (*anaf.StatusResponse, error) {
	args := m.Called(ctx, accessToken, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anaf.StatusResponse), args.Error(1)
}

func (m *MockGatewayClient) ListMessages(ctx context.Context, accessToken, cif string, days int, filter string) ([]anaf.InboxMessage, error) {
	args := m.Called(ctx, accessToken, cif, days, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]anaf.InboxMessage), args.Error(1)
}

func (m *MockGatewayClient) Download(ctx context.Context, accessToken, downloadID string) ([]byte, error) {
	args := m.Called(ctx, accessToken, downloadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockGatewayClient) MarkRead(ctx context.Context, accessToken, messageID string) error {
	args := m.Called(ctx, accessToken, messageID)
	return args.Error(0)
}

// MockOAuthClient - мок для anaf.OAuthClient
type MockOAuthClient struct {
	mock.Mock
}

func (m *MockOAuthClient) AuthorizeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockOAuthClient) Exchange(ctx context.Context, code string) (*anaf.TokenResponse, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anaf.TokenResponse), args.Error(1)
}

func (m *MockOAuthClient) Refresh(ctx context.Context, refreshToken string) (*anaf.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anaf.TokenResponse), args.Error(1)
}
