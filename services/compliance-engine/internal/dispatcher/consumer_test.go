package dispatcher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

func testBridge(t *testing.T) (*EventBridge, *Hub) {
	t.Helper()

	log, err := logger.NewLogger("development", "error", "dispatcher-test")
	require.NoError(t, err)

	hub := NewHub(log)
	return NewEventBridge(nil, hub, "compliance-events", log), hub
}

func TestEventBridge_HandleRoutesByTenant(t *testing.T) {
	bridge, hub := testBridge(t)

	ch, unsubscribe := hub.Subscribe("tenant-1")
	defer unsubscribe()

	event := domain.NewEvent(domain.EventSubmissionStatusChanged, domain.SubmissionStatusPayload{
		SubmissionID: "sub-1",
		TenantID:     "tenant-1",
		OldStatus:    domain.SubmissionStatusSubmitted,
		NewStatus:    domain.SubmissionStatusAccepted,
	})
	body, err := json.Marshal(event)
	require.NoError(t, err)

	err = bridge.handle(context.Background(), amqp091.Delivery{Body: body})
	require.NoError(t, err)

	received := <-ch
	assert.Equal(t, domain.EventSubmissionStatusChanged, received.Type)
	assert.Equal(t, event.CorrelationID, received.CorrelationID)
}

func TestEventBridge_HandleMalformedBody(t *testing.T) {
	bridge, _ := testBridge(t)

	err := bridge.handle(context.Background(), amqp091.Delivery{Body: []byte("not json")})
	assert.Error(t, err)
}

func TestEventBridge_HandlePayloadWithoutTenant(t *testing.T) {
	bridge, hub := testBridge(t)

	ch, unsubscribe := hub.Subscribe("tenant-1")
	defer unsubscribe()

	body, err := json.Marshal(domain.NewEvent(domain.EventGatewayMessageReceived, map[string]string{"foo": "bar"}))
	require.NoError(t, err)

	// Событие без арендатора подтверждается, но никому не раздается
	err = bridge.handle(context.Background(), amqp091.Delivery{Body: body})
	require.NoError(t, err)
	assert.Empty(t, ch)
}
