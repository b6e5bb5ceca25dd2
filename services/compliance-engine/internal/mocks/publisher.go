package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// MockPublisher - мок для dispatcher.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// RecordingPublisher накапливает опубликованные события для проверок
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []*domain.Event
}

func (p *RecordingPublisher) Publish(ctx context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

// ByType возвращает события заданного типа
func (p *RecordingPublisher) ByType(eventType domain.EventType) []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []*domain.Event
	for _, event := range p.Events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// Count возвращает общее количество опубликованных событий
func (p *RecordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}
