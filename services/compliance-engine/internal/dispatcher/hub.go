package dispatcher

import (
	"sync"

	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// Hub раздает события подключенным push подписчикам.
// Доставка best-effort: подписчик с заполненным буфером пропускает
// событие, актуальное состояние он дочитает через pull endpoints.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *domain.Event]struct{}
	logger      logger.Logger
	bufferSize  int
}

// NewHub создает новый экземпляр Hub
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan *domain.Event]struct{}),
		logger:      log,
		bufferSize:  16,
	}
}

// Subscribe подписывает на события арендатора.
// Возвращает канал событий и функцию отписки.
func (h *Hub) Subscribe(tenantID string) (<-chan *domain.Event, func()) {
	ch := make(chan *domain.Event, h.bufferSize)

	h.mu.Lock()
	if h.subscribers[tenantID] == nil {
		h.subscribers[tenantID] = make(map[chan *domain.Event]struct{})
	}
	h.subscribers[tenantID][ch] = struct{}{}
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[tenantID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, tenantID)
			}
		}
		h.mu.Unlock()
	}

	return ch, unsubscribe
}

// Broadcast раздает событие подписчикам арендатора
func (h *Hub) Broadcast(tenantID string, event *domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[tenantID] {
		select {
		case ch <- event:
		default:
			// Медленный подписчик пропускает событие
			h.logger.Warn("subscriber buffer full, event dropped",
				logger.String("tenant_id", tenantID),
				logger.String("event_type", string(event.Type)),
			)
		}
	}
}

// SubscriberCount возвращает количество подписчиков арендатора
func (h *Hub) SubscriberCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}
