package service

import (
	"context"
	"time"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
)

// DeadlineService определяет интерфейс расчета регуляторных сроков.
// Календарь отчетности задается конфигурацией, сами сроки нигде не
// хранятся и пересчитываются от текущей даты.
type DeadlineService interface {
	// Upcoming возвращает ближайшие сроки от указанной даты
	Upcoming(today time.Time) []domain.ComplianceDeadline

	// DueSoon возвращает сроки, до которых осталось не больше порога
	DueSoon(today time.Time) []domain.ComplianceDeadline

	// NotifyDueSoon публикует события о приближающихся сроках для арендаторов
	NotifyDueSoon(ctx context.Context, today time.Time, tenantIDs []string) int
}

// DeadlineServiceImpl реализация DeadlineService
type DeadlineServiceImpl struct {
	rules         []domain.DeadlineRule
	thresholdDays int
	publisher     dispatcher.Publisher
	logger        logger.Logger
}

// NewDeadlineService создает новый экземпляр DeadlineService
func NewDeadlineService(cfg config.DeadlineConfig, publisher dispatcher.Publisher, log logger.Logger) *DeadlineServiceImpl {
	rules := make([]domain.DeadlineRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, domain.DeadlineRule{
			Kind:        domain.DeadlineKind(rule.Kind),
			DayOfMonth:  rule.DayOfMonth,
			MonthOffset: rule.MonthOffset,
		})
	}

	return &DeadlineServiceImpl{
		rules:         rules,
		thresholdDays: cfg.ThresholdDays,
		publisher:     publisher,
		logger:        log,
	}
}

// Upcoming возвращает ближайшие сроки от указанной даты
func (s *DeadlineServiceImpl) Upcoming(today time.Time) []domain.ComplianceDeadline {
	return domain.UpcomingDeadlines(today, s.rules)
}

// DueSoon возвращает сроки, до которых осталось не больше порога.
// Срок, наступающий сегодня, также попадает в выдачу.
func (s *DeadlineServiceImpl) DueSoon(today time.Time) []domain.ComplianceDeadline {
	var due []domain.ComplianceDeadline
	for _, deadline := range s.Upcoming(today) {
		if deadline.DaysUntil <= s.thresholdDays {
			due = append(due, deadline)
		}
	}
	return due
}

// NotifyDueSoon публикует события о приближающихся сроках для арендаторов.
// Возвращает количество опубликованных событий.
func (s *DeadlineServiceImpl) NotifyDueSoon(ctx context.Context, today time.Time, tenantIDs []string) int {
	dueSoon := s.DueSoon(today)
	if len(dueSoon) == 0 {
		return 0
	}

	published := 0
	for _, tenantID := range tenantIDs {
		for _, deadline := range dueSoon {
			event := domain.NewEvent(domain.EventDeadlineDueSoon, domain.DeadlinePayload{
				TenantID:  tenantID,
				Kind:      deadline.Kind,
				DueAt:     deadline.DueAt,
				DaysUntil: deadline.DaysUntil,
			})
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.logger.Warn("failed to publish deadline event",
					logger.CtxField(ctx),
					logger.String("tenant_id", tenantID),
					logger.String("deadline_kind", string(deadline.Kind)),
					logger.Error(err),
				)
				continue
			}
			published++
		}
	}

	return published
}
