package domain

import (
	"sort"
	"time"
)

// DeadlineKind представляет вид регуляторного срока
type DeadlineKind string

const (
	DeadlineKindSaft    DeadlineKind = "SAFT"
	DeadlineKindVat     DeadlineKind = "VAT_DECLARATION"
	DeadlineKindInvoice DeadlineKind = "EFACTURA"
)

// ComplianceDeadline представляет вычисленный регуляторный срок.
// Сущность производная и не персистится: пересчитывается от текущей
// даты при каждом запросе.
type ComplianceDeadline struct {
	Kind      DeadlineKind `json:"kind"`
	DueAt     time.Time    `json:"dueAt"`
	DaysUntil int          `json:"daysUntil"`
}

// DeadlineRule описывает одно календарное правило отчетности:
// срок за период N наступает в заданный день месяца N+offset
type DeadlineRule struct {
	Kind        DeadlineKind
	DayOfMonth  int
	MonthOffset int
}

// PeriodDueDate вычисляет срок подачи за отчетный период, содержащий
// указанную дату: день DayOfMonth месяца периода плюс MonthOffset.
func PeriodDueDate(period time.Time, rule DeadlineRule) time.Time {
	return time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, period.Location()).
		AddDate(0, rule.MonthOffset, rule.DayOfMonth-1)
}

// NextDueDate вычисляет ближайший предстоящий срок по правилу.
// Если день DayOfMonth текущего месяца еще не прошел, срок наступает
// в нем (это срок за период, отстоящий назад на MonthOffset); иначе
// срок переносится на следующий месяц. Прошедшие даты не возвращаются
// никогда: календарь отвечает на вопрос "какой срок следующий", а не
// "какой срок у текущего периода".
func NextDueDate(today time.Time, rule DeadlineRule) time.Time {
	period := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()).
		AddDate(0, -rule.MonthOffset, 0)
	due := PeriodDueDate(period, rule)
	if due.Before(time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())) {
		due = PeriodDueDate(period.AddDate(0, 1, 0), rule)
	}
	return due
}

// DaysUntil возвращает число календарных дней от today до due.
// Обе даты усекаются до полуночи, время суток не влияет на результат.
func DaysUntil(today, due time.Time) int {
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	dueDate := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDate.Sub(todayDate).Hours() / 24)
}

// InvoiceTransmissionDeadline вычисляет срок передачи фактуры в шлюз:
// пять календарных дней от даты выставления
func InvoiceTransmissionDeadline(issuedAt time.Time) time.Time {
	return issuedAt.AddDate(0, 0, 5)
}

// UpcomingDeadlines вычисляет сроки по таблице правил, отсортированные
// по возрастанию daysUntil. Чистая функция от "сегодня" и правил, без
// состояния и побочных эффектов.
func UpcomingDeadlines(today time.Time, rules []DeadlineRule) []ComplianceDeadline {
	deadlines := make([]ComplianceDeadline, 0, len(rules))
	for _, rule := range rules {
		due := NextDueDate(today, rule)
		deadlines = append(deadlines, ComplianceDeadline{
			Kind:      rule.Kind,
			DueAt:     due,
			DaysUntil: DaysUntil(today, due),
		})
	}

	sort.Slice(deadlines, func(i, j int) bool {
		return deadlines[i].DaysUntil < deadlines[j].DaysUntil
	})

	return deadlines
}
