package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/metrics"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
	"EFacturaPlatform/services/compliance-engine/internal/service"
	"EFacturaPlatform/services/compliance-engine/internal/token"
)

// срок жизни флага выполняющегося опроса: при падении процесса флаг
// истекает сам и документ возвращается в опрос
const inFlightTTL = 2 * time.Minute

// Poller периодически опрашивает шлюз о статусе незавершенных документов.
// Шлюз остается источником истины: опрос идемпотентно сливает вердикт
// шлюза в локальное состояние и публикует события только при изменениях.
type Poller struct {
	tenants     repository.TenantRepository
	submissions repository.SubmissionRepository
	transports  repository.TransportRepository
	pollState   repository.PollStateRepository
	tokens      token.Manager
	gateway     anaf.Client
	inbox       service.InboxService
	deadlines   service.DeadlineService
	publisher   dispatcher.Publisher
	metrics     *metrics.Metrics
	logger      logger.Logger

	statusMap      map[string]domain.SubmissionStatus
	interval       time.Duration
	interCallDelay time.Duration
	backoffBase    time.Duration
	backoffCap     time.Duration
	maxAttempts    int

	cron *cron.Cron
}

// NewPoller создает новый экземпляр Poller
func NewPoller(
	pollerCfg config.PollerConfig,
	anafCfg config.ANAFConfig,
	tenants repository.TenantRepository,
	submissions repository.SubmissionRepository,
	transports repository.TransportRepository,
	pollState repository.PollStateRepository,
	tokens token.Manager,
	gateway anaf.Client,
	inbox service.InboxService,
	deadlines service.DeadlineService,
	publisher dispatcher.Publisher,
	m *metrics.Metrics,
	log logger.Logger,
) *Poller {
	statusMap := make(map[string]domain.SubmissionStatus, len(anafCfg.StatusMap))
	for gatewayStatus, local := range anafCfg.StatusMap {
		statusMap[strings.ToLower(gatewayStatus)] = domain.SubmissionStatus(local)
	}

	return &Poller{
		tenants:        tenants,
		submissions:    submissions,
		transports:     transports,
		pollState:      pollState,
		tokens:         tokens,
		gateway:        gateway,
		inbox:          inbox,
		deadlines:      deadlines,
		publisher:      publisher,
		metrics:        m,
		logger:         log,
		statusMap:      statusMap,
		interval:       parseDuration(pollerCfg.Interval, 30*time.Second),
		interCallDelay: parseDuration(anafCfg.InterCallDelay, 200*time.Millisecond),
		backoffBase:    parseDuration(pollerCfg.BackoffBase, 30*time.Second),
		backoffCap:     parseDuration(pollerCfg.BackoffCap, 15*time.Minute),
		maxAttempts:    pollerCfg.MaxAttempts,
		cron:           cron.New(cron.WithSeconds()), // Поддержка секунд
	}
}

// Start запускает периодический опрос статусов и ежедневную проверку
// регуляторных сроков
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.Tick(ctx)
	}); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to schedule poll cycle")
	}

	// Уведомления о сроках отправляются раз в сутки утром
	if _, err := p.cron.AddFunc("0 0 7 * * *", func() {
		p.NotifyDeadlines(ctx)
	}); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to schedule deadline notifications")
	}

	p.cron.Start()
	p.logger.Info("status poller started",
		logger.Duration("interval", p.interval),
		logger.Int("max_attempts", p.maxAttempts),
	)
	return nil
}

// Stop останавливает опрос и дожидается завершения текущего цикла
func (p *Poller) Stop() {
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.logger.Info("status poller stopped")
}

// Tick выполняет один цикл опроса по всем активным арендаторам.
// Арендаторы обрабатываются последовательно: шлюз чувствителен к
// параллельным обращениям.
func (p *Poller) Tick(ctx context.Context) {
	tenants, err := p.tenants.ListActive(ctx)
	if err != nil {
		p.logger.Error("failed to list active tenants",
			logger.CtxField(ctx),
			logger.Error(err),
		)
		return
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return
		}
		p.pollTenant(ctx, tenant)
	}
}

// NotifyDeadlines публикует события о приближающихся регуляторных сроках
func (p *Poller) NotifyDeadlines(ctx context.Context) {
	tenants, err := p.tenants.ListActive(ctx)
	if err != nil {
		p.logger.Error("failed to list tenants for deadline notifications",
			logger.CtxField(ctx),
			logger.Error(err),
		)
		return
	}

	tenantIDs := make([]string, 0, len(tenants))
	for _, tenant := range tenants {
		tenantIDs = append(tenantIDs, tenant.ID)
	}

	published := p.deadlines.NotifyDueSoon(ctx, time.Now(), tenantIDs)
	if published > 0 {
		p.logger.Info("deadline notifications published",
			logger.Int("count", published),
		)
	}
}

// pollTenant опрашивает все незавершенные документы одного арендатора
func (p *Poller) pollTenant(ctx context.Context, tenant *domain.Tenant) {
	started := time.Now()

	backed, err := p.pollState.TenantInBackoff(ctx, tenant.ID)
	if err != nil {
		p.logger.Warn("tenant backoff check failed, proceeding",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err),
		)
	} else if backed {
		p.logger.Debug("tenant in gateway backoff, skipping cycle",
			logger.String("tenant_id", tenant.ID),
		)
		return
	}

	accessToken, err := p.tokens.GetValidToken(ctx, tenant.ID)
	if err != nil {
		p.logger.Warn("tenant has no usable token, skipping cycle",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err),
		)
		return
	}

	pollableSubmissions, err := p.submissions.ListPollable(ctx, tenant.ID)
	if err != nil {
		p.logger.Error("failed to list pollable submissions",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err),
		)
		return
	}

	pollableTransports, err := p.transports.ListPollable(ctx, tenant.ID)
	if err != nil {
		p.logger.Error("failed to list pollable transport documents",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err),
		)
		return
	}

	if p.metrics != nil {
		p.metrics.SetInFlightDocuments("submission", float64(len(pollableSubmissions)))
		p.metrics.SetInFlightDocuments("transport", float64(len(pollableTransports)))
	}

	calls := 0
	for _, submission := range pollableSubmissions {
		called, err := p.pollSubmission(ctx, accessToken, submission, calls)
		if called {
			calls++
		}
		if p.backOffTenant(ctx, tenant.ID, err) {
			return
		}
		if err != nil {
			p.logger.Error("submission poll failed",
				logger.String("submission_id", submission.ID),
				logger.Error(err),
			)
		}
	}

	for _, doc := range pollableTransports {
		called, err := p.pollTransport(ctx, accessToken, doc, calls)
		if called {
			calls++
		}
		if p.backOffTenant(ctx, tenant.ID, err) {
			return
		}
		if err != nil {
			p.logger.Error("transport poll failed",
				logger.String("transport_id", doc.ID),
				logger.Error(err),
			)
		}
	}

	if calls > 0 {
		p.wait(ctx)
	}
	if _, err := p.inbox.Sync(ctx, tenant); err != nil {
		if p.backOffTenant(ctx, tenant.ID, err) {
			return
		}
		p.logger.Warn("inbox sync failed",
			logger.String("tenant_id", tenant.ID),
			logger.Error(err),
		)
	}

	if p.metrics != nil {
		p.metrics.ObservePollCycle(tenant.ID, time.Since(started))
	}
}

// backOffTenant откладывает обращения арендатора при исчерпании квоты
// шлюза. Возвращает true, если цикл арендатора нужно прервать.
func (p *Poller) backOffTenant(ctx context.Context, tenantID string, err error) bool {
	if err == nil || !errors.IsCode(err, errors.ErrRateLimited) {
		return false
	}

	if backoffErr := p.pollState.SetTenantBackoff(ctx, tenantID, p.backoffBase); backoffErr != nil {
		p.logger.Warn("failed to set tenant backoff",
			logger.String("tenant_id", tenantID),
			logger.Error(backoffErr),
		)
	}
	p.logger.Warn("gateway rate limit hit, backing off tenant",
		logger.String("tenant_id", tenantID),
		logger.Duration("backoff", p.backoffBase),
	)
	return true
}

// pollSubmission опрашивает статус одной подачи. Возвращает признак
// фактического обращения к шлюзу и ошибку обращения.
func (p *Poller) pollSubmission(ctx context.Context, accessToken string, submission *domain.Submission, priorCalls int) (bool, error) {
	skip, err := p.shouldSkip(ctx, submission.ID)
	if err != nil {
		p.logger.Warn("poll state check failed, proceeding",
			logger.String("submission_id", submission.ID),
			logger.Error(err),
		)
	}
	if skip {
		return false, nil
	}
	defer p.clearInFlight(ctx, submission.ID)

	if priorCalls > 0 {
		p.wait(ctx)
	}

	status, err := p.gateway.GetStatus(ctx, accessToken, submission.GatewayTrackingID)
	if err != nil {
		if errors.IsCode(err, errors.ErrRateLimited) {
			return true, err
		}
		return true, p.recordPollFailure(ctx, submission, err)
	}

	p.clearBackoff(ctx, submission.ID)
	return true, p.mergeSubmissionStatus(ctx, submission, status)
}

// recordPollFailure учитывает неудачный опрос подачи. После исчерпания
// лимита последовательных неудач подача переводится в ERROR.
func (p *Poller) recordPollFailure(ctx context.Context, submission *domain.Submission, cause error) error {
	submission.RecordAttempt()
	submission.LastError = cause.Error()

	if submission.AttemptCount >= p.maxAttempts {
		oldStatus := submission.Status
		if err := submission.MarkError(fmt.Sprintf("status polling failed %d times: %s", submission.AttemptCount, cause.Error())); err != nil {
			// Локально отмененная подача не имеет перехода в ERROR:
			// сверка с вердиктом шлюза прекращается
			submission.CancelledLocally = false
		}
		if err := p.submissions.Update(ctx, submission); err != nil {
			return err
		}
		if submission.Status == domain.SubmissionStatusError {
			p.publishSubmissionTransition(ctx, submission, oldStatus, submission.LastError)
		}
		p.logger.Error("submission poll attempts exhausted",
			logger.String("submission_id", submission.ID),
			logger.Int("attempts", submission.AttemptCount),
			logger.Error(cause),
		)
		return nil
	}

	if err := p.submissions.Update(ctx, submission); err != nil {
		return err
	}
	p.setBackoff(ctx, submission.ID, submission.AttemptCount)
	return nil
}

// mergeSubmissionStatus идемпотентно сливает ответ шлюза в подачу.
// Совпадающий статус не порождает ни записи события, ни перехода.
func (p *Poller) mergeSubmissionStatus(ctx context.Context, submission *domain.Submission, status *anaf.StatusResponse) error {
	now := time.Now()
	submission.LastCheckedAt = &now
	submission.AttemptCount = 0
	submission.UpdatedAt = now

	mapped, known := p.mapStatus(status.Stare)
	if !known {
		p.logger.Warn("gateway returned unknown status",
			logger.String("submission_id", submission.ID),
			logger.String("gateway_status", status.Stare),
		)
		return p.submissions.Update(ctx, submission)
	}

	if mapped == submission.Status {
		return p.submissions.Update(ctx, submission)
	}

	// Локально отмененная подача сверяется с вердиктом шлюза без
	// публикации события: для внешнего мира она уже отменена
	if submission.CancelledLocally {
		if mapped == domain.SubmissionStatusAccepted || mapped == domain.SubmissionStatusRejected {
			submission.Reconcile(mapped)
		}
		return p.submissions.Update(ctx, submission)
	}

	oldStatus := submission.Status
	if err := submission.TransitionTo(mapped); err != nil {
		p.logger.Warn("gateway status ignored, transition not allowed",
			logger.String("submission_id", submission.ID),
			logger.String("from", string(oldStatus)),
			logger.String("to", string(mapped)),
		)
		return p.submissions.Update(ctx, submission)
	}
	if mapped == domain.SubmissionStatusRejected {
		submission.LastError = status.Mesaj
	}
	if err := p.submissions.Update(ctx, submission); err != nil {
		return err
	}

	p.publishSubmissionTransition(ctx, submission, oldStatus, status.Mesaj)
	return nil
}

// pollTransport опрашивает статус одной транспортной декларации
func (p *Poller) pollTransport(ctx context.Context, accessToken string, doc *domain.TransportDocument, priorCalls int) (bool, error) {
	skip, err := p.shouldSkip(ctx, doc.ID)
	if err != nil {
		p.logger.Warn("poll state check failed, proceeding",
			logger.String("transport_id", doc.ID),
			logger.Error(err),
		)
	}
	if skip {
		return false, nil
	}
	defer p.clearInFlight(ctx, doc.ID)

	if priorCalls > 0 {
		p.wait(ctx)
	}

	status, err := p.gateway.GetStatus(ctx, accessToken, doc.GatewayTrackingID)
	if err != nil {
		if errors.IsCode(err, errors.ErrRateLimited) {
			return true, err
		}
		doc.RecordAttempt()
		doc.LastError = err.Error()
		if updateErr := p.transports.Update(ctx, doc); updateErr != nil {
			return true, updateErr
		}
		p.setBackoff(ctx, doc.ID, doc.AttemptCount)
		return true, nil
	}

	p.clearBackoff(ctx, doc.ID)
	return true, p.mergeTransportStatus(ctx, doc, status)
}

// mergeTransportStatus сливает вердикт шлюза в транспортную декларацию.
// Код UIT приходит в теле сообщения при одобрении.
func (p *Poller) mergeTransportStatus(ctx context.Context, doc *domain.TransportDocument, status *anaf.StatusResponse) error {
	now := time.Now()
	doc.LastCheckedAt = &now
	doc.AttemptCount = 0
	doc.UpdatedAt = now

	mapped, known := p.mapStatus(status.Stare)
	if !known {
		p.logger.Warn("gateway returned unknown status",
			logger.String("transport_id", doc.ID),
			logger.String("gateway_status", status.Stare),
		)
		return p.transports.Update(ctx, doc)
	}

	oldStatus := doc.Status
	reason := ""

	switch mapped {
	case domain.SubmissionStatusAccepted:
		uit := strings.TrimSpace(status.Mesaj)
		if uit == "" {
			uit = doc.GatewayTrackingID
		}
		if err := doc.MarkApproved(uit); err != nil {
			return err
		}
	case domain.SubmissionStatusRejected:
		if err := doc.TransitionTo(domain.TransportStatusRejected); err != nil {
			return err
		}
		doc.LastError = status.Mesaj
		reason = status.Mesaj
	default:
		// IN_PROGRESS: вердикта еще нет, опрос продолжается
		return p.transports.Update(ctx, doc)
	}

	if err := p.transports.Update(ctx, doc); err != nil {
		return err
	}

	p.publishTransportTransition(ctx, doc, oldStatus, reason)
	return nil
}

// mapStatus отображает словарь статусов шлюза на локальные статусы.
// Словарь задается конфигурацией и версионируется снаружи.
func (p *Poller) mapStatus(gatewayStatus string) (domain.SubmissionStatus, bool) {
	mapped, ok := p.statusMap[strings.ToLower(strings.TrimSpace(gatewayStatus))]
	return mapped, ok
}

// shouldSkip проверяет задержку опроса и захватывает флаг выполнения
func (p *Poller) shouldSkip(ctx context.Context, documentID string) (bool, error) {
	backed, err := p.pollState.InBackoff(ctx, documentID)
	if err != nil {
		return false, err
	}
	if backed {
		return true, nil
	}

	acquired, err := p.pollState.TryMarkInFlight(ctx, documentID, inFlightTTL)
	if err != nil {
		return false, err
	}
	return !acquired, nil
}

func (p *Poller) clearInFlight(ctx context.Context, documentID string) {
	if err := p.pollState.ClearInFlight(ctx, documentID); err != nil {
		p.logger.Warn("failed to clear in-flight flag",
			logger.String("document_id", documentID),
			logger.Error(err),
		)
	}
}

func (p *Poller) setBackoff(ctx context.Context, documentID string, attempt int) {
	delay := p.backoffFor(attempt)
	if err := p.pollState.SetBackoff(ctx, documentID, delay); err != nil {
		p.logger.Warn("failed to set poll backoff",
			logger.String("document_id", documentID),
			logger.Error(err),
		)
		return
	}
	p.logger.Debug("poll backoff set",
		logger.String("document_id", documentID),
		logger.Duration("delay", delay),
	)
}

func (p *Poller) clearBackoff(ctx context.Context, documentID string) {
	if err := p.pollState.ClearBackoff(ctx, documentID); err != nil {
		p.logger.Warn("failed to clear poll backoff",
			logger.String("document_id", documentID),
			logger.Error(err),
		)
	}
}

// backoffFor вычисляет экспоненциальную задержку по номеру неудачной
// попытки: base, 2*base, 4*base и так далее до потолка
func (p *Poller) backoffFor(attempt int) time.Duration {
	delay := p.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.backoffCap {
			return p.backoffCap
		}
	}
	if delay > p.backoffCap {
		return p.backoffCap
	}
	return delay
}

// wait выдерживает паузу между последовательными вызовами шлюза
func (p *Poller) wait(ctx context.Context) {
	if p.interCallDelay <= 0 {
		return
	}
	select {
	case <-time.After(p.interCallDelay):
	case <-ctx.Done():
	}
}

func (p *Poller) publishSubmissionTransition(ctx context.Context, submission *domain.Submission, oldStatus domain.SubmissionStatus, reason string) {
	event := domain.NewEvent(domain.EventSubmissionStatusChanged, domain.SubmissionStatusPayload{
		TenantID:          submission.TenantID,
		SubmissionID:      submission.ID,
		InvoiceID:         submission.InvoiceID,
		GatewayTrackingID: submission.GatewayTrackingID,
		OldStatus:         oldStatus,
		NewStatus:         submission.Status,
		Reason:            reason,
	})
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish submission status event",
			logger.String("submission_id", submission.ID),
			logger.Error(err),
		)
	}
}

func (p *Poller) publishTransportTransition(ctx context.Context, doc *domain.TransportDocument, oldStatus domain.TransportStatus, reason string) {
	event := domain.NewEvent(domain.EventTransportStatusChanged, domain.TransportStatusPayload{
		TransportID:    doc.ID,
		TenantID:       doc.TenantID,
		GatewayUitCode: doc.GatewayUitCode,
		OldStatus:      oldStatus,
		NewStatus:      doc.Status,
		Reason:         reason,
	})
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish transport status event",
			logger.String("transport_id", doc.ID),
			logger.Error(err),
		)
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
