package service

import (
	"context"
	"encoding/xml"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/validation"
	"EFacturaPlatform/services/compliance-engine/internal/anaf"
	"EFacturaPlatform/services/compliance-engine/internal/dispatcher"
	"EFacturaPlatform/services/compliance-engine/internal/domain"
	"EFacturaPlatform/services/compliance-engine/internal/repository"
	"EFacturaPlatform/services/compliance-engine/internal/token"
)

// TransportService определяет интерфейс управления транспортными
// декларациями e-Transport
type TransportService interface {
	// Create создает декларацию в состоянии DRAFT
	Create(ctx context.Context, doc *domain.TransportDocument) (*domain.TransportDocument, error)

	// Validate проверяет реквизиты декларации и переводит ее в VALIDATED
	Validate(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Submit передает декларацию в шлюз
	Submit(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Start фиксирует начало перевозки: APPROVED -> IN_TRANSIT
	Start(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Complete фиксирует завершение перевозки: IN_TRANSIT -> COMPLETED
	Complete(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Cancel отменяет декларацию. После начала перевозки отмена невозможна.
	Cancel(ctx context.Context, id string) (*domain.TransportDocument, error)

	// Get возвращает декларацию по ID
	Get(ctx context.Context, id string) (*domain.TransportDocument, error)

	// List возвращает декларации арендатора
	List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TransportDocument, error)
}

// TransportServiceImpl реализация TransportService
type TransportServiceImpl struct {
	transports repository.TransportRepository
	tenants    repository.TenantRepository
	syncLog    repository.SyncLogRepository
	tokens     token.Manager
	gateway    anaf.Client
	validator  *validation.Validator
	publisher  dispatcher.Publisher
	logger     logger.Logger
}

// NewTransportService создает новый экземпляр TransportService
func NewTransportService(
	transports repository.TransportRepository,
	tenants repository.TenantRepository,
	syncLog repository.SyncLogRepository,
	tokens token.Manager,
	gateway anaf.Client,
	validator *validation.Validator,
	publisher dispatcher.Publisher,
	log logger.Logger,
) TransportService {
	return &TransportServiceImpl{
		transports: transports,
		tenants:    tenants,
		syncLog:    syncLog,
		tokens:     tokens,
		gateway:    gateway,
		validator:  validator,
		publisher:  publisher,
		logger:     log,
	}
}

// Create создает декларацию в состоянии DRAFT
func (s *TransportServiceImpl) Create(ctx context.Context, doc *domain.TransportDocument) (*domain.TransportDocument, error) {
	created := domain.NewTransportDocument(doc.TenantID, doc.VehiclePlate, doc.RouteFrom, doc.RouteTo, doc.CarrierCui)
	created.DriverCnp = doc.DriverCnp

	if err := s.transports.Create(ctx, created); err != nil {
		return nil, err
	}

	return created, nil
}

// Validate проверяет реквизиты декларации и переводит ее в VALIDATED.
// Все нарушения собираются в один ответ.
func (s *TransportServiceImpl) Validate(ctx context.Context, id string) (*domain.TransportDocument, error) {
	doc, err := s.transports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	fields = append(fields, s.validator.ValidateRequiredFields(map[string]string{
		"vehiclePlate": doc.VehiclePlate,
		"routeFrom":    doc.RouteFrom,
		"routeTo":      doc.RouteTo,
		"carrierCui":   doc.CarrierCui,
	})...)

	if doc.VehiclePlate != "" && s.validator.ValidateVehiclePlate(doc.VehiclePlate) != nil {
		fields = append(fields, "vehiclePlate")
	}
	if doc.CarrierCui != "" && s.validator.ValidateCUI(doc.CarrierCui) != nil {
		fields = append(fields, "carrierCui")
	}
	if doc.DriverCnp != "" && s.validator.ValidateCNP(doc.DriverCnp) != nil {
		fields = append(fields, "driverCnp")
	}

	if len(fields) > 0 {
		return doc, errors.New(errors.ErrValidation, "transport document failed validation").
			WithFields(fields...).
			WithContext(ctx)
	}

	oldStatus := doc.Status
	if err := doc.TransitionTo(domain.TransportStatusValidated); err != nil {
		return nil, err
	}
	if err := s.transports.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, doc, oldStatus, "")

	return doc, nil
}

// Submit передает декларацию в шлюз
func (s *TransportServiceImpl) Submit(ctx context.Context, id string) (*domain.TransportDocument, error) {
	doc, err := s.transports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.Status != domain.TransportStatusValidated {
		return nil, errors.New(errors.ErrInvalidTransition, "only validated documents can be submitted").
			WithDetails(string(doc.Status)).
			WithContext(ctx)
	}

	tenant, err := s.tenants.GetByID(ctx, doc.TenantID)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GetValidToken(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	payload, err := buildTransportDeclaration(tenant.Cif, doc)
	if err != nil {
		return nil, err
	}

	doc.RecordAttempt()

	trackingID, err := s.gateway.Upload(ctx, accessToken, tenant.Cif, anaf.StandardTransport, payload)
	if err != nil {
		s.appendSyncLog(ctx, tenant.ID, "transport_upload", doc.ID, "error", err.Error())
		doc.LastError = err.Error()
		if updateErr := s.transports.Update(ctx, doc); updateErr != nil {
			return nil, updateErr
		}
		return doc, err
	}

	oldStatus := doc.Status
	if err := doc.MarkSubmitted(trackingID); err != nil {
		return nil, err
	}
	if err := s.transports.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.appendSyncLog(ctx, tenant.ID, "transport_upload", doc.ID, "success", "")
	s.publishTransition(ctx, doc, oldStatus, "")

	s.logger.Info("transport document submitted to gateway",
		logger.CtxField(ctx),
		logger.String("tenant_id", tenant.ID),
		logger.String("transport_id", doc.ID),
	)

	return doc, nil
}

// Start фиксирует начало перевозки
func (s *TransportServiceImpl) Start(ctx context.Context, id string) (*domain.TransportDocument, error) {
	return s.transition(ctx, id, domain.TransportStatusInTransit, "transport started")
}

// Complete фиксирует завершение перевозки
func (s *TransportServiceImpl) Complete(ctx context.Context, id string) (*domain.TransportDocument, error) {
	return s.transition(ctx, id, domain.TransportStatusCompleted, "transport completed")
}

// Cancel отменяет декларацию
func (s *TransportServiceImpl) Cancel(ctx context.Context, id string) (*domain.TransportDocument, error) {
	return s.transition(ctx, id, domain.TransportStatusCancelled, "cancelled by user")
}

// Get возвращает декларацию по ID
func (s *TransportServiceImpl) Get(ctx context.Context, id string) (*domain.TransportDocument, error) {
	return s.transports.GetByID(ctx, id)
}

// List возвращает декларации арендатора
func (s *TransportServiceImpl) List(ctx context.Context, tenantID string, limit, offset int) ([]*domain.TransportDocument, error) {
	return s.transports.ListByTenant(ctx, tenantID, limit, offset)
}

func (s *TransportServiceImpl) transition(ctx context.Context, id string, to domain.TransportStatus, reason string) (*domain.TransportDocument, error) {
	doc, err := s.transports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := doc.Status
	if err := doc.TransitionTo(to); err != nil {
		return nil, err
	}
	if err := s.transports.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.publishTransition(ctx, doc, oldStatus, reason)

	return doc, nil
}

func (s *TransportServiceImpl) publishTransition(ctx context.Context, doc *domain.TransportDocument, oldStatus domain.TransportStatus, reason string) {
	event := domain.NewEvent(domain.EventTransportStatusChanged, domain.TransportStatusPayload{
		TransportID:    doc.ID,
		TenantID:       doc.TenantID,
		GatewayUitCode: doc.GatewayUitCode,
		OldStatus:      oldStatus,
		NewStatus:      doc.Status,
		Reason:         reason,
	})

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish transport event",
			logger.CtxField(ctx),
			logger.String("transport_id", doc.ID),
			logger.Error(err),
		)
	}
}

func (s *TransportServiceImpl) appendSyncLog(ctx context.Context, tenantID, operation, targetID, outcome, details string) {
	entry := domain.NewSyncLogEntry(tenantID, operation, targetID, outcome, details)
	if err := s.syncLog.Append(ctx, entry); err != nil {
		s.logger.Warn("failed to append sync log entry",
			logger.CtxField(ctx),
			logger.String("tenant_id", tenantID),
			logger.Error(err),
		)
	}
}

// transportDeclaration XML форма декларации для шлюза
type transportDeclaration struct {
	XMLName      xml.Name `xml:"TransportDeclaration"`
	Cif          string   `xml:"Cif"`
	VehiclePlate string   `xml:"VehiclePlate"`
	RouteFrom    string   `xml:"RouteFrom"`
	RouteTo      string   `xml:"RouteTo"`
	CarrierCui   string   `xml:"CarrierCui"`
	DriverCnp    string   `xml:"DriverCnp,omitempty"`
}

func buildTransportDeclaration(cif string, doc *domain.TransportDocument) ([]byte, error) {
	body, err := xml.MarshalIndent(transportDeclaration{
		Cif:          cif,
		VehiclePlate: doc.VehiclePlate,
		RouteFrom:    doc.RouteFrom,
		RouteTo:      doc.RouteTo,
		CarrierCui:   validation.CleanCUI(doc.CarrierCui),
		DriverCnp:    doc.DriverCnp,
	}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to marshal transport declaration")
	}
	return append([]byte(xml.Header), body...), nil
}
