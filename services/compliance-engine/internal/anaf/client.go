package anaf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"EFacturaPlatform/pkg/config"
	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/logger"
	"EFacturaPlatform/pkg/metrics"
	"EFacturaPlatform/pkg/ratelimit"
)

// Client интерфейс REST клиента шлюза ANAF SPV
type Client interface {
	// Upload загружает XML документ и возвращает идентификатор загрузки
	Upload(ctx context.Context, accessToken, cif string, standard DocumentStandard, document []byte) (string, error)
	// GetStatus возвращает текущий статус загрузки по идентификатору
	GetStatus(ctx context.Context, accessToken, trackingID string) (*StatusResponse, error)
	// ListMessages возвращает входящие сообщения SPV за последние days дней
	ListMessages(ctx context.Context, accessToken, cif string, days int, filter string) ([]InboxMessage, error)
	// Download скачивает ZIP архив документа по идентификатору
	Download(ctx context.Context, accessToken, downloadID string) ([]byte, error)
	// MarkRead помечает сообщение прочитанным на стороне шлюза
	MarkRead(ctx context.Context, accessToken, messageID string) error
}

// HTTPClient реализация Client поверх net/http.
// Бюджет обращений к шлюзу общий для всех арендаторов и контролируется
// через RateLimiter до выполнения запроса.
type HTTPClient struct {
	baseURL        string
	httpClient     *http.Client
	limiter        ratelimit.RateLimiter
	metrics        *metrics.Metrics
	logger         logger.Logger
	uploadTimeout  time.Duration
	statusTimeout  time.Duration
	callsPerMinute int
}

const gatewayBudgetKey = "anaf:gateway"

// NewHTTPClient создает новый REST клиент шлюза
func NewHTTPClient(cfg config.ANAFConfig, limiter ratelimit.RateLimiter, m *metrics.Metrics, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{},
		limiter:        limiter,
		metrics:        m,
		logger:         log,
		uploadTimeout:  parseDuration(cfg.UploadTimeout, 60*time.Second),
		statusTimeout:  parseDuration(cfg.StatusTimeout, 15*time.Second),
		callsPerMinute: cfg.CallsPerMinute,
	}
}

// Upload загружает документ методом multipart/form-data
func (c *HTTPClient) Upload(ctx context.Context, accessToken, cif string, standard DocumentStandard, document []byte) (string, error) {
	if err := c.checkBudget(ctx, "upload"); err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "document.xml")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to build multipart request").WithContext(ctx)
	}
	if _, err := part.Write(document); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to build multipart request").WithContext(ctx)
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to build multipart request").WithContext(ctx)
	}

	endpoint := fmt.Sprintf("%s/upload?standard=%s&cif=%s", c.baseURL, standard, url.QueryEscape(cif))

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to create upload request").WithContext(ctx)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+accessToken)

	data, err := c.do(ctx, "upload", req)
	if err != nil {
		return "", err
	}

	var response UploadResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrGatewayOperational, "failed to decode upload response").WithContext(ctx)
	}

	if response.Header.ExecutionStatus != 0 || response.IndexIncarcare == "" {
		messages := make([]string, 0, len(response.Header.Errors))
		for _, e := range response.Header.Errors {
			messages = append(messages, e.ErrorMessage)
		}
		return "", errors.New(errors.ErrGatewayRejected, "gateway rejected the document").
			WithDetails(strings.Join(messages, "; ")).
			WithContext(ctx)
	}

	c.logger.Info("document uploaded to gateway",
		logger.CtxField(ctx),
		logger.String("cif", cif),
		logger.String("tracking_id", response.IndexIncarcare),
	)

	return response.IndexIncarcare, nil
}

// GetStatus запрашивает статус загрузки
func (c *HTTPClient) GetStatus(ctx context.Context, accessToken, trackingID string) (*StatusResponse, error) {
	if err := c.checkBudget(ctx, "status"); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/stareMesaj?id_incarcare=%s", c.baseURL, url.QueryEscape(trackingID))

	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create status request").WithContext(ctx)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	data, err := c.do(ctx, "status", req)
	if err != nil {
		return nil, err
	}

	var response StatusResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrGatewayOperational, "failed to decode status response").WithContext(ctx)
	}

	return &response, nil
}

// ListMessages запрашивает входящие сообщения SPV
func (c *HTTPClient) ListMessages(ctx context.Context, accessToken, cif string, days int, filter string) ([]InboxMessage, error) {
	if err := c.checkBudget(ctx, "messages"); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/listaMesaje?cif=%s&zile=%s", c.baseURL, url.QueryEscape(cif), strconv.Itoa(days))
	if filter != "" {
		endpoint += "&filtru=" + url.QueryEscape(filter)
	}

	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create messages request").WithContext(ctx)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	data, err := c.do(ctx, "messages", req)
	if err != nil {
		return nil, err
	}

	var response InboxResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, errors.Wrap(err, errors.ErrGatewayOperational, "failed to decode messages response").WithContext(ctx)
	}

	// Пустая очередь сообщений приходит как ошибка словаря шлюза,
	// для вызывающего это нормальный пустой результат
	if response.Eroare != "" && len(response.Mesaje) == 0 {
		return nil, nil
	}

	return response.Mesaje, nil
}

// Download скачивает ZIP архив документа
func (c *HTTPClient) Download(ctx context.Context, accessToken, downloadID string) ([]byte, error) {
	if err := c.checkBudget(ctx, "download"); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/descarcare?id=%s", c.baseURL, url.QueryEscape(downloadID))

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to create download request").WithContext(ctx)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return c.do(ctx, "download", req)
}

// MarkRead помечает сообщение прочитанным на стороне шлюза
func (c *HTTPClient) MarkRead(ctx context.Context, accessToken, messageID string) error {
	if err := c.checkBudget(ctx, "mark_read"); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/mesajCitit?id=%s", c.baseURL, url.QueryEscape(messageID))

	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create mark-read request").WithContext(ctx)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	_, err = c.do(ctx, "mark_read", req)
	return err
}

// checkBudget проверяет локальный бюджет обращений к шлюзу
func (c *HTTPClient) checkBudget(ctx context.Context, operation string) error {
	if c.limiter == nil || c.callsPerMinute <= 0 {
		return nil
	}

	exceeded, err := c.limiter.CheckRateLimit(ctx, gatewayBudgetKey, c.callsPerMinute, time.Minute)
	if err != nil {
		// Недоступный лимитер не должен блокировать обращения к шлюзу
		c.logger.Warn("rate limiter unavailable, proceeding without budget check",
			logger.CtxField(ctx),
			logger.Error(err),
		)
		return nil
	}
	if exceeded {
		c.observe(operation, "rate_limited", 0)
		return errors.New(errors.ErrRateLimited, "local gateway call budget exhausted").WithContext(ctx)
	}
	return nil
}

// do выполняет запрос и отображает ответ шлюза на коды ошибок
func (c *HTTPClient) do(ctx context.Context, operation string, req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, "operational_error", time.Since(start))
		return nil, errors.Wrap(err, errors.ErrGatewayOperational, "gateway request failed").WithContext(ctx)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(operation, "operational_error", time.Since(start))
		return nil, errors.Wrap(err, errors.ErrGatewayOperational, "failed to read gateway response").WithContext(ctx)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		c.observe(operation, "success", time.Since(start))
		return data, nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.observe(operation, "unauthorized", time.Since(start))
		return nil, errors.New(errors.ErrUnauthorized, "gateway rejected the access token").WithContext(ctx)
	case resp.StatusCode == http.StatusTooManyRequests:
		c.observe(operation, "rate_limited", time.Since(start))
		return nil, errors.New(errors.ErrRateLimited, "gateway rate limit exceeded").WithContext(ctx)
	case resp.StatusCode >= 500:
		c.observe(operation, "operational_error", time.Since(start))
		return nil, errors.New(errors.ErrGatewayOperational, "gateway returned server error").
			WithDetails(fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data))).
			WithContext(ctx)
	default:
		c.observe(operation, "rejected", time.Since(start))
		return nil, errors.New(errors.ErrGatewayRejected, "gateway rejected the request").
			WithDetails(fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data))).
			WithContext(ctx)
	}
}

func (c *HTTPClient) observe(operation, outcome string, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveGatewayCall(operation, outcome, duration)
	}
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func truncate(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
