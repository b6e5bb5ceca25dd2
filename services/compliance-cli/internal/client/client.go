package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client представляет HTTP клиент Compliance Engine API
type Client struct {
	baseURL string
	http    *http.Client
}

// New создает клиент API с указанным адресом сервера
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError представляет тело ошибки API
type apiError struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Fields  []string `json:"fields,omitempty"`
	} `json:"error"`
}

// Submission представляет подачу фактуры в ответе API
type Submission struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenant_id"`
	InvoiceID         string `json:"invoice_id"`
	GatewayTrackingID string `json:"gateway_tracking_id,omitempty"`
	Status            string `json:"status"`
	AttemptCount      int    `json:"attempt_count"`
	LastError         string `json:"last_error,omitempty"`
	CancelledLocally  bool   `json:"cancelled_locally"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// SubmissionList представляет страницу списка подач
type SubmissionList struct {
	Submissions []Submission `json:"submissions"`
	Count       int          `json:"count"`
}

// Transport представляет транспортную декларацию в ответе API
type Transport struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	VehiclePlate   string `json:"vehicle_plate"`
	RouteFrom      string `json:"route_from"`
	RouteTo        string `json:"route_to"`
	CarrierCui     string `json:"carrier_cui"`
	GatewayUitCode string `json:"gateway_uit_code,omitempty"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

// TransportList представляет страницу списка деклараций
type TransportList struct {
	Transports []Transport `json:"transports"`
	Count      int         `json:"count"`
}

// Message представляет сообщение из почтового ящика шлюза
type Message struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenant_id"`
	MessageID         string `json:"message_id"`
	Type              string `json:"type"`
	RelatedTrackingID string `json:"related_tracking_id,omitempty"`
	Details           string `json:"details,omitempty"`
	Read              bool   `json:"read"`
	ReceivedAt        string `json:"received_at"`
}

// MessageList представляет страницу списка сообщений
type MessageList struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

// Deadline представляет регуляторный срок
type Deadline struct {
	Kind      string `json:"kind"`
	DueAt     string `json:"dueAt"`
	DaysUntil int    `json:"daysUntil"`
}

// DeadlineList представляет список сроков
type DeadlineList struct {
	Deadlines []Deadline `json:"deadlines"`
	Count     int        `json:"count"`
}

// Connection представляет состояние подключения арендатора к SPV
type Connection struct {
	TenantID  string `json:"tenant_id"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Scope     string `json:"scope,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError превращает тело ошибки API в читаемую ошибку CLI
func decodeError(statusCode int, raw []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
		if len(apiErr.Error.Fields) > 0 {
			return fmt.Errorf("%s (fields: %v)", apiErr.Error.Message, apiErr.Error.Fields)
		}
		return fmt.Errorf("%s", apiErr.Error.Message)
	}

	// Ответы валидации и сбоев шлюза несут сообщение на верхнем уровне
	var flat struct {
		Message string   `json:"message"`
		Fields  []string `json:"fields,omitempty"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && flat.Message != "" {
		if len(flat.Fields) > 0 {
			return fmt.Errorf("%s (fields: %v)", flat.Message, flat.Fields)
		}
		return fmt.Errorf("%s", flat.Message)
	}
	return fmt.Errorf("server returned %d: %s", statusCode, bytes.TrimSpace(raw))
}

// ListSubmissions возвращает подачи по фильтру
func (c *Client) ListSubmissions(ctx context.Context, tenantID, status string, nonTerminal bool, limit int) (*SubmissionList, error) {
	query := url.Values{}
	if tenantID != "" {
		query.Set("tenant_id", tenantID)
	}
	if status != "" {
		query.Set("status", status)
	}
	if nonTerminal {
		query.Set("non_terminal", "true")
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var list SubmissionList
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSubmission возвращает подачу по ID
func (c *Client) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/"+id, nil, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// SubmitInvoice подает фактуру из произвольного JSON
func (c *Client) SubmitInvoice(ctx context.Context, tenantID string, invoice json.RawMessage) (*Submission, error) {
	body := map[string]interface{}{
		"tenantId": tenantID,
		"invoice":  invoice,
	}
	var sub Submission
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions", nil, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubmission отменяет подачу
func (c *Client) CancelSubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions/"+id+"/cancel", nil, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// RetrySubmission возвращает подачу из ERROR в обработку
func (c *Client) RetrySubmission(ctx context.Context, id string) (*Submission, error) {
	var sub Submission
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions/"+id+"/retry", nil, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListTransports возвращает декларации арендатора
func (c *Client) ListTransports(ctx context.Context, tenantID string, limit int) (*TransportList, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var list TransportList
	if err := c.do(ctx, http.MethodGet, "/api/v1/transports", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// TransportAction выполняет переход жизненного цикла декларации
func (c *Client) TransportAction(ctx context.Context, id, action string) (*Transport, error) {
	var doc Transport
	if err := c.do(ctx, http.MethodPost, "/api/v1/transports/"+id+"/"+action, nil, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListInbox возвращает сообщения почтового ящика
func (c *Client) ListInbox(ctx context.Context, tenantID string, unreadOnly bool, limit int) (*MessageList, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)
	if unreadOnly {
		query.Set("read", "false")
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var list MessageList
	if err := c.do(ctx, http.MethodGet, "/api/v1/inbox", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MarkMessageRead помечает сообщение прочитанным
func (c *Client) MarkMessageRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/inbox/"+id+"/read", nil, nil, nil)
}

// DownloadMessage скачивает документ сообщения: ZIP архив целиком
// или извлеченный из него XML
func (c *Client) DownloadMessage(ctx context.Context, id string, asXML bool) ([]byte, error) {
	endpoint := c.baseURL + "/api/v1/inbox/" + id + "/download"
	if asXML {
		endpoint += "?format=xml"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, raw)
	}
	return raw, nil
}

// ListDeadlines возвращает регуляторные сроки
func (c *Client) ListDeadlines(ctx context.Context, dueSoon bool) (*DeadlineList, error) {
	query := url.Values{}
	if dueSoon {
		query.Set("due_soon", "true")
	}

	var list DeadlineList
	if err := c.do(ctx, http.MethodGet, "/api/v1/deadlines", query, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SpvConnection возвращает состояние подключения арендатора к SPV
func (c *Client) SpvConnection(ctx context.Context, tenantID string) (*Connection, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)

	var conn Connection
	if err := c.do(ctx, http.MethodGet, "/api/v1/spv/connection", query, nil, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// SpvAuthorize начинает авторизацию и возвращает URL для браузера
func (c *Client) SpvAuthorize(ctx context.Context, tenantID string) (string, error) {
	query := url.Values{}
	query.Set("tenant_id", tenantID)

	var resp map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/v1/spv/authorize", query, nil, &resp); err != nil {
		return "", err
	}
	return resp["url"], nil
}
