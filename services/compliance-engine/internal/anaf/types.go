package anaf

// Формы ответов шлюза ANAF SPV. Имена JSON полей соответствуют
// фактическому API шлюза и не подлежат переименованию.

// DocumentStandard определяет тип загружаемого документа
type DocumentStandard string

const (
	StandardUBL       DocumentStandard = "UBL"
	StandardTransport DocumentStandard = "ETRANSP"
)

// UploadHeader заголовок ответа на загрузку документа
type UploadHeader struct {
	ExecutionStatus int           `json:"ExecutionStatus"`
	Errors          []UploadError `json:"Errors,omitempty"`
}

// UploadError одна ошибка из ответа шлюза на загрузку
type UploadError struct {
	ErrorMessage string `json:"errorMessage"`
}

// UploadResponse ответ шлюза на загрузку документа.
// IndexIncarcare — идентификатор загрузки, по которому опрашивается статус.
type UploadResponse struct {
	Header         UploadHeader `json:"header"`
	IndexIncarcare string       `json:"index_incarcare"`
}

// StatusResponse ответ шлюза на запрос статуса загрузки.
// Stare — код состояния в словаре шлюза, Mesaj — пояснение.
type StatusResponse struct {
	Stare        string `json:"stare"`
	Mesaj        string `json:"mesaj,omitempty"`
	IDDescarcare string `json:"id_descarcare,omitempty"`
}

// InboxMessage одно сообщение из входящей очереди SPV
type InboxMessage struct {
	ID           string `json:"id"`
	DataCreare   string `json:"data_creare"`
	Cif          string `json:"cif"`
	IDSolicitare string `json:"id_solicitare"`
	Detalii      string `json:"detalii"`
	Tip          string `json:"tip"`
}

// InboxResponse ответ шлюза на запрос входящих сообщений
type InboxResponse struct {
	Mesaje []InboxMessage `json:"mesaje"`
	Eroare string         `json:"eroare,omitempty"`
}

// TokenResponse ответ OAuth2 сервера авторизации
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// oauthErrorResponse тело ошибки OAuth2 сервера
type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
