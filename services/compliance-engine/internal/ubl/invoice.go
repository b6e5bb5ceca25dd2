package ubl

import (
	"time"
)

// Коды типов фактур UBL, принимаемые шлюзом
const (
	TypeCodeInvoice           = "380"
	TypeCodeCreditNote        = "381"
	TypeCodeDebitNote         = "383"
	TypeCodeCorrective        = "384"
	TypeCodeSelfBilledInvoice = "389"
)

// CustomizationID идентифицирует национальный профиль CIUS-RO поверх EN 16931
const CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1"

// DefaultVatRate ставка НДС по умолчанию, если строка не задает свою
const DefaultVatRate = 19.0

// Party представляет сторону сделки
type Party struct {
	Name        string `json:"name"`
	Cui         string `json:"cui"`
	RegCom      string `json:"reg_com,omitempty"`
	Street      string `json:"street"`
	City        string `json:"city"`
	County      string `json:"county"`
	CountryCode string `json:"country_code"`
}

// Line представляет одну строку фактуры
type Line struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitCode    string  `json:"unit_code"`
	UnitPrice   float64 `json:"unit_price"`
	VatRate     float64 `json:"vat_rate"`
}

// Invoice представляет фактуру до преобразования в UBL XML
type Invoice struct {
	ID           string    `json:"id"`
	TypeCode     string    `json:"type_code"`
	IssueDate    time.Time `json:"issue_date"`
	DueDate      time.Time `json:"due_date"`
	CurrencyCode string    `json:"currency_code"`
	Supplier     Party     `json:"supplier"`
	Customer     Party     `json:"customer"`
	Lines        []Line    `json:"lines"`
	Note         string    `json:"note,omitempty"`
}

// LineTotal возвращает сумму строки без НДС
func (l Line) LineTotal() float64 {
	return l.Quantity * l.UnitPrice
}

// EffectiveVatRate возвращает ставку строки либо ставку по умолчанию
func (l Line) EffectiveVatRate() float64 {
	if l.VatRate == 0 {
		return DefaultVatRate
	}
	return l.VatRate
}

// TotalWithoutVat возвращает сумму фактуры без НДС
func (inv *Invoice) TotalWithoutVat() float64 {
	var total float64
	for _, line := range inv.Lines {
		total += line.LineTotal()
	}
	return total
}

// VatGroups группирует строки по ставке НДС и возвращает сумму налога
// на каждую ставку
func (inv *Invoice) VatGroups() map[float64]float64 {
	groups := make(map[float64]float64)
	for _, line := range inv.Lines {
		rate := line.EffectiveVatRate()
		groups[rate] += line.LineTotal() * rate / 100
	}
	return groups
}

// TotalVat возвращает общую сумму НДС по фактуре
func (inv *Invoice) TotalVat() float64 {
	var total float64
	for _, amount := range inv.VatGroups() {
		total += amount
	}
	return total
}
