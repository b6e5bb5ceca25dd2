package ubl

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EFacturaPlatform/pkg/errors"
)

func validInvoice() *Invoice {
	return &Invoice{
		ID:           "INV-2025-0042",
		TypeCode:     TypeCodeInvoice,
		IssueDate:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:      time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		CurrencyCode: "RON",
		Supplier: Party{
			Name:       "Furnizor SRL",
			Cui:        "RO14399840",
			RegCom:     "J40/1234/2002",
			Street:     "Str. Exemplu 1",
			City:       "Bucuresti",
			County:     "Sector 1",
			CountryCode: "RO",
		},
		Customer: Party{
			Name:       "Client SRL",
			Cui:        "19",
			Street:     "Str. Client 2",
			City:       "Cluj-Napoca",
			County:     "Cluj",
			CountryCode: "RO",
		},
		Lines: []Line{
			{Description: "Servicii consultanta", Quantity: 10, UnitCode: "HUR", UnitPrice: 100, VatRate: 19},
			{Description: "Carti", Quantity: 2, UnitPrice: 50, VatRate: 5},
		},
	}
}

func TestInvoiceTotals(t *testing.T) {
	inv := validInvoice()

	assert.InDelta(t, 1100.0, inv.TotalWithoutVat(), 0.001)
	assert.InDelta(t, 190.0+5.0, inv.TotalVat(), 0.001)

	groups := inv.VatGroups()
	require.Len(t, groups, 2)
	assert.InDelta(t, 190.0, groups[19], 0.001)
	assert.InDelta(t, 5.0, groups[5], 0.001)
}

func TestLine_EffectiveVatRate_Default(t *testing.T) {
	line := Line{Description: "Produs", Quantity: 1, UnitPrice: 100, VatRate: 0}
	assert.InDelta(t, DefaultVatRate, line.EffectiveVatRate(), 0.001)
}

func TestValidator_ValidInvoice(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(validInvoice()))
}

func TestValidator_CollectsAllFields(t *testing.T) {
	inv := validInvoice()
	inv.ID = ""
	inv.CurrencyCode = ""
	inv.Supplier.Cui = "14399841" // контрольная сумма не сходится
	inv.Lines[1].Description = ""

	v := NewValidator()
	err := v.Validate(inv)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	fields := errors.Fields(err)
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "currencyCode")
	assert.Contains(t, fields, "supplier.cui")
	assert.Contains(t, fields, "lines[1].description")
}

func TestValidator_NoLines(t *testing.T) {
	inv := validInvoice()
	inv.Lines = nil

	err := NewValidator().Validate(inv)
	require.Error(t, err)
	assert.Contains(t, errors.Fields(err), "lines")
}

func TestValidator_UnknownTypeCode(t *testing.T) {
	inv := validInvoice()
	inv.TypeCode = "999"

	err := NewValidator().Validate(inv)
	require.Error(t, err)
	assert.Contains(t, errors.Fields(err), "typeCode")
}

func TestBuild_ProducesUblDocument(t *testing.T) {
	body, err := Build(validInvoice())
	require.NoError(t, err)

	doc := string(body)
	assert.True(t, strings.HasPrefix(doc, xmlHeaderPrefix))
	assert.Contains(t, doc, CustomizationID)
	assert.Contains(t, doc, "<cbc:ID>INV-2025-0042</cbc:ID>")
	assert.Contains(t, doc, "<cbc:IssueDate>2025-03-10</cbc:IssueDate>")
	assert.Contains(t, doc, "<cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>")
	assert.Contains(t, doc, "<cbc:DocumentCurrencyCode>RON</cbc:DocumentCurrencyCode>")
	// префикс RO отбрасывается в идентификаторе контрагента
	assert.Contains(t, doc, `<cbc:EndpointID schemeID="9947">14399840</cbc:EndpointID>`)
	assert.Contains(t, doc, "<cbc:CompanyID>RO14399840</cbc:CompanyID>")
	// итоги: 1100 без НДС, 195 НДС, 1295 к оплате
	assert.Contains(t, doc, `<cbc:TaxAmount currencyID="RON">195.00</cbc:TaxAmount>`)
	assert.Contains(t, doc, `<cbc:PayableAmount currencyID="RON">1295.00</cbc:PayableAmount>`)
	// две ставки НДС дают два блока TaxSubtotal
	assert.Equal(t, 2, strings.Count(doc, "<cac:TaxSubtotal>"))
}

func TestBuild_DefaultsTypeCodeAndUnit(t *testing.T) {
	inv := validInvoice()
	inv.TypeCode = ""
	inv.Lines = inv.Lines[:1]
	inv.Lines[0].UnitCode = ""

	body, err := Build(inv)
	require.NoError(t, err)

	doc := string(body)
	assert.Contains(t, doc, "<cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>")
	assert.Contains(t, doc, `unitCode="H87"`)
}

const xmlHeaderPrefix = `<?xml version="1.0" encoding="UTF-8"?>`
