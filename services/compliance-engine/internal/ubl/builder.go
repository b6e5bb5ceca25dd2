package ubl

import (
	"encoding/xml"
	"fmt"
	"sort"

	"EFacturaPlatform/pkg/validation"
)

// Сгенерированный документ следует UBL 2.1 с национальным профилем
// CIUS-RO. Пространства имен объявляются на корневом элементе, префиксы
// cbc/cac соответствуют общепринятой нотации стандарта.

type xmlInvoice struct {
	XMLName         xml.Name `xml:"Invoice"`
	Xmlns           string   `xml:"xmlns,attr"`
	XmlnsCbc        string   `xml:"xmlns:cbc,attr"`
	XmlnsCac        string   `xml:"xmlns:cac,attr"`
	CustomizationID string   `xml:"cbc:CustomizationID"`
	ID              string   `xml:"cbc:ID"`
	IssueDate       string   `xml:"cbc:IssueDate"`
	DueDate         string   `xml:"cbc:DueDate,omitempty"`
	TypeCode        string   `xml:"cbc:InvoiceTypeCode"`
	Note            string   `xml:"cbc:Note,omitempty"`
	CurrencyCode    string   `xml:"cbc:DocumentCurrencyCode"`

	Supplier xmlSupplierParty `xml:"cac:AccountingSupplierParty"`
	Customer xmlCustomerParty `xml:"cac:AccountingCustomerParty"`

	TaxTotal      xmlTaxTotal      `xml:"cac:TaxTotal"`
	MonetaryTotal xmlMonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	Lines         []xmlInvoiceLine `xml:"cac:InvoiceLine"`
}

type xmlSupplierParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlCustomerParty struct {
	Party xmlParty `xml:"cac:Party"`
}

type xmlParty struct {
	EndpointID xmlEndpointID `xml:"cbc:EndpointID"`
	Address    xmlAddress    `xml:"cac:PostalAddress"`
	TaxScheme  xmlPartyTax   `xml:"cac:PartyTaxScheme"`
	LegalName  xmlLegalName  `xml:"cac:PartyLegalEntity"`
}

type xmlEndpointID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type xmlAddress struct {
	Street  string     `xml:"cbc:StreetName"`
	City    string     `xml:"cbc:CityName"`
	County  string     `xml:"cbc:CountrySubentity"`
	Country xmlCountry `xml:"cac:Country"`
}

type xmlCountry struct {
	Code string `xml:"cbc:IdentificationCode"`
}

type xmlPartyTax struct {
	CompanyID string       `xml:"cbc:CompanyID"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlTaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type xmlLegalName struct {
	Name      string `xml:"cbc:RegistrationName"`
	CompanyID string `xml:"cbc:CompanyID,omitempty"`
}

type xmlTaxTotal struct {
	TaxAmount    xmlAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotals []xmlTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type xmlTaxSubtotal struct {
	TaxableAmount xmlAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     xmlAmount      `xml:"cbc:TaxAmount"`
	Category      xmlTaxCategory `xml:"cac:TaxCategory"`
}

type xmlTaxCategory struct {
	ID        string       `xml:"cbc:ID"`
	Percent   string       `xml:"cbc:Percent"`
	TaxScheme xmlTaxScheme `xml:"cac:TaxScheme"`
}

type xmlMonetaryTotal struct {
	LineExtension xmlAmount `xml:"cbc:LineExtensionAmount"`
	TaxExclusive  xmlAmount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusive  xmlAmount `xml:"cbc:TaxInclusiveAmount"`
	Payable       xmlAmount `xml:"cbc:PayableAmount"`
}

type xmlInvoiceLine struct {
	ID            string      `xml:"cbc:ID"`
	Quantity      xmlQuantity `xml:"cbc:InvoicedQuantity"`
	LineExtension xmlAmount   `xml:"cbc:LineExtensionAmount"`
	Item          xmlItem     `xml:"cac:Item"`
	Price         xmlPrice    `xml:"cac:Price"`
}

type xmlQuantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type xmlAmount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

type xmlItem struct {
	Name     string         `xml:"cbc:Name"`
	Category xmlTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type xmlPrice struct {
	Amount xmlAmount `xml:"cbc:PriceAmount"`
}

// Build преобразует фактуру в UBL 2.1 XML с профилем CIUS-RO
func Build(inv *Invoice) ([]byte, error) {
	typeCode := inv.TypeCode
	if typeCode == "" {
		typeCode = TypeCodeInvoice
	}

	doc := xmlInvoice{
		Xmlns:           "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		XmlnsCbc:        "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2",
		XmlnsCac:        "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2",
		CustomizationID: CustomizationID,
		ID:              inv.ID,
		IssueDate:       inv.IssueDate.Format("2006-01-02"),
		TypeCode:        typeCode,
		Note:            inv.Note,
		CurrencyCode:    inv.CurrencyCode,
		Supplier:        xmlSupplierParty{Party: buildParty(inv.Supplier)},
		Customer:        xmlCustomerParty{Party: buildParty(inv.Customer)},
	}

	if !inv.DueDate.IsZero() {
		doc.DueDate = inv.DueDate.Format("2006-01-02")
	}

	lineTotal := inv.TotalWithoutVat()
	vatTotal := inv.TotalVat()

	doc.TaxTotal = xmlTaxTotal{
		TaxAmount:    amount(inv.CurrencyCode, vatTotal),
		TaxSubtotals: buildTaxSubtotals(inv),
	}
	doc.MonetaryTotal = xmlMonetaryTotal{
		LineExtension: amount(inv.CurrencyCode, lineTotal),
		TaxExclusive:  amount(inv.CurrencyCode, lineTotal),
		TaxInclusive:  amount(inv.CurrencyCode, lineTotal+vatTotal),
		Payable:       amount(inv.CurrencyCode, lineTotal+vatTotal),
	}

	for i, line := range inv.Lines {
		unitCode := line.UnitCode
		if unitCode == "" {
			unitCode = "H87" // piece
		}
		doc.Lines = append(doc.Lines, xmlInvoiceLine{
			ID:            fmt.Sprintf("%d", i+1),
			Quantity:      xmlQuantity{UnitCode: unitCode, Value: formatNumber(line.Quantity)},
			LineExtension: amount(inv.CurrencyCode, line.LineTotal()),
			Item: xmlItem{
				Name: line.Description,
				Category: xmlTaxCategory{
					ID:        "S",
					Percent:   formatNumber(line.EffectiveVatRate()),
					TaxScheme: xmlTaxScheme{ID: "VAT"},
				},
			},
			Price: xmlPrice{Amount: amount(inv.CurrencyCode, line.UnitPrice)},
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ubl invoice: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}

func buildParty(party Party) xmlParty {
	cui := validation.CleanCUI(party.Cui)
	return xmlParty{
		// SchemeID 9947 соответствует румынскому фискальному коду
		EndpointID: xmlEndpointID{SchemeID: "9947", Value: cui},
		Address: xmlAddress{
			Street:  party.Street,
			City:    party.City,
			County:  party.County,
			Country: xmlCountry{Code: party.CountryCode},
		},
		TaxScheme: xmlPartyTax{
			CompanyID: "RO" + cui,
			TaxScheme: xmlTaxScheme{ID: "VAT"},
		},
		LegalName: xmlLegalName{
			Name:      party.Name,
			CompanyID: party.RegCom,
		},
	}
}

func buildTaxSubtotals(inv *Invoice) []xmlTaxSubtotal {
	groups := inv.VatGroups()

	rates := make([]float64, 0, len(groups))
	for rate := range groups {
		rates = append(rates, rate)
	}
	sort.Float64s(rates)

	taxable := make(map[float64]float64)
	for _, line := range inv.Lines {
		taxable[line.EffectiveVatRate()] += line.LineTotal()
	}

	subtotals := make([]xmlTaxSubtotal, 0, len(rates))
	for _, rate := range rates {
		subtotals = append(subtotals, xmlTaxSubtotal{
			TaxableAmount: amount(inv.CurrencyCode, taxable[rate]),
			TaxAmount:     amount(inv.CurrencyCode, groups[rate]),
			Category: xmlTaxCategory{
				ID:        "S",
				Percent:   formatNumber(rate),
				TaxScheme: xmlTaxScheme{ID: "VAT"},
			},
		})
	}
	return subtotals
}

func amount(currency string, value float64) xmlAmount {
	return xmlAmount{CurrencyID: currency, Value: fmt.Sprintf("%.2f", value)}
}

func formatNumber(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
