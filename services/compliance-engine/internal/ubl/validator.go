package ubl

import (
	"fmt"

	"EFacturaPlatform/pkg/errors"
	"EFacturaPlatform/pkg/validation"
)

// Validator выполняет локальную проверку фактуры до любого сетевого
// вызова. Ошибка валидации возвращает полный список полей, не
// прошедших проверку, чтобы пользователь исправил все за один раз.
type Validator struct {
	fiscal *validation.Validator
}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{fiscal: validation.NewValidator()}
}

var validTypeCodes = map[string]bool{
	TypeCodeInvoice:           true,
	TypeCodeCreditNote:        true,
	TypeCodeDebitNote:         true,
	TypeCodeCorrective:        true,
	TypeCodeSelfBilledInvoice: true,
}

// Validate проверяет обязательные поля и фискальные идентификаторы
// фактуры. Возвращает ошибку валидации со списком всех проблемных полей.
func (v *Validator) Validate(inv *Invoice) error {
	var fields []string

	if inv.ID == "" {
		fields = append(fields, "id")
	}
	if inv.IssueDate.IsZero() {
		fields = append(fields, "issueDate")
	}
	if inv.CurrencyCode == "" {
		fields = append(fields, "currencyCode")
	}
	if inv.TypeCode != "" && !validTypeCodes[inv.TypeCode] {
		fields = append(fields, "typeCode")
	}

	fields = append(fields, v.validateParty("supplier", inv.Supplier)...)
	fields = append(fields, v.validateParty("customer", inv.Customer)...)

	if len(inv.Lines) == 0 {
		fields = append(fields, "lines")
	}
	for i, line := range inv.Lines {
		fields = append(fields, validateLine(i, line)...)
	}

	if len(fields) > 0 {
		return errors.New(errors.ErrValidation, "invoice failed local validation").
			WithFields(fields...)
	}

	return nil
}

func (v *Validator) validateParty(prefix string, party Party) []string {
	var fields []string

	missing := v.fiscal.ValidateRequiredFields(map[string]string{
		prefix + ".name":    party.Name,
		prefix + ".street":  party.Street,
		prefix + ".city":    party.City,
		prefix + ".country": party.CountryCode,
	})
	fields = append(fields, missing...)

	if err := v.fiscal.ValidateCUI(party.Cui); err != nil {
		fields = append(fields, prefix+".cui")
	}

	return fields
}

func validateLine(index int, line Line) []string {
	var fields []string
	pos := lineField(index)

	if line.Description == "" {
		fields = append(fields, pos+".description")
	}
	if line.Quantity <= 0 {
		fields = append(fields, pos+".quantity")
	}
	if line.UnitPrice < 0 {
		fields = append(fields, pos+".unitPrice")
	}
	if line.VatRate < 0 || line.VatRate > 100 {
		fields = append(fields, pos+".vatRate")
	}

	return fields
}

func lineField(index int) string {
	return fmt.Sprintf("lines[%d]", index)
}
