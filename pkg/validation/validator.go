package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validator предоставляет функции валидации румынских фискальных идентификаторов
type Validator struct{}

// NewValidator создает новый Validator
func NewValidator() *Validator {
	return &Validator{}
}

var (
	platePattern = regexp.MustCompile(`^(B[0-9]{2,3}|[A-Z]{2}[0-9]{2})[A-Z]{3}$`)
	uitPattern   = regexp.MustCompile(`^UIT[0-9A-Z]+$`)
)

// CleanCUI убирает префикс RO и пробелы из фискального кода
func CleanCUI(cui string) string {
	cleaned := strings.TrimSpace(strings.ToUpper(cui))
	cleaned = strings.TrimPrefix(cleaned, "RO")
	return strings.TrimSpace(cleaned)
}

// ValidateCUI проверяет румынский фискальный код (CUI/CIF) с контрольной цифрой
func (v *Validator) ValidateCUI(cui string) error {
	cleaned := CleanCUI(cui)
	if cleaned == "" {
		return fmt.Errorf("cui is required")
	}
	if len(cleaned) < 2 || len(cleaned) > 10 {
		return fmt.Errorf("cui must have between 2 and 10 digits, got %d", len(cleaned))
	}
	for _, r := range cleaned {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("cui must contain only digits")
		}
	}

	// Контрольная цифра: свертка с ключом 753217532
	key := "753217532"
	digits := cleaned[:len(cleaned)-1]
	control := int(cleaned[len(cleaned)-1] - '0')

	sum := 0
	keyOffset := len(key) - len(digits)
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * int(key[keyOffset+i]-'0')
	}

	expected := sum * 10 % 11
	if expected == 10 {
		expected = 0
	}
	if expected != control {
		return fmt.Errorf("cui control digit mismatch")
	}

	return nil
}

// ValidateCNP проверяет румынский персональный код (CNP) из 13 цифр
func (v *Validator) ValidateCNP(cnp string) error {
	cnp = strings.TrimSpace(cnp)
	if len(cnp) != 13 {
		return fmt.Errorf("cnp must have exactly 13 digits, got %d", len(cnp))
	}
	for _, r := range cnp {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("cnp must contain only digits")
		}
	}

	// Контрольная цифра: свертка с ключом 279146358279
	key := "279146358279"
	sum := 0
	for i := 0; i < 12; i++ {
		sum += int(cnp[i]-'0') * int(key[i]-'0')
	}

	expected := sum % 11
	if expected == 10 {
		expected = 1
	}
	if expected != int(cnp[12]-'0') {
		return fmt.Errorf("cnp control digit mismatch")
	}

	return nil
}

// ValidateVehiclePlate проверяет румынский регистрационный номер.
// Бухарест использует три цифры (B123ABC), уезды две (CJ12ABC).
func (v *Validator) ValidateVehiclePlate(plate string) error {
	normalized := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(plate)))
	if normalized == "" {
		return fmt.Errorf("vehicle plate is required")
	}
	if !platePattern.MatchString(normalized) {
		return fmt.Errorf("invalid vehicle plate format: %s", plate)
	}
	return nil
}

// ValidateUIT проверяет формат кода UIT, выданного шлюзом e-Transport
func (v *Validator) ValidateUIT(uit string) error {
	uit = strings.TrimSpace(uit)
	if uit == "" {
		return fmt.Errorf("uit code is required")
	}
	if !uitPattern.MatchString(uit) {
		return fmt.Errorf("invalid uit code format: %s", uit)
	}
	return nil
}

// ValidateRequiredFields проверяет, что все обязательные поля непустые.
// Возвращает список отсутствующих полей.
func (v *Validator) ValidateRequiredFields(fields map[string]string) []string {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
