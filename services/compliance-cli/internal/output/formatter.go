package output

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"
)

// FormatType представляет тип форматирования вывода
type FormatType string

const (
	FormatTable FormatType = "table"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
)

// Formatter интерфейс для форматирования вывода
type Formatter interface {
	Format(data interface{}) (string, error)
}

// ForFormat возвращает форматтер для указанного формата
func ForFormat(format string) (Formatter, error) {
	switch FormatType(format) {
	case FormatTable, "":
		return NewTableFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(true), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// TableFormatter форматирует данные в виде таблицы
type TableFormatter struct{}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Format(data interface{}) (string, error) {
	if table, ok := data.(*TableData); ok {
		return table.String(), nil
	}
	return fmt.Sprintf("%v", data), nil
}

// JSONFormatter форматирует данные в JSON
type JSONFormatter struct {
	Pretty bool
}

func NewJSONFormatter(pretty bool) *JSONFormatter {
	return &JSONFormatter{Pretty: pretty}
}

func (f *JSONFormatter) Format(data interface{}) (string, error) {
	if table, ok := data.(*TableData); ok {
		data = table.Source
	}

	var output []byte
	var err error
	if f.Pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(output), nil
}

// YAMLFormatter форматирует данные в YAML
type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Format(data interface{}) (string, error) {
	if table, ok := data.(*TableData); ok {
		data = table.Source
	}

	output, err := yaml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(output), nil
}
