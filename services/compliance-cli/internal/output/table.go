package output

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// TableData представляет данные для табличного вывода.
// Source хранит исходный объект для JSON/YAML форматтеров.
type TableData struct {
	Headers []string
	Rows    [][]string
	Source  interface{}
}

// NewTableData создает новые табличные данные
func NewTableData(headers []string, source interface{}) *TableData {
	return &TableData{
		Headers: headers,
		Rows:    make([][]string, 0),
		Source:  source,
	}
}

// AddRow добавляет строку
func (td *TableData) AddRow(cells ...string) {
	td.Rows = append(td.Rows, cells)
}

// String возвращает строковое представление таблицы
func (td *TableData) String() string {
	if len(td.Rows) == 0 {
		return "No data found"
	}

	var builder strings.Builder
	w := tabwriter.NewWriter(&builder, 0, 0, 2, ' ', 0)

	if len(td.Headers) > 0 {
		fmt.Fprintln(w, strings.Join(td.Headers, "\t"))
		separators := make([]string, len(td.Headers))
		for i := range separators {
			separators[i] = strings.Repeat("-", len(td.Headers[i]))
		}
		fmt.Fprintln(w, strings.Join(separators, "\t"))
	}

	for _, row := range td.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
	return builder.String()
}
