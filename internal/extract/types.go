// Package extract оборачивает внешние парсеры форматов и возвращает
// упорядоченные элементы (PDF/HTML/DOCX) или строки (CSV/SQL).
package extract

import (
	"bytes"
	"fmt"
	"strings"
)

// Format - тег формата источника, он же source_type в метаданных чанка
type Format string

const (
	FormatPDF       Format = "pdf"
	FormatCSV       Format = "csv"
	FormatHTML      Format = "html"
	FormatDOCX      Format = "docx"
	FormatOracleSQL Format = "oracle_sql"
)

// Extensions возвращает допустимые расширения файла для формата
func (f Format) Extensions() []string {
	switch f {
	case FormatPDF:
		return []string{".pdf"}
	case FormatCSV:
		return []string{".csv"}
	case FormatHTML:
		return []string{".html", ".htm"}
	case FormatDOCX:
		return []string{".docx"}
	default:
		return nil
	}
}

// Категории элементов
const (
	CategoryTitle         = "Title"
	CategoryHeading       = "Heading"
	CategoryNarrativeText = "NarrativeText"
	CategoryListItem      = "ListItem"
	CategoryTable         = "Table"
	CategoryPage          = "Page"
)

// Element - сырой элемент документа
type Element struct {
	Text     string
	Category string
	Position int // номер страницы (PDF) или индекс элемента (HTML/DOCX)
	Level    int // уровень заголовка, 0 для остальных
}

// IsBoundary сообщает, начинает ли элемент новую секцию
func (e Element) IsBoundary() bool {
	return strings.HasPrefix(e.Category, CategoryTitle) || strings.HasPrefix(e.Category, CategoryHeading)
}

// Row - строка таблицы с сохранённым порядком колонок; nil означает NULL
type Row struct {
	Columns []string
	Values  []any
}

// Get возвращает значение колонки без учёта регистра имени
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if strings.EqualFold(c, column) && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// ID возвращает значение колонки id (в любом регистре) или nil.
// Пустая строка считается отсутствием id; числовой 0 остаётся id.
func (r Row) ID() any {
	v, _ := r.Get("id")
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return nil
		}
	case []byte:
		if len(bytes.TrimSpace(id)) == 0 {
			return nil
		}
	}
	return v
}

// Text сериализует ненулевые колонки как "column: value" построчно
func (r Row) Text() string {
	return r.TextOf(nil)
}

// TextOf как Text, но только для перечисленных колонок (в их порядке)
func (r Row) TextOf(columns []string) string {
	var lines []string
	if len(columns) == 0 {
		for i, c := range r.Columns {
			if i >= len(r.Values) || r.Values[i] == nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %v", c, r.Values[i]))
		}
		return strings.Join(lines, "\n")
	}
	for _, c := range columns {
		v, ok := r.Get(c)
		if !ok || v == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %v", c, v))
	}
	return strings.Join(lines, "\n")
}
