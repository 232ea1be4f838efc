package chunker

import (
	"strings"

	"rag_ingest/internal/extract"
)

// Section - группа элементов под одним заголовком
type Section struct {
	Text         string
	Heading      string // текст открывающего заголовка, пусто для вводной секции
	Category     string // категория открывающего заголовка
	Level        int    // уровень открывающего заголовка, 0 для вводной секции
	ElementIndex int    // индекс открывающего заголовка, -1 для вводной секции
}

// GroupByHeadings собирает плоский поток элементов в секции по заголовкам.
// Заголовок закрывает текущую секцию и открывает новую; остальные элементы
// дописываются в текущую с переводом строки. Метаданные секции - это
// метаданные открывающего заголовка, а не дописанных элементов.
func GroupByHeadings(elements []extract.Element) []Section {
	var (
		sections []Section
		current  strings.Builder
		meta     = Section{ElementIndex: -1}
	)

	flush := func() {
		text := strings.TrimSpace(current.String())
		current.Reset()
		if text == "" {
			return
		}
		s := meta
		s.Text = text
		sections = append(sections, s)
	}

	for i, el := range elements {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}

		if el.IsBoundary() {
			flush()
			meta = Section{Heading: text, Category: el.Category, Level: el.Level, ElementIndex: i}
			current.WriteString(text)
			current.WriteString("\n")
			continue
		}

		current.WriteString(text)
		current.WriteString("\n")
	}
	flush()

	return sections
}
