// Package loader связывает извлечение, структурное разбиение и обогащение
// в одну стратегию на формат источника.
package loader

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"rag_ingest/internal/chunker"
	"rag_ingest/internal/extract"
	"rag_ingest/internal/lang"
)

// Loader превращает один источник в упорядоченные чанки.
// Для файловых форматов source - путь, для SQL - текст запроса.
type Loader interface {
	Format() extract.Format
	Load(ctx context.Context, source string) ([]chunker.Chunk, error)
}

// PDFLoader - один чанк на непустую страницу, ключ doc_id - номер страницы
type PDFLoader struct {
	enricher *chunker.Enricher
}

func NewPDFLoader(detector lang.Detector) *PDFLoader {
	return &PDFLoader{enricher: chunker.NewEnricher(detector)}
}

func (l *PDFLoader) Format() extract.Format { return extract.FormatPDF }

func (l *PDFLoader) Load(ctx context.Context, path string) ([]chunker.Chunk, error) {
	elements, err := extract.PDF(ctx, path)
	if err != nil {
		return nil, err
	}
	abs, err := extract.AbsPath(path)
	if err != nil {
		return nil, err
	}

	drafts := make([]chunker.Draft, 0, len(elements))
	for _, el := range elements {
		drafts = append(drafts, chunker.Draft{
			Content: el.Text,
			Key:     strconv.Itoa(el.Position),
			Extras:  chunker.Metadata{chunker.KeyPageNumber: el.Position},
		})
	}
	return l.enricher.Enrich(chunker.Source{Type: extract.FormatPDF, Path: abs}, drafts), nil
}

// StructuredLoader обслуживает HTML и DOCX: элементы группируются по
// заголовкам, ключ doc_id - текст открывающего заголовка
type StructuredLoader struct {
	format    extract.Format
	extractFn func(ctx context.Context, path string) ([]extract.Element, error)
	tagKey    string
	enricher  *chunker.Enricher
}

func NewHTMLLoader(detector lang.Detector) *StructuredLoader {
	return &StructuredLoader{
		format:    extract.FormatHTML,
		extractFn: extract.HTML,
		tagKey:    chunker.KeyHTMLTag,
		enricher:  chunker.NewEnricher(detector),
	}
}

func NewDOCXLoader(detector lang.Detector) *StructuredLoader {
	return &StructuredLoader{
		format:    extract.FormatDOCX,
		extractFn: extract.DOCX,
		tagKey:    chunker.KeyDocxStyle,
		enricher:  chunker.NewEnricher(detector),
	}
}

func (l *StructuredLoader) Format() extract.Format { return l.format }

func (l *StructuredLoader) Load(ctx context.Context, path string) ([]chunker.Chunk, error) {
	elements, err := l.extractFn(ctx, path)
	if err != nil {
		return nil, err
	}
	abs, err := extract.AbsPath(path)
	if err != nil {
		return nil, err
	}

	sections := chunker.GroupByHeadings(elements)
	drafts := make([]chunker.Draft, 0, len(sections))
	for _, s := range sections {
		extras := chunker.Metadata{
			chunker.KeyElementIndex: s.ElementIndex,
			chunker.KeyHeader:       s.Heading,
		}
		// у вводной секции нет открывающего заголовка
		if s.Category != "" {
			extras[l.tagKey] = s.Category
			extras[chunker.KeyHeadingLevel] = s.Level
		}
		drafts = append(drafts, chunker.Draft{
			Content: s.Text,
			Key:     s.Heading,
			Extras:  extras,
		})
	}
	return l.enricher.Enrich(chunker.Source{Type: l.format, Path: abs}, drafts), nil
}

// CSVLoader - одна строка таблицы на чанк
type CSVLoader struct {
	encoding    string
	idColumn    string
	textColumns []string
	enricher    *chunker.Enricher
}

// CSVOptions - необязательные параметры CSV
type CSVOptions struct {
	Encoding    string   // по умолчанию utf-8
	IDColumn    string   // колонка для ключа doc_id вместо индекса строки
	TextColumns []string // колонки для content, пусто - все
}

func NewCSVLoader(detector lang.Detector, opts CSVOptions) *CSVLoader {
	return &CSVLoader{
		encoding:    opts.Encoding,
		idColumn:    opts.IDColumn,
		textColumns: opts.TextColumns,
		enricher:    chunker.NewEnricher(detector),
	}
}

func (l *CSVLoader) Format() extract.Format { return extract.FormatCSV }

func (l *CSVLoader) Load(ctx context.Context, path string) ([]chunker.Chunk, error) {
	rows, err := extract.CSV(ctx, path, l.encoding)
	if err != nil {
		return nil, err
	}
	abs, err := extract.AbsPath(path)
	if err != nil {
		return nil, err
	}

	drafts := make([]chunker.Draft, 0, len(rows))
	for i, row := range rows {
		key := strconv.Itoa(i)
		extras := chunker.Metadata{
			chunker.KeyRowIndex: i,
			chunker.KeyColumns:  slices.Clone(row.Columns),
		}

		var rowID any
		if l.idColumn != "" {
			rowID, _ = row.Get(l.idColumn)
			if rowID != nil {
				key = fmt.Sprint(rowID)
			}
		} else {
			rowID = row.ID()
		}
		if rowID != nil {
			extras[chunker.KeyRowID] = rowID
		}

		drafts = append(drafts, chunker.Draft{
			Content: row.TextOf(l.textColumns),
			Key:     key,
			Extras:  extras,
		})
	}
	return l.enricher.Enrich(chunker.Source{Type: extract.FormatCSV, Path: abs}, drafts), nil
}

// SQLLoader выполняет запрос и выпускает чанк на строку результата.
// source_path чанков - текст запроса.
type SQLLoader struct {
	driver     string
	dataSource string
	enricher   *chunker.Enricher
}

func NewSQLLoader(detector lang.Detector, driver, dataSource string) *SQLLoader {
	return &SQLLoader{
		driver:     driver,
		dataSource: dataSource,
		enricher:   chunker.NewEnricher(detector),
	}
}

func (l *SQLLoader) Format() extract.Format { return extract.FormatOracleSQL }

func (l *SQLLoader) Load(ctx context.Context, query string) ([]chunker.Chunk, error) {
	rows, err := extract.SQL(ctx, extract.SQLSource{
		Driver:     l.driver,
		DataSource: l.dataSource,
		Query:      query,
	})
	if err != nil {
		return nil, err
	}

	drafts := make([]chunker.Draft, 0, len(rows))
	for i, row := range rows {
		rowID := row.ID()
		key := strconv.Itoa(i)
		if rowID != nil {
			key = fmt.Sprint(rowID)
		}
		drafts = append(drafts, chunker.Draft{
			Content: row.Text(),
			Key:     key,
			Extras: chunker.Metadata{
				chunker.KeyQuery:   query,
				chunker.KeyRowID:   rowID,
				chunker.KeyColumns: slices.Clone(row.Columns),
			},
		})
	}
	return l.enricher.Enrich(chunker.Source{Type: extract.FormatOracleSQL, Path: query}, drafts), nil
}
