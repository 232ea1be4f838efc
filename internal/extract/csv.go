package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const DefaultEncoding = "utf-8"

// CSV читает файл как таблицу: первая строка - заголовок, каждая следующая - Row.
// Пустые ячейки становятся nil.
func CSV(ctx context.Context, path, encoding string) (rows []Row, err error) {
	abs, err := ValidatePath(path, FormatCSV)
	if err != nil {
		return nil, err
	}
	defer guard(abs, FormatCSV, &err)

	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, newExtractionError(abs, FormatCSV, fmt.Errorf("unsupported encoding %q: %w", encoding, err))
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, newExtractionError(abs, FormatCSV, err)
	}
	defer f.Close()

	reader := csv.NewReader(transform.NewReader(f, enc.NewDecoder()))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, newExtractionError(abs, FormatCSV, err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newExtractionError(abs, FormatCSV, err)
		}

		values := make([]any, len(columns))
		for i := range columns {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				values[i] = record[i]
			}
		}
		rows = append(rows, Row{Columns: columns, Values: values})
	}
	return rows, nil
}
