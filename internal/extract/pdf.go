package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF извлекает текст постранично: один элемент на непустую страницу
func PDF(ctx context.Context, path string) (elements []Element, err error) {
	abs, err := ValidatePath(path, FormatPDF)
	if err != nil {
		return nil, err
	}
	defer guard(abs, FormatPDF, &err)

	f, reader, err := pdf.Open(abs)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, newExtractionError(abs, FormatPDF, err)
	}
	defer f.Close()

	total := reader.NumPage()
	for pageNum := 1; pageNum <= total; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, newExtractionError(abs, FormatPDF, fmt.Errorf("page %d: %w", pageNum, err))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		elements = append(elements, Element{
			Text:     text,
			Category: CategoryPage,
			Position: pageNum,
		})
	}

	return elements, nil
}
