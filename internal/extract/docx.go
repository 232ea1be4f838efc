package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDocumentPart = "word/document.xml"
	docxStylesPart   = "word/styles.xml"

	wordprocessingNS      = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	markupCompatibilityNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// DOCX извлекает абзацы документа с категориями по стилю абзаца
func DOCX(ctx context.Context, path string) (elements []Element, err error) {
	abs, err := ValidatePath(path, FormatDOCX)
	if err != nil {
		return nil, err
	}
	defer guard(abs, FormatDOCX, &err)

	zr, err := zip.OpenReader(abs)
	if err != nil {
		return nil, newExtractionError(abs, FormatDOCX, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	doc, ok := files[docxDocumentPart]
	if !ok {
		return nil, newExtractionError(abs, FormatDOCX, fmt.Errorf("missing required part %s", docxDocumentPart))
	}

	// styles.xml необязателен
	styles := map[string]string{}
	if sf, ok := files[docxStylesPart]; ok {
		if parsed, err := readDocxStyles(sf); err == nil {
			styles = parsed
		}
	}

	paragraphs, err := readDocxParagraphs(doc)
	if err != nil {
		return nil, newExtractionError(abs, FormatDOCX, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, p := range paragraphs {
		text := strings.TrimSpace(p.text)
		if text == "" {
			continue
		}
		category, level := docxCategory(p.styleID, styles[p.styleID], p.numbered)
		elements = append(elements, Element{
			Text:     text,
			Category: category,
			Position: len(elements),
			Level:    level,
		})
	}
	return elements, nil
}

type docxParagraph struct {
	styleID  string
	numbered bool
	text     string
}

// openParagraph - абзац, который ещё не закрыт; text копится в buf
type openParagraph struct {
	docxParagraph
	buf strings.Builder
}

// readDocxParagraphs потоково разбирает document.xml: w:p, w:pStyle, w:numPr, w:t, w:tab, w:br.
// Абзацы надписей (w:txbxContent) вложены в абзац-владелец и выпускаются отдельно,
// не обрывая текст владельца. mc:Fallback дублирует mc:Choice и пропускается.
func readDocxParagraphs(f *zip.File) ([]docxParagraph, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		paragraphs []docxParagraph
		stack      []*openParagraph
		inText     bool
	)
	top := func() *openParagraph {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == markupCompatibilityNS && t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("parse %s: %w", f.Name, err)
				}
				continue
			}
			if t.Name.Space != wordprocessingNS {
				continue
			}
			current := top()
			switch t.Name.Local {
			case "p":
				stack = append(stack, &openParagraph{})
			case "pStyle":
				if current != nil {
					current.styleID = xmlAttr(t, "val")
				}
			case "numPr":
				if current != nil {
					current.numbered = true
				}
			case "t":
				inText = true
			case "tab":
				if current != nil {
					current.buf.WriteString("\t")
				}
			case "br", "cr":
				if current != nil {
					current.buf.WriteString("\n")
				}
			}
		case xml.CharData:
			if current := top(); inText && current != nil {
				current.buf.Write(t)
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if current := top(); current != nil {
					stack = stack[:len(stack)-1]
					current.text = current.buf.String()
					paragraphs = append(paragraphs, current.docxParagraph)
				}
			}
		}
	}
	return paragraphs, nil
}

// readDocxStyles возвращает styleId -> имя стиля
func readDocxStyles(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	styles := make(map[string]string)
	var currentID string
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return styles, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "style":
			currentID = xmlAttr(start, "styleId")
		case "name":
			if currentID != "" {
				styles[currentID] = xmlAttr(start, "val")
			}
		}
	}
}

func docxCategory(styleID, styleName string, numbered bool) (string, int) {
	for _, s := range []string{styleID, styleName} {
		norm := strings.ToLower(strings.ReplaceAll(s, " ", ""))
		switch {
		case norm == "title":
			return CategoryTitle, 1
		case strings.HasPrefix(norm, "heading"):
			level := 1
			if rest := strings.TrimPrefix(norm, "heading"); len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				level = int(rest[0] - '0')
			}
			return CategoryHeading, level
		case strings.HasPrefix(norm, "listparagraph"):
			return CategoryListItem, 0
		}
	}
	if numbered {
		return CategoryListItem, 0
	}
	return CategoryNarrativeText, 0
}

func xmlAttr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
