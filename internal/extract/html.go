package extract

import (
	"context"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var (
	htmlSkipTags = map[string]bool{
		"head": true, "script": true, "style": true, "noscript": true,
		"template": true, "iframe": true, "svg": true,
	}

	htmlBlockTags = map[string]string{
		"h1": CategoryHeading, "h2": CategoryHeading, "h3": CategoryHeading,
		"h4": CategoryHeading, "h5": CategoryHeading, "h6": CategoryHeading,
		"p": CategoryNarrativeText, "pre": CategoryNarrativeText,
		"blockquote": CategoryNarrativeText, "address": CategoryNarrativeText,
		"figcaption": CategoryNarrativeText, "caption": CategoryNarrativeText,
		"dt": CategoryNarrativeText, "dd": CategoryNarrativeText,
		"li": CategoryListItem,
	}

	htmlContainerTags = map[string]bool{
		"html": true, "body": true, "div": true, "section": true, "article": true,
		"main": true, "header": true, "footer": true, "nav": true, "aside": true,
		"ul": true, "ol": true, "dl": true, "form": true, "figure": true,
	}
)

// HTML извлекает блочные элементы документа в порядке следования
func HTML(ctx context.Context, path string) (elements []Element, err error) {
	abs, err := ValidatePath(path, FormatHTML)
	if err != nil {
		return nil, err
	}
	defer guard(abs, FormatHTML, &err)

	f, err := os.Open(abs)
	if err != nil {
		return nil, newExtractionError(abs, FormatHTML, err)
	}
	defer f.Close()

	// Кодировка определяется по BOM и <meta charset>
	r, err := charset.NewReader(f, "text/html")
	if err != nil {
		return nil, newExtractionError(abs, FormatHTML, err)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, newExtractionError(abs, FormatHTML, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &htmlWalker{}
	w.walk(doc)
	w.flushInline()
	return w.elements, nil
}

type htmlWalker struct {
	elements []Element
	inline   strings.Builder
}

func (w *htmlWalker) emit(text, category string, level int) {
	text = collapseSpaces(text)
	if text == "" {
		return
	}
	w.elements = append(w.elements, Element{
		Text:     text,
		Category: category,
		Position: len(w.elements),
		Level:    level,
	})
}

// flushInline выпускает текст, лежащий прямо в контейнере (без <p>)
func (w *htmlWalker) flushInline() {
	if w.inline.Len() == 0 {
		return
	}
	w.emit(w.inline.String(), CategoryNarrativeText, 0)
	w.inline.Reset()
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.inline.WriteString(n.Data)
		return
	case html.ElementNode:
		if htmlSkipTags[n.Data] {
			return
		}
		if category, ok := htmlBlockTags[n.Data]; ok {
			w.flushInline()
			w.emit(nodeText(n), category, headingLevel(n.Data))
			return
		}
		switch n.Data {
		case "table":
			w.flushInline()
			w.table(n)
			return
		case "br":
			w.inline.WriteString("\n")
			return
		}
	}

	container := n.Type == html.ElementNode && htmlContainerTags[n.Data]
	if container {
		w.flushInline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if container {
		w.flushInline()
	}
}

// table выпускает по элементу на строку таблицы, ячейки через " | "
func (w *htmlWalker) table(n *html.Node) {
	var rows func(*html.Node)
	rows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.Data == "tr" {
				var cells []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						if text := collapseSpaces(nodeText(cell)); text != "" {
							cells = append(cells, text)
						}
					}
				}
				w.emit(strings.Join(cells, " | "), CategoryTable, 0)
				continue
			}
			rows(c)
		}
	}
	rows(n)
}

func nodeText(n *html.Node) string {
	var buf strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && htmlSkipTags[n.Data]:
			return
		case n.Type == html.ElementNode && n.Data == "br":
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return buf.String()
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
