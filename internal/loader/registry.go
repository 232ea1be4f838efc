package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rag_ingest/internal/extract"
	"rag_ingest/internal/lang"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// extensionFormats - фиксированный набор поддерживаемых расширений
var extensionFormats = map[string]extract.Format{
	".pdf":  extract.FormatPDF,
	".csv":  extract.FormatCSV,
	".html": extract.FormatHTML,
	".htm":  extract.FormatHTML,
	".docx": extract.FormatDOCX,
}

// FormatOf определяет формат по расширению файла без учёта регистра
func FormatOf(path string) (extract.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := extensionFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// Registry выбирает стратегию загрузки для файла
type Registry struct {
	loaders map[extract.Format]Loader
}

// NewRegistry создаёт стратегии для всех файловых форматов
func NewRegistry(detector lang.Detector, csvOpts CSVOptions) *Registry {
	r := &Registry{loaders: make(map[extract.Format]Loader)}
	for _, l := range []Loader{
		NewPDFLoader(detector),
		NewHTMLLoader(detector),
		NewDOCXLoader(detector),
		NewCSVLoader(detector, csvOpts),
	} {
		r.loaders[l.Format()] = l
	}
	return r
}

// ForPath возвращает стратегию по расширению файла
func (r *Registry) ForPath(path string) (Loader, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return r.ForFormat(format)
}

func (r *Registry) ForFormat(format extract.Format) (Loader, error) {
	l, ok := r.loaders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return l, nil
}
