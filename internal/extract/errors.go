package extract

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegular        = errors.New("not a regular file")
	ErrExtensionMismatch = errors.New("extension does not match format")
	ErrContentMismatch   = errors.New("content does not match format")
)

// ExtractionError - ошибка парсинга одного источника. Не фатальна для пакетной обработки
type ExtractionError struct {
	Path   string
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func newExtractionError(path string, format Format, err error) error {
	return &ExtractionError{Path: path, Format: format, Err: err}
}

// guard превращает панику стороннего парсера в ExtractionError
func guard(path string, format Format, err *error) {
	if r := recover(); r != nil {
		*err = newExtractionError(path, format, fmt.Errorf("parser panic: %v", r))
	}
}
