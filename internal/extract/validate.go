package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// AbsPath возвращает абсолютный нормализованный путь
func AbsPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs), nil
}

// ValidatePath проверяет, что файл существует, является обычным файлом и
// соответствует формату по расширению (а для бинарных форматов - по сигнатуре).
// Возвращает абсолютный путь.
func ValidatePath(path string, format Format) (string, error) {
	abs, err := AbsPath(path)
	if err != nil {
		return "", newExtractionError(path, format, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", newExtractionError(abs, format, err)
	}
	if !info.Mode().IsRegular() {
		return "", newExtractionError(abs, format, ErrNotRegular)
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if !slices.Contains(format.Extensions(), ext) {
		return "", newExtractionError(abs, format, fmt.Errorf("%w: %q", ErrExtensionMismatch, ext))
	}

	if err := sniff(abs, format); err != nil {
		return "", newExtractionError(abs, format, err)
	}
	return abs, nil
}

func sniff(path string, format Format) error {
	var want string
	switch format {
	case FormatPDF:
		want = "application/pdf"
	case FormatDOCX:
		want = "application/zip"
	default:
		// текстовые форматы по сигнатуре не отличить
		return nil
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return err
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}
	return fmt.Errorf("%w: detected %s", ErrContentMismatch, detected.String())
}
