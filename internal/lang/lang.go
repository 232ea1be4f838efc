// Package lang определяет язык текста чанка
package lang

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Undetermined - код для текста, язык которого определить не удалось (ISO 639-2 "und")
const Undetermined = "und"

var ErrUnknownLanguage = errors.New("language not detected")

// Detector возвращает ISO 639-1 код языка текста
type Detector interface {
	Detect(text string) (string, error)
}

// DetectorFunc позволяет использовать функцию как Detector
type DetectorFunc func(text string) (string, error)

func (f DetectorFunc) Detect(text string) (string, error) {
	return f(text)
}

// Whatlang - детектор на основе whatlanggo
type Whatlang struct {
	// MinConfidence - порог уверенности, ниже которого результат считается неизвестным
	MinConfidence float64
}

func NewWhatlang() *Whatlang {
	return &Whatlang{MinConfidence: 0}
}

func (w *Whatlang) Detect(text string) (string, error) {
	info := whatlanggo.Detect(text)
	if info.Lang < 0 || info.Confidence < w.MinConfidence {
		return "", ErrUnknownLanguage
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUnknownLanguage
	}
	return code, nil
}

// Resolve вызывает детектор и сводит любой сбой (ошибку, панику, пустой текст) к "und"
func Resolve(d Detector, text string) (code string) {
	text = strings.TrimSpace(text)
	if d == nil || text == "" {
		return Undetermined
	}
	defer func() {
		if r := recover(); r != nil {
			code = Undetermined
		}
	}()

	code, err := d.Detect(text)
	if err != nil || code == "" {
		return Undetermined
	}
	return strings.ToLower(code)
}
