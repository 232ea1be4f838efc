package chunker

import (
	"fmt"
	"strings"
)

// Splitter - вторичное разбиение готовых чанков на окна фиксированного размера с перекрытием.
// Не зависит от формата и структуры, работает только с длиной content.
type Splitter struct {
	config Config
}

// NewSplitter проверяет параметры: размер > 0, 0 <= перекрытие < размер
func NewSplitter(config Config) (*Splitter, error) {
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than zero, got %d", config.ChunkSize)
	}
	if config.Overlap < 0 {
		return nil, fmt.Errorf("chunk overlap cannot be negative, got %d", config.Overlap)
	}
	if config.Overlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", config.Overlap, config.ChunkSize)
	}
	return &Splitter{config: config}, nil
}

func (s *Splitter) Name() string {
	return "size"
}

// Windows режет текст на окна по рунам: каждое окно, кроме последнего, ровно
// ChunkSize рун, соседние окна делят ровно Overlap рун
func (s *Splitter) Windows(content string) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}

	var windows []string
	step := s.config.ChunkSize - s.config.Overlap
	for i := 0; i < len(runes); i += step {
		end := i + s.config.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		windows = append(windows, string(runes[i:end]))

		if end >= len(runes) {
			break
		}
	}

	return windows
}

// Split применяет Windows к каждому чанку. Метаданные копируются в каждый
// подчанк и дополняются sub_chunk_index и sub_chunk_count.
func (s *Splitter) Split(chunks []Chunk) []Chunk {
	result := make([]Chunk, 0, len(chunks))

	for _, ch := range chunks {
		var parts []string
		for _, w := range s.Windows(ch.Content) {
			if strings.TrimSpace(w) != "" {
				parts = append(parts, w)
			}
		}

		for i, part := range parts {
			metadata := ch.Metadata.Clone()
			metadata[KeySubChunkIndex] = i
			metadata[KeySubChunkCount] = len(parts)

			result = append(result, Chunk{
				ID:       ch.ID,
				Content:  part,
				Metadata: metadata,
			})
		}
	}

	return result
}
