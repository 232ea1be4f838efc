package chunker

import "maps"

// Ключи метаданных чанка
const (
	KeySourceType    = "source_type"
	KeySourcePath    = "source_path"
	KeyChunkIndex    = "chunk_index"
	KeyDocID         = "doc_id"
	KeyLanguage      = "language"
	KeyHTMLTag       = "html_tag"
	KeyDocxStyle     = "docx_style"
	KeyElementIndex  = "element_index"
	KeyHeader        = "header"
	KeyHeadingLevel  = "heading_level"
	KeyPageNumber    = "page_number"
	KeyRowIndex      = "row_index"
	KeyRowID         = "row_id"
	KeyColumns       = "columns"
	KeyQuery         = "query"
	KeySubChunkIndex = "sub_chunk_index"
	KeySubChunkCount = "sub_chunk_count"
)

// Metadata - атрибуты чанка. После выпуска чанка не изменяется
type Metadata map[string]any

// Clone возвращает независимую копию
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// String возвращает строковое значение ключа или ""
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int возвращает целое значение ключа
func (m Metadata) Int(key string) (int, bool) {
	v, ok := m[key].(int)
	return v, ok
}

// Chunk представляет единицу текста для индексации
type Chunk struct {
	ID       string   `json:"id"`       // doc_id
	Content  string   `json:"content"`  // текст без пустых краёв
	Metadata Metadata `json:"metadata"` // source_type, source_path, chunk_index, doc_id, language + специфичные для формата
}

// Config содержит параметры вторичного разбиения
type Config struct {
	ChunkSize int // Размер окна в символах
	Overlap   int // Перекрытие соседних окон
}
