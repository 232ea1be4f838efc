package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"rag_ingest/internal/extract"
	"rag_ingest/internal/lang"
)

// docIDLength - длина doc_id в hex-символах
const docIDLength = 32

// MakeDocID возвращает детерминированный идентификатор по пути источника и ключу чанка
func MakeDocID(sourcePath, key string) string {
	hash := sha256.Sum256([]byte(sourcePath + key))
	return hex.EncodeToString(hash[:])[:docIDLength]
}

// Draft - чанк до обогащения
type Draft struct {
	Content string
	Key     string   // ключ для doc_id: номер страницы, заголовок, индекс строки, id записи
	Extras  Metadata // поля, специфичные для формата
}

// Source описывает происхождение набора черновиков
type Source struct {
	Type extract.Format
	Path string // абсолютный путь или текст запроса
}

// Enricher назначает doc_id, chunk_index и язык
type Enricher struct {
	detector lang.Detector
}

func NewEnricher(detector lang.Detector) *Enricher {
	return &Enricher{detector: detector}
}

// Enrich превращает черновики одного источника в чанки. Пустые после
// обрезки черновики отбрасываются до назначения chunk_index.
func (e *Enricher) Enrich(src Source, drafts []Draft) []Chunk {
	chunks := make([]Chunk, 0, len(drafts))
	seenKeys := make(map[string]struct{}, len(drafts))

	for _, d := range drafts {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		index := len(chunks)

		// Повтор ключа внутри документа (одинаковые заголовки) дал бы одинаковый doc_id
		key := d.Key
		if _, dup := seenKeys[key]; dup {
			key = key + "#" + strconv.Itoa(index)
		}
		seenKeys[key] = struct{}{}
		id := MakeDocID(src.Path, key)

		metadata := make(Metadata, len(d.Extras)+5)
		for k, v := range d.Extras {
			metadata[k] = v
		}
		metadata[KeySourceType] = string(src.Type)
		metadata[KeySourcePath] = src.Path
		metadata[KeyChunkIndex] = index
		metadata[KeyDocID] = id
		metadata[KeyLanguage] = lang.Resolve(e.detector, content)

		chunks = append(chunks, Chunk{
			ID:       id,
			Content:  content,
			Metadata: metadata,
		})
	}

	return chunks
}
