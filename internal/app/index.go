package app

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"rag_ingest/internal/chunker"
)

// Index передаёт чанки в векторную коллекцию и сохраняет её в DB_FILE.
// Повторная загрузка тех же чанков перезаписывает документы с теми же id.
func (a *App) Index(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		a.log.Info("Nothing to index")
		return nil
	}
	coll, err := a.collection()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID:       indexID(ch),
			Content:  ch.Content,
			Metadata: flattenMetadata(ch.Metadata),
		})
	}

	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	a.log.Info("Indexed chunks", "collection", a.cfg.Collection, "chunks", len(docs), "total", coll.Count())

	if err := a.saveDB(); err != nil {
		return fmt.Errorf("failed to save vector database: %w", err)
	}
	return nil
}

// indexID различает подчанки одного чанка: doc_id у них общий
func indexID(ch chunker.Chunk) string {
	if sub, ok := ch.Metadata.Int(chunker.KeySubChunkIndex); ok {
		return ch.ID + ":" + strconv.Itoa(sub)
	}
	return ch.ID
}

// flattenMetadata приводит значения к строкам: коллекция хранит только map[string]string
func flattenMetadata(m chunker.Metadata) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case []string:
			out[k] = strings.Join(val, ",")
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
