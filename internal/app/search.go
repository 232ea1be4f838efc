package app

import (
	"context"
	"fmt"

	"rag_ingest/internal/chunker"
)

// SearchResult - результат векторного поиска
type SearchResult struct {
	ID         string
	Content    string
	Source     string
	SourceType string
	Header     string
	Similarity float32
}

// Search ищет ближайшие чанки в коллекции. topK <= 0 берётся из TOP_K.
func (a *App) Search(ctx context.Context, queryText string, topK int) ([]SearchResult, error) {
	coll, err := a.collection()
	if err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = a.cfg.TopK
	}
	// chromem не допускает nResults больше числа документов
	if n := coll.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := coll.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		searchResults = append(searchResults, SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata[chunker.KeySourcePath],
			SourceType: r.Metadata[chunker.KeySourceType],
			Header:     r.Metadata[chunker.KeyHeader],
			Similarity: r.Similarity,
		})
	}
	return searchResults, nil
}
