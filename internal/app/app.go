package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/philippgille/chromem-go"

	"rag_ingest/internal/chunker"
	"rag_ingest/internal/config"
	"rag_ingest/internal/extract"
	"rag_ingest/internal/lang"
	"rag_ingest/internal/loader"
	"rag_ingest/internal/logger"
)

type App struct {
	cfg      *config.Config
	log      logger.Logger
	detector lang.Detector
	registry *loader.Registry
	splitter *chunker.Splitter // nil, если вторичное разбиение выключено

	db            *chromem.DB
	embeddingFunc chromem.EmbeddingFunc
	customEmbed   bool
}

// Option настраивает App при создании
type Option func(*App)

// WithDetector подменяет детектор языка (по умолчанию whatlanggo)
func WithDetector(d lang.Detector) Option {
	return func(a *App) { a.detector = d }
}

// WithEmbeddingFunc подменяет функцию эмбеддингов (по умолчанию Ollama)
func WithEmbeddingFunc(f chromem.EmbeddingFunc) Option {
	return func(a *App) {
		a.embeddingFunc = f
		a.customEmbed = true
	}
}

func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	// errgroup с лимитом 0 блокирует каждый Go навсегда
	if cfg.Workers < 1 {
		return nil, &ConfigurationError{Field: "WORKERS", Err: fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)}
	}
	app := &App{
		cfg:      cfg,
		log:      log,
		detector: lang.NewWhatlang(),
	}
	for _, opt := range opts {
		opt(app)
	}

	if cfg.SplitEnabled {
		splitter, err := chunker.NewSplitter(chunker.Config{
			ChunkSize: cfg.ChunkSize,
			Overlap:   cfg.ChunkOverlap,
		})
		if err != nil {
			return nil, &ConfigurationError{Field: "CHUNK_SIZE/CHUNK_OVERLAP", Err: err}
		}
		app.splitter = splitter
		log.Debug("Secondary split enabled", "splitter", splitter.Name(), "size", cfg.ChunkSize, "overlap", cfg.ChunkOverlap)
	}

	app.registry = loader.NewRegistry(app.detector, loader.CSVOptions{
		Encoding:    cfg.Encoding,
		IDColumn:    cfg.CSVIDColumn,
		TextColumns: cfg.CSVTextColumns,
	})

	if app.embeddingFunc == nil {
		app.embeddingFunc = chromem.NewEmbeddingFuncOllama(cfg.OllamaEmbedModel, cfg.OllamaURL+"/api")
	}
	app.db = chromem.NewDB()

	return app, nil
}

// sqlLoader создаёт загрузчик реляционного источника из конфигурации
func (a *App) sqlLoader() (*loader.SQLLoader, error) {
	dataSource := a.cfg.SQLDataSource
	if a.cfg.SQLDriver == extract.DriverOracle {
		url, err := extract.OracleDataSource(a.cfg.OracleUser, a.cfg.OraclePassword, a.cfg.OracleDSN)
		if err != nil {
			return nil, &ConfigurationError{Field: "ORACLE_DSN", Err: err}
		}
		dataSource = url
	}
	return loader.NewSQLLoader(a.detector, a.cfg.SQLDriver, dataSource), nil
}

// InitIndex поднимает коллекцию: из файла DB_FILE, если он есть, иначе пустую
func (a *App) InitIndex(ctx context.Context) error {
	if !a.customEmbed {
		if err := ensureOllamaModel(ctx, a.cfg, a.log); err != nil {
			return fmt.Errorf("ollama model check failed: %w", err)
		}
	}

	if _, err := os.Stat(a.cfg.DBFile); err == nil {
		a.log.Info("Found existing DB file, loading", "file", a.cfg.DBFile)
		if err := a.loadDB(); err != nil {
			return fmt.Errorf("failed to load vector database: %w", err)
		}
	} else {
		a.log.Info("No existing DB file found, starting fresh", "file", a.cfg.DBFile)
	}

	if _, err := a.db.GetOrCreateCollection(a.cfg.Collection, nil, a.embeddingFunc); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func (a *App) collection() (*chromem.Collection, error) {
	coll := a.db.GetCollection(a.cfg.Collection, a.embeddingFunc)
	if coll == nil {
		return nil, fmt.Errorf("collection %q not found", a.cfg.Collection)
	}
	return coll, nil
}

func (a *App) loadDB() error {
	if err := a.db.ImportFromFile(a.cfg.DBFile, "", a.cfg.Collection); err != nil {
		return fmt.Errorf("failed to import DB: %w", err)
	}

	// Проверяем состояние после загрузки
	if coll := a.db.GetCollection(a.cfg.Collection, a.embeddingFunc); coll == nil {
		a.log.Warn("Collection not found after DB load", "collection", a.cfg.Collection)
	} else {
		a.log.Info("Loaded vector database", "collection", a.cfg.Collection, "documents", coll.Count())
	}
	return nil
}

func (a *App) saveDB() error {
	return a.db.ExportToFile(a.cfg.DBFile, true, "", a.cfg.Collection)
}

// ensureOllamaModel проверяет, что Ollama доступна и модель эмбеддингов загружена
func ensureOllamaModel(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	type ollamaPullRequest struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.OllamaURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", cfg.OllamaURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama is not running at %s: status %d", cfg.OllamaURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if bytes.Contains(body, []byte(cfg.OllamaEmbedModel)) {
		log.Debug("Model is available", "model", cfg.OllamaEmbedModel)
		return nil
	}

	log.Info("Model not found, pulling", "model", cfg.OllamaEmbedModel)
	b, err := json.Marshal(ollamaPullRequest{Name: cfg.OllamaEmbedModel, Stream: false})
	if err != nil {
		return err
	}
	pullReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.OllamaURL+"/api/pull", bytes.NewReader(b))
	if err != nil {
		return err
	}
	pullReq.Header.Set("Content-Type", "application/json")
	pullResp, err := http.DefaultClient.Do(pullReq)
	if err != nil {
		return fmt.Errorf("failed to pull model %s: %w", cfg.OllamaEmbedModel, err)
	}
	defer pullResp.Body.Close()
	if pullResp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to pull model %s: status %d", cfg.OllamaEmbedModel, pullResp.StatusCode)
	}
	log.Info("Model pulled", "model", cfg.OllamaEmbedModel)
	return nil
}
