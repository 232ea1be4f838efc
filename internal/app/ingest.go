package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"rag_ingest/internal/chunker"
	"rag_ingest/internal/extract"
	"rag_ingest/internal/loader"
)

// ConfigurationError - ошибка входных параметров, обнаруженная до начала обработки
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// FileOutcome - результат обработки одного источника: чанки или ошибка
type FileOutcome struct {
	Path    string
	Format  extract.Format
	Chunks  []chunker.Chunk
	Err     error
	Skipped bool // формат не поддерживается
}

func (o FileOutcome) Failed() bool {
	return o.Err != nil && !o.Skipped
}

// Run - итог одного запуска
type Run struct {
	Dir       string
	Chunks    []chunker.Chunk
	Outcomes  []FileOutcome
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// IngestDir обрабатывает все файлы каталога (без рекурсии) в порядке имён.
// Отсутствующий каталог - ошибка конфигурации; сбой одного файла не прерывает обработку остальных.
func (a *App) IngestDir(ctx context.Context, dir string) (*Run, error) {
	abs, err := extract.AbsPath(dir)
	if err != nil {
		return nil, &ConfigurationError{Field: "DATA_DIR", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &ConfigurationError{Field: "DATA_DIR", Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{Field: "DATA_DIR", Err: fmt.Errorf("%s is not a directory", abs)}
	}

	// os.ReadDir возвращает записи, отсортированные по имени
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, &ConfigurationError{Field: "DATA_DIR", Err: err}
	}

	var paths []string
	for _, entry := range entries {
		path := filepath.Join(abs, entry.Name())
		if !isRegularFile(entry, path) {
			a.log.Debug("Skipping non-regular entry", "name", entry.Name())
			continue
		}
		paths = append(paths, path)
	}

	a.log.Info("Ingesting directory", "dir", abs, "files", len(paths), "workers", a.cfg.Workers)
	run := a.ingestPaths(ctx, paths)
	run.Dir = abs
	return run, nil
}

// isRegularFile следует по символьным ссылкам, как и ValidatePath для явно указанных файлов
func isRegularFile(entry os.DirEntry, path string) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IngestFiles обрабатывает явно указанные файлы в переданном порядке
func (a *App) IngestFiles(ctx context.Context, paths ...string) (*Run, error) {
	if len(paths) == 0 {
		return nil, &ConfigurationError{Field: "paths", Err: errors.New("no input files")}
	}
	return a.ingestPaths(ctx, paths), nil
}

// IngestSQL выполняет запрос к реляционному источнику. Пустой query берётся из SQL_QUERY.
func (a *App) IngestSQL(ctx context.Context, query string) (*Run, error) {
	if query == "" {
		query = a.cfg.SQLQuery
	}
	if query == "" {
		return nil, &ConfigurationError{Field: "SQL_QUERY", Err: errors.New("empty query")}
	}
	l, err := a.sqlLoader()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outcome := a.load(ctx, l, query)
	run := &Run{Outcomes: []FileOutcome{outcome}}
	run.collect()
	run.Duration = time.Since(start)
	a.logSummary(run)
	return run, nil
}

func (a *App) ingestPaths(ctx context.Context, paths []string) *Run {
	start := time.Now()
	outcomes := make([]FileOutcome, len(paths))

	// Результаты складываются по индексу, поэтому порядок вывода не зависит от порядка завершения
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = a.ingestFile(gctx, path)
			return nil
		})
	}
	_ = g.Wait()

	run := &Run{Outcomes: outcomes}
	run.collect()
	run.Duration = time.Since(start)
	a.logSummary(run)
	return run
}

func (a *App) ingestFile(ctx context.Context, path string) FileOutcome {
	l, err := a.registry.ForPath(path)
	if err != nil {
		a.log.Warn("Skipping unsupported file", "file", filepath.Base(path), "error", err)
		return FileOutcome{Path: path, Err: err, Skipped: true}
	}
	return a.load(ctx, l, path)
}

// load вызывает стратегию и вторичное разбиение; паника превращается в ошибку источника
func (a *App) load(ctx context.Context, l loader.Loader, source string) (outcome FileOutcome) {
	outcome = FileOutcome{Path: source, Format: l.Format()}
	log := a.log.With("source", source, "format", l.Format())
	defer func() {
		if r := recover(); r != nil {
			outcome.Chunks = nil
			outcome.Err = fmt.Errorf("panic while loading %s: %v", source, r)
			log.Error("Failed to load source", "error", outcome.Err)
		}
	}()

	chunks, err := l.Load(ctx, source)
	if err != nil {
		outcome.Err = err
		log.Error("Failed to load source", "error", err)
		return outcome
	}
	if a.splitter != nil {
		chunks = a.splitter.Split(chunks)
	}
	outcome.Chunks = chunks

	if len(chunks) == 0 {
		log.Warn("Source produced no content")
	} else {
		log.Info("Loaded source", "chunks", len(chunks))
	}
	return outcome
}

// collect сводит исходы в общий список чанков и счётчики
func (r *Run) collect() {
	for _, o := range r.Outcomes {
		switch {
		case o.Skipped:
			r.Skipped++
		case o.Err != nil:
			r.Failed++
		default:
			r.Processed++
			r.Chunks = append(r.Chunks, o.Chunks...)
		}
	}
}

func (a *App) logSummary(run *Run) {
	a.log.Info("Ingestion finished",
		"processed", run.Processed,
		"skipped", run.Skipped,
		"failed", run.Failed,
		"chunks", len(run.Chunks),
		"duration", run.Duration.Round(time.Millisecond),
	)
}
