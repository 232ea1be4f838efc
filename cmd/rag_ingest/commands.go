package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"rag_ingest/internal/app"
	"rag_ingest/internal/chunker"
	"rag_ingest/internal/config"
	"rag_ingest/internal/logger"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rag_ingest",
		Short:         "Convert PDF, CSV, HTML, DOCX files and SQL rows into chunks for retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env-file", ".env", "Path to the environment variables file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	root.AddCommand(
		dirCmd(),
		fileCmd(),
		sqlCmd(),
		searchCmd(),
	)
	return root
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Write chunks as JSON lines to file (- for stdout)")
	cmd.Flags().Bool("index", false, "Add chunks to the vector collection (overrides INDEX_ENABLED)")
}

func dirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir [path]",
		Short: "Ingest every supported file of a directory (DATA_DIR by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			dir := env.cfg.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			run, err := env.app.IngestDir(cmd.Context(), dir)
			if err != nil {
				return err
			}
			return env.finish(cmd, run)
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func fileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file <path>...",
		Short: "Ingest the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			run, err := env.app.IngestFiles(cmd.Context(), args...)
			if err != nil {
				return err
			}
			return env.finish(cmd, run)
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func sqlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Ingest rows of a SQL query (Oracle by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			query, err := cmd.Flags().GetString("query")
			if err != nil {
				return err
			}
			run, err := env.app.IngestSQL(cmd.Context(), query)
			if err != nil {
				return err
			}
			if err := env.finish(cmd, run); err != nil {
				return err
			}
			// единственный источник: его сбой - сбой команды
			if run.Failed > 0 {
				return run.Outcomes[0].Err
			}
			return nil
		},
	}
	cmd.Flags().String("query", "", "SQL query (overrides SQL_QUERY)")
	addOutputFlags(cmd)
	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Query the vector collection built with --index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			topK, err := cmd.Flags().GetInt("top-k")
			if err != nil {
				return err
			}
			if err := env.app.InitIndex(cmd.Context()); err != nil {
				return err
			}
			results, err := env.app.Search(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. [%.3f] %s", i+1, r.Similarity, r.Source)
				if r.Header != "" {
					fmt.Fprintf(out, " > %s", r.Header)
				}
				fmt.Fprintf(out, "\n%s\n\n", r.Content)
			}
			return nil
		},
	}
	cmd.Flags().Int("top-k", 0, "Number of results (overrides TOP_K)")
	return cmd
}

type environment struct {
	cfg *config.Config
	log logger.Logger
	app *app.App
}

// setup читает .env и окружение, применяет флаги логирования и проверяет конфигурацию
func setup(cmd *cobra.Command) (*environment, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	// Загружаем .env (опционально)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	cfg := config.Config{}
	if err := config.Init(&cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")
	}
	if err := cfg.Validate(); err != nil {
		return nil, &app.ConfigurationError{Field: "env", Err: err}
	}

	log := logger.NewLogger(&logger.Config{
		Level:  cfg.LogLevel,
		Output: cmd.ErrOrStderr(),
		JSON:   cfg.LogJSON,
	})

	a, err := app.New(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	return &environment{cfg: &cfg, log: log, app: a}, nil
}

// finish пишет чанки в --output и при необходимости передаёт их в индекс
func (e *environment) finish(cmd *cobra.Command, run *app.Run) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	if output != "" {
		if err := writeOutput(cmd, output, run.Chunks); err != nil {
			return fmt.Errorf("failed to write chunks: %w", err)
		}
		e.log.Info("Chunks written", "output", output, "chunks", len(run.Chunks))
	}

	index := e.cfg.IndexEnabled
	if cmd.Flags().Changed("index") {
		index, _ = cmd.Flags().GetBool("index")
	}
	if !index {
		return nil
	}
	if err := e.app.InitIndex(cmd.Context()); err != nil {
		return err
	}
	return e.app.Index(cmd.Context(), run.Chunks)
}

func writeOutput(cmd *cobra.Command, output string, chunks []chunker.Chunk) error {
	if output == "-" {
		return writeJSONL(cmd.OutOrStdout(), chunks)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := writeJSONL(f, chunks); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeJSONL пишет по одному чанку на строку
func writeJSONL(w io.Writer, chunks []chunker.Chunk) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, ch := range chunks {
		if err := enc.Encode(ch); err != nil {
			return err
		}
	}
	return nil
}
