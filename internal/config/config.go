package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// Параметры вторичного разбиения
	ChunkSize    int  `env:"CHUNK_SIZE" envDefault:"500" validate:"gt=0"`
	ChunkOverlap int  `env:"CHUNK_OVERLAP" envDefault:"100" validate:"gte=0,ltfield=ChunkSize"`
	SplitEnabled bool `env:"SPLIT_ENABLED" envDefault:"true"`

	// CSV
	Encoding       string   `env:"ENCODING" envDefault:"utf-8" validate:"required"`
	CSVIDColumn    string   `env:"CSV_ID_COLUMN"`
	CSVTextColumns []string `env:"CSV_TEXT_COLUMNS" envSeparator:","`

	Workers int `env:"WORKERS" envDefault:"4" validate:"gte=1"`

	// Реляционный источник
	SQLDriver      string `env:"SQL_DRIVER" envDefault:"oracle" validate:"required"`
	OracleUser     string `env:"ORACLE_USER" envDefault:"dummy_user"`
	OraclePassword string `env:"ORACLE_PASSWORD" envDefault:"123456"`
	OracleDSN      string `env:"ORACLE_DSN" envDefault:"localhost:1521/XEPDB1"`
	SQLQuery       string `env:"SQL_QUERY" envDefault:"SELECT * FROM rag_documents"`
	SQLDataSource  string `env:"SQL_DSN"` // для драйверов кроме oracle

	// Индекс для downstream поиска
	IndexEnabled     bool   `env:"INDEX_ENABLED" envDefault:"false"`
	DBFile           string `env:"DB_FILE"`
	Collection       string `env:"COLLECTION" envDefault:"docs"`
	OllamaURL        string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbedModel string `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`
	TopK             int    `env:"TOP_K" envDefault:"5" validate:"gte=1"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if cfg.DBFile == "" {
		cfg.DBFile = filepath.Join(cfg.DataDir, "chunks.gob")
	}
	return nil
}

var validate = validator.New()

// Validate проверяет согласованность параметров до начала обработки
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config field %s: rule %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}
