package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the master dataset backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RegistryConfig configures KPI definition loading.
type RegistryConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Separator string `yaml:"separator" mapstructure:"separator"` // CSV field separator
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`         // XLSX sheet name, optional
}

// EmbeddingConfig configures the text-embedding provider.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // ollama
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// OCRConfig configures the OCR collaborator and its tool paths.
type OCRConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"` // tesseract | off
	TesseractPath string  `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	PdfToTextPath string  `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPPMPath  string  `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	Concurrency   int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ExtractConfig tunes the extraction and reconciliation engine.
type ExtractConfig struct {
	SemanticThreshold  float64 `yaml:"semantic_threshold" mapstructure:"semantic_threshold"`
	KeywordMinHits     int     `yaml:"keyword_min_hits" mapstructure:"keyword_min_hits"`
	UnknownUnitPenalty float64 `yaml:"unknown_unit_penalty" mapstructure:"unknown_unit_penalty"`
	RejectConfidence   float64 `yaml:"reject_confidence" mapstructure:"reject_confidence"`
	ValidateConfidence float64 `yaml:"validate_confidence" mapstructure:"validate_confidence"`
	ValueTolerance     float64 `yaml:"value_tolerance" mapstructure:"value_tolerance"`
	MinContextChars    int     `yaml:"min_context_chars" mapstructure:"min_context_chars"`
	MinTextDensity     int     `yaml:"min_text_density" mapstructure:"min_text_density"`
	ContextWindow      int     `yaml:"context_window" mapstructure:"context_window"`
	Workers            int     `yaml:"workers" mapstructure:"workers"` // 0 = NumCPU
	DocTimeoutSecs     int     `yaml:"doc_timeout_secs" mapstructure:"doc_timeout_secs"`
}

// OutputConfig configures per-run output files.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the query server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/master.db")
	v.SetDefault("registry.path", "data/esg_kpis.csv")
	v.SetDefault("registry.separator", ";")
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.timeout_secs", 30)
	v.SetDefault("embedding.rate_per_sec", 20)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.concurrency", 2)
	v.SetDefault("ocr.timeout_secs", 120)
	v.SetDefault("ocr.min_confidence", 0.3)
	v.SetDefault("extract.semantic_threshold", 0.6)
	v.SetDefault("extract.keyword_min_hits", 2)
	v.SetDefault("extract.unknown_unit_penalty", 0.1)
	v.SetDefault("extract.reject_confidence", 0.3)
	v.SetDefault("extract.validate_confidence", 0.5)
	v.SetDefault("extract.value_tolerance", 0.05)
	v.SetDefault("extract.min_context_chars", 10)
	v.SetDefault("extract.min_text_density", 120)
	v.SetDefault("extract.context_window", 100)
	v.SetDefault("extract.workers", 0)
	v.SetDefault("extract.doc_timeout_secs", 300)
	v.SetDefault("output.dir", "data/processed")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
