// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lorekeep/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Models: Ollama host plus the thinking / fast / embedding model names
//   - Documents: watched document root and the persisted index location
//   - Retrieval: chunking window and search tuning for the RAG loop
//
// Validation uses sentinel errors so callers can check with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Default model names: a large reasoning model for answer generation and a
// small fast model for grading and rewriting.
const (
	DefaultThinkingModel = "gpt-oss"
	DefaultFastModel     = "llama3.2"
	DefaultEmbedderModel = "mxbai-embed-large"

	DefaultOllamaHost = "http://localhost:11434"
)

// Chunking and retrieval defaults for the document pipeline.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	DefaultRetrievalTopK   = 2
	DefaultRetrievalFetchK = 20
	DefaultRetrievalLambda = 0.5

	DefaultMaxRewrites = 3
)

// Config stores application configuration.
type Config struct {
	// Ollama connection and model tiers
	OllamaHost    string  `mapstructure:"ollama_host" json:"ollama_host"`
	ThinkingModel string  `mapstructure:"thinking_model" json:"thinking_model"`
	FastModel     string  `mapstructure:"fast_model" json:"fast_model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Document locations
	DocumentRoot string `mapstructure:"document_root" json:"document_root"`
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval tuning
	RetrievalTopK   int     `mapstructure:"retrieval_top_k" json:"retrieval_top_k"`
	RetrievalFetchK int     `mapstructure:"retrieval_fetch_k" json:"retrieval_fetch_k"`
	RetrievalLambda float64 `mapstructure:"retrieval_lambda" json:"retrieval_lambda"`

	// MaxRewrites bounds the query-rewrite loop in the RAG state machine.
	MaxRewrites int `mapstructure:"max_rewrites" json:"max_rewrites"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".lorekeep")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("ollama_host", DefaultOllamaHost)
	viper.SetDefault("thinking_model", DefaultThinkingModel)
	viper.SetDefault("fast_model", DefaultFastModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("temperature", 0.0)

	viper.SetDefault("document_root", "input")
	viper.SetDefault("data_dir", "lore_db")

	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("chunk_overlap", DefaultChunkOverlap)

	viper.SetDefault("retrieval_top_k", DefaultRetrievalTopK)
	viper.SetDefault("retrieval_fetch_k", DefaultRetrievalFetchK)
	viper.SetDefault("retrieval_lambda", DefaultRetrievalLambda)

	viper.SetDefault("max_rewrites", DefaultMaxRewrites)
}

// bindEnvVariables binds environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("ollama_host", "LOREKEEP_OLLAMA_HOST")
	mustBind("thinking_model", "LOREKEEP_THINKING_MODEL")
	mustBind("fast_model", "LOREKEEP_FAST_MODEL")
	mustBind("embedder_model", "LOREKEEP_EMBEDDER_MODEL")
	mustBind("document_root", "LOREKEEP_DOCUMENT_ROOT")
	mustBind("data_dir", "LOREKEEP_DATA_DIR")
}

// ManifestPath returns the location of the index manifest file inside the
// data directory. The name is kept from earlier releases, which wrote a plain
// path list to the same file; Load-side compatibility lives in the manifest
// package.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, "indexed_files.txt")
}

// VectorStorePath returns the directory the vector store persists into.
func (c *Config) VectorStorePath() string {
	return filepath.Join(c.DataDir, "chunks")
}

// ThinkingModelRef returns the provider-qualified name of the thinking model.
func (c *Config) ThinkingModelRef() string {
	return "ollama/" + c.ThinkingModel
}

// FastModelRef returns the provider-qualified name of the fast model.
func (c *Config) FastModelRef() string {
	return "ollama/" + c.FastModel
}
