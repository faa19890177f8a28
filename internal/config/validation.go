package config

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidOllamaHost indicates the Ollama host is not a valid URL.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidModelName indicates a model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidDocumentRoot indicates the document root path is empty.
	ErrInvalidDocumentRoot = errors.New("invalid document root")

	// ErrInvalidDataDir indicates the data directory path is empty.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidChunking indicates the chunk size/overlap pair is unusable.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates the retrieval tuning is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.OllamaHost == "" {
		return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
	}
	u, err := url.Parse(c.OllamaHost)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not a valid URL", ErrInvalidOllamaHost, c.OllamaHost)
	}

	if c.ThinkingModel == "" {
		return fmt.Errorf("%w: thinking_model cannot be empty", ErrInvalidModelName)
	}
	if c.FastModel == "" {
		return fmt.Errorf("%w: fast_model cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.DocumentRoot == "" {
		return fmt.Errorf("%w: document_root cannot be empty", ErrInvalidDocumentRoot)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty", ErrInvalidDataDir)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d",
			ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.RetrievalTopK < 1 {
		return fmt.Errorf("%w: retrieval_top_k must be positive, got %d",
			ErrInvalidRetrieval, c.RetrievalTopK)
	}
	if c.RetrievalFetchK < c.RetrievalTopK {
		return fmt.Errorf("%w: retrieval_fetch_k must be >= retrieval_top_k, got %d < %d",
			ErrInvalidRetrieval, c.RetrievalFetchK, c.RetrievalTopK)
	}
	if c.RetrievalLambda < 0.0 || c.RetrievalLambda > 1.0 {
		return fmt.Errorf("%w: retrieval_lambda must be between 0.0 and 1.0, got %.2f",
			ErrInvalidRetrieval, c.RetrievalLambda)
	}

	if c.MaxRewrites < 0 {
		return fmt.Errorf("%w: max_rewrites cannot be negative, got %d",
			ErrInvalidRetrieval, c.MaxRewrites)
	}

	return nil
}
