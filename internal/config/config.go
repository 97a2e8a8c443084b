package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Chunking  ChunkingConfig  `yaml:"chunking,omitempty"`
	Ingest    IngestConfig    `yaml:"ingest,omitempty"`
	Search    SearchConfig    `yaml:"search,omitempty"`
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "openai" | "ollama"

	// OpenAI-compatible API
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`

	// Ollama
	OllamaHost string `yaml:"ollama_host,omitempty"`

	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`                // must match the model output
	BatchSize      int    `yaml:"batch_size"`                // texts per provider call
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // per-call timeout
}

// Timeout returns the per-call provider timeout
func (c *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// Path to the SQLite database file.
	// If empty, uses ~/.ragindex/data/ragindex.db
	Path string `yaml:"path,omitempty"`

	// DataDir holds on-disk keyword indexes.
	// If empty, uses ~/.ragindex/data
	DataDir string `yaml:"data_dir,omitempty"`
}

// ChunkingConfig holds text chunking parameters
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars,omitempty"` // window size in runes
	Overlap  int `yaml:"overlap,omitempty"`   // runes shared between consecutive chunks
}

// IngestConfig holds bulk document ingestion options
type IngestConfig struct {
	Patterns []string `yaml:"patterns,omitempty"` // doublestar globs to include
	Exclude  []string `yaml:"exclude,omitempty"`  // doublestar globs to skip
}

// SearchConfig holds retrieval options
type SearchConfig struct {
	DefaultTopK   int     `yaml:"default_top_k,omitempty"`
	IndexName     string  `yaml:"index_name,omitempty"`      // named index lineage, default "main_index"
	VectorWeight  float32 `yaml:"vector_weight,omitempty"`   // hybrid vector weight (0-1)
	KeywordWeight float32 `yaml:"keyword_weight,omitempty"`  // hybrid keyword weight (0-1)
	EnableHybrid  bool    `yaml:"enable_hybrid,omitempty"`   // merge bleve keyword scores
}

// DefaultPath returns the default config file location
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".ragindex", "config", "ragindex.yaml"), nil
}

// Load loads configuration from the default config file
// Default location: ~/.ragindex/config/ragindex.yaml
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			defaultPath, _ := DefaultPath()
			return nil, &ConfigNotFoundError{
				RequestedPath: path,
				DefaultPath:   defaultPath,
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigNotFoundError is returned when config file is not found
type ConfigNotFoundError struct {
	RequestedPath string
	DefaultPath   string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("config file not found at: %s\n\nDefault location: %s\n\nYou can:\n"+
		"  1. Create the config file at the default location\n"+
		"  2. Specify a custom path with -config flag",
		e.RequestedPath, e.DefaultPath)
}

// IsConfigNotFound checks if error is config not found
func IsConfigNotFound(err error) bool {
	_, ok := err.(*ConfigNotFoundError)
	return ok
}

const defaultConfigTemplate = `# ragindex configuration

# Embedding service configuration (required)
embedding:
  # Provider: "openai" | "ollama"
  provider: openai

  # OpenAI-compatible API
  api_key: your-api-key
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 10

  # For a local Ollama provider, use:
  # provider: ollama
  # ollama_host: http://localhost:11434
  # model: nomic-embed-text
  # dimensions: 768

# Database configuration
# database:
#   path: ~/.ragindex/data/ragindex.db
#   data_dir: ~/.ragindex/data

# Text chunking
# chunking:
#   max_chars: 1200
#   overlap: 200

# Bulk ingestion globs
# ingest:
#   patterns: ["**/*.pdf", "**/*.txt", "**/*.md"]
#   exclude: []

# Retrieval
# search:
#   default_top_k: 3
#   index_name: main_index
#   enable_hybrid: true
#   vector_weight: 0.7
#   keyword_weight: 0.3
`

// WriteDefaultTemplate writes a commented config template to path if no file
// exists there yet. Returns true when a new file was created.
func WriteDefaultTemplate(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write config template: %w", err)
	}

	return true, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedding provider: %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Chunking.Overlap >= c.Chunking.MaxChars {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			c.Chunking.Overlap, c.Chunking.MaxChars)
	}
	return nil
}

// expandPath expands ~ and $HOME to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "$HOME/") || path == "$HOME" {
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			var err error
			homeDir, err = os.UserHomeDir()
			if err != nil {
				return path
			}
		}
		if path == "$HOME" {
			return homeDir
		}
		return filepath.Join(homeDir, path[6:])
	}

	if strings.HasPrefix(path, "~/") || path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() error {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = 10
	}
	if c.Embedding.TimeoutSeconds == 0 {
		c.Embedding.TimeoutSeconds = 30
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("RAGINDEX_API_KEY")
	}

	if c.Database.Path != "" {
		c.Database.Path = expandPath(c.Database.Path)
	}
	if c.Database.DataDir != "" {
		c.Database.DataDir = expandPath(c.Database.DataDir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(homeDir, ".ragindex", "data", "ragindex.db")
	}
	if c.Database.DataDir == "" {
		c.Database.DataDir = filepath.Join(homeDir, ".ragindex", "data")
	}

	if c.Chunking.MaxChars == 0 {
		c.Chunking.MaxChars = 1200
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 200
	}

	if len(c.Ingest.Patterns) == 0 {
		c.Ingest.Patterns = []string{"**/*.pdf", "**/*.txt", "**/*.md"}
	}

	if c.Search.DefaultTopK == 0 {
		c.Search.DefaultTopK = 3
	}
	if c.Search.IndexName == "" {
		c.Search.IndexName = "main_index"
	}
	if c.Search.VectorWeight == 0 && c.Search.KeywordWeight == 0 {
		c.Search.VectorWeight = 0.7
		c.Search.KeywordWeight = 0.3
	}

	return nil
}
