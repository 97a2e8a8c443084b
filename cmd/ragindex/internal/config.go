package internal

import (
	"fmt"
	"os"

	"github.com/salesmind/ragindex/internal/config"
)

// LoadConfig reads the YAML config from an explicit path or the default
// location.
func LoadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// PrintConfigExample prints a complete YAML config example to stderr
func PrintConfigExample() {
	homeDir, _ := os.UserHomeDir()
	configPath := fmt.Sprintf("%s/.ragindex/config/ragindex.yaml", homeDir)

	fmt.Fprintf(os.Stderr, `Create a configuration file at %s:

# Embedding service configuration (required)
embedding:
  # Provider: "openai" | "ollama"
  provider: openai
  api_key: your-api-key
  model: text-embedding-3-small
  dimensions: 1536
  batch_size: 10

# For a local Ollama provider, use:
# embedding:
#   provider: ollama
#   ollama_host: http://localhost:11434
#   model: nomic-embed-text
#   dimensions: 768

Usage:
  1. Create the config file
  2. Create a tenant: ragindex tenant create acme
  3. Add documents:   ragindex add -tenant acme catalog.pdf
  4. Build the index: ragindex index -tenant acme
  5. Search:          ragindex search -tenant acme "your query"
`, configPath)
}
