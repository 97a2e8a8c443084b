// Package embedding converts text into fixed-length float32 vectors via an
// external provider selected by configuration.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/salesmind/ragindex/internal/config"
)

// ErrProvider marks retryable embedding provider failures: unreachable
// endpoint, rejected input, timeout. Callers must never substitute a zero
// vector for a failed call.
var ErrProvider = errors.New("embedding provider error")

// Client is the interface for embedding API clients
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

// Service provides embedding generation functionality
type Service struct {
	cfg    *config.EmbeddingConfig
	client Client
}

// NewService creates a new embedding service for the configured provider
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "openai":
		client, err = NewOpenAIClient(cfg)
	case "ollama":
		client, err = NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return &Service{cfg: cfg, client: client}, nil
}

// NewServiceWithClient wraps an existing client; used by tests and by callers
// that construct providers directly.
func NewServiceWithClient(cfg *config.EmbeddingConfig, client Client) *Service {
	return &Service{cfg: cfg, client: client}
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", ErrProvider)
	}
	vec, err := s.client.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned empty vector", ErrProvider)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts, preserving order.
// Any single failure fails the whole batch.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrProvider, i)
		}
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := s.client.EmbedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(embeddings) != end-i {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProvider, end-i, len(embeddings))
		}
		results = append(results, embeddings...)
	}

	return results, nil
}

// Dimensions returns the dimension of the embeddings
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// Model returns the provider model identifier recorded on embedding rows
func (s *Service) Model() string {
	return s.client.Model()
}
