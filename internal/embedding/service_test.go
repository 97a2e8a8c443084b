package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/salesmind/ragindex/internal/config"
)

// fakeClient returns deterministic vectors and records call sizes
type fakeClient struct {
	dim        int
	batchSizes []int
	failAfter  int // fail on the Nth batch call (1-based), 0 = never
	calls      int
}

func (f *fakeClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, fmt.Errorf("%w: injected failure", ErrProvider)
	}
	f.batchSizes = append(f.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len(texts[i]))
		out[i] = vec
	}
	return out, nil
}

func (f *fakeClient) Dimensions() int { return f.dim }
func (f *fakeClient) Model() string   { return "fake-model" }

func TestServiceEmbedEmptyText(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 4}, &fakeClient{dim: 3})

	_, err := svc.Embed(context.Background(), "")
	if !errors.Is(err, ErrProvider) {
		t.Errorf("Embed(\"\") error = %v, want ErrProvider", err)
	}
}

func TestServiceEmbedBatchSplitsBatches(t *testing.T) {
	fake := &fakeClient{dim: 3}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 2}, fake)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	wantBatches := []int{2, 2, 1}
	if len(fake.batchSizes) != len(wantBatches) {
		t.Fatalf("batch calls = %v, want sizes %v", fake.batchSizes, wantBatches)
	}
	for i, size := range wantBatches {
		if fake.batchSizes[i] != size {
			t.Errorf("batch %d size = %d, want %d", i, fake.batchSizes[i], size)
		}
	}
	// Order preserved: vec[0] carries the input length
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order", i)
		}
	}
}

func TestServiceEmbedBatchRejectsEmptyElement(t *testing.T) {
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 4}, &fakeClient{dim: 3})

	_, err := svc.EmbedBatch(context.Background(), []string{"ok", "", "also ok"})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("EmbedBatch() error = %v, want ErrProvider", err)
	}
}

func TestServiceEmbedBatchPropagatesFailure(t *testing.T) {
	fake := &fakeClient{dim: 3, failAfter: 2}
	svc := NewServiceWithClient(&config.EmbeddingConfig{BatchSize: 1}, fake)

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("EmbedBatch() error = %v, want ErrProvider", err)
	}
}

func TestOpenAIClientEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req openAIEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		resp := openAIEmbeddingResponse{Object: "list", Model: req.Model}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
				Object    string    `json:"object"`
			}{
				Embedding: []float32{float32(i), 1, 2},
				Index:     i,
				Object:    "embedding",
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&config.EmbeddingConfig{
		APIKey:     "test-key",
		Endpoint:   server.URL,
		Model:      "test-model",
		Dimensions: 3,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	vecs, err := client.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	if vecs[1][0] != 1 {
		t.Errorf("vector order not preserved: %v", vecs[1])
	}
}

func TestOpenAIClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(&config.EmbeddingConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	_, err = client.EmbedBatch(context.Background(), []string{"text"})
	if !errors.Is(err, ErrProvider) {
		t.Errorf("EmbedBatch() error = %v, want ErrProvider", err)
	}
	if !IsRetryable(err) {
		t.Error("server error should be retryable")
	}
}

func TestOllamaClientEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.5, -0.25, 1}})
	}))
	defer server.Close()

	client, err := NewOllamaClient(&config.EmbeddingConfig{
		OllamaHost: server.URL,
		Model:      "nomic-embed-text",
		Dimensions: 3,
	})
	if err != nil {
		t.Fatalf("NewOllamaClient() error = %v", err)
	}

	vec, err := client.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	want := []float32{0.5, -0.25, 1}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("element %d = %v, want %v", i, vec[i], want[i])
		}
	}
}
