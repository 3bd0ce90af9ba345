package embedding

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/askindex/internal/config"
)

func TestNew_hashProvider(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderHash, Dimensions: 16}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("got %T, want *HashEmbedder", e)
	}
	if e.Dimensions() != 16 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestNew_withCache(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderHash, Dimensions: 16, CacheSize: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	c, ok := e.(*CachedEmbedder)
	if !ok {
		t.Fatalf("got %T, want *CachedEmbedder", e)
	}
	if _, err := c.Embed(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestNew_openAIProvider(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderOpenAI, Model: "text-embedding-3-small", BaseURL: "http://127.0.0.1:1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*OpenAIEmbedder); !ok {
		t.Errorf("got %T, want *OpenAIEmbedder", e)
	}
}

func TestNew_onnxMissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.onnx")
	if _, err := New(config.EmbeddingConfig{Provider: config.ProviderONNX, ModelPath: path, Dimensions: 384}, nil); err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestNew_unknownProvider(t *testing.T) {
	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
