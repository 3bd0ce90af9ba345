package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/askindex/internal/embedding"
	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/search"
	"github.com/hyperjump/askindex/internal/tenant"
	"github.com/hyperjump/askindex/internal/vector"
)

func memoryConnection(rows, dims int) *vector.MemoryConnection {
	conn := vector.NewMemoryConnection()
	records := make([]vector.Record, rows)
	for i := range records {
		vec := make([]float32, dims)
		vec[0] = float32(i) / float32(rows)
		vec[i%dims] += 1
		records[i] = vector.Record{ExpandID: int64(i), SourceTable: "bench", AskMethodCode: fmt.Sprintf("M%d", i), Vector: vec}
	}
	conn.Add("finance", records...)
	return conn
}

func BenchmarkCosineDistance(b *testing.B) {
	a := make([]float32, 384)
	c := make([]float32, 384)
	for i := range a {
		a[i] = float32(i)
		c[i] = float32(384 - i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = vector.CosineDistance(a, c)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	conn := memoryConnection(1000, 384)
	ctx := context.Background()
	idx, err := conn.OpenIndex(ctx, "finance")
	if err != nil {
		b.Fatal(err)
	}
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, vector.MetricCosine, 10)
	}
}

func BenchmarkHashEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkTenantCacheResolve_Hit(b *testing.B) {
	cache := tenant.NewCache(memoryConnection(10, 8), nil)
	ctx := context.Background()
	if _, err := cache.Resolve(ctx, "finance"); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = cache.Resolve(ctx, "finance")
		}
	})
}

func BenchmarkPipelineHandle(b *testing.B) {
	conn := memoryConnection(1000, 384)
	p := search.NewPipeline(embedding.NewHashEmbedder(384), tenant.NewCache(conn, nil), nil)
	q := &models.SearchQuery{Question: "how do I open an account", Industry: "finance", TopK: 5}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Handle(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}
