// Package search runs a question through embedding, tenant resolution and vector search.
package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/askindex/internal/embedding"
	"github.com/hyperjump/askindex/internal/metrics"
	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/internal/vector"
	"github.com/hyperjump/askindex/pkg/utils"
)

// Resolver returns the index handle of a tenant. *tenant.Cache satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, key string) (vector.Index, error)
}

// Pipeline answers search queries. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	embedder embedding.Embedder
	tenants  Resolver
	logger   *zap.Logger
	provider string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProvider sets the provider label used for embedding metrics.
func WithProvider(name string) Option {
	return func(p *Pipeline) { p.provider = name }
}

// NewPipeline creates a pipeline over the given embedder and tenant resolver.
func NewPipeline(embedder embedding.Embedder, tenants Resolver, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{embedder: embedder, tenants: tenants, logger: logger, provider: "unknown"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle validates q, embeds the question, resolves the tenant index and returns the
// top_k nearest rows in engine order. Zero matches yield an empty, non-nil slice.
//
// Errors are *models.ValidationError (before any external call), *PipelineError, or
// context.Canceled when the caller gave up.
func (p *Pipeline) Handle(ctx context.Context, q *models.SearchQuery) ([]models.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	log := utils.LoggerFromContext(ctx, p.logger).With(zap.String("tenant", q.Industry))

	start := time.Now()
	vec, err := p.embedder.Embed(ctx, q.Question)
	if err != nil {
		return nil, p.fail(KindEmbeddingFailed, q.Industry, err)
	}
	metrics.EmbedDuration.WithLabelValues(p.provider).Observe(time.Since(start).Seconds())

	start = time.Now()
	idx, err := p.tenants.Resolve(ctx, q.Industry)
	if err != nil {
		return nil, p.fail(KindTenantUnavailable, q.Industry, err)
	}
	log.Debug("Tenant index resolved", zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	rows, err := idx.Search(ctx, vec, vector.MetricCosine, q.TopK)
	if err != nil {
		return nil, p.fail(KindSearchFailed, q.Industry, err)
	}
	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(q.Industry).Observe(elapsed.Seconds())
	log.Debug("Search executed",
		zap.Duration("elapsed", elapsed),
		zap.Int("top_k", q.TopK),
		zap.Int("rows", len(rows)))

	return project(rows), nil
}

// fail classifies a stage failure. Cancellation by the caller is not a failure of the
// stage and is returned as is.
func (p *Pipeline) fail(kind Kind, tenant string, err error) error {
	if errors.Is(err, context.Canceled) {
		p.logger.Debug("Search canceled by caller", zap.String("tenant", tenant), zap.String("stage", string(kind)))
		return err
	}
	metrics.PipelineErrorsTotal.WithLabelValues(string(kind)).Inc()
	return &PipelineError{Kind: kind, Tenant: tenant, Err: err}
}

// project renames engine columns to the response shape without touching values.
func project(rows []vector.Row) []models.SearchResult {
	out := make([]models.SearchResult, len(rows))
	for i, r := range rows {
		out[i] = models.SearchResult{
			ID:            r.ExpandID,
			Source:        r.SourceTable,
			Similarity:    r.Distance,
			AskMethodCode: r.AskMethodCode,
		}
	}
	return out
}
