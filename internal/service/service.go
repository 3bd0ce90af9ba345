// Package service owns the process-wide search state: the embedder, the index engine
// connection and the tenant cache.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/askindex/internal/config"
	"github.com/hyperjump/askindex/internal/embedding"
	"github.com/hyperjump/askindex/internal/search"
	"github.com/hyperjump/askindex/internal/tenant"
	"github.com/hyperjump/askindex/internal/vector"
)

// Startup stages.
const (
	StageConfig   = "config"
	StageEmbedder = "embedder"
	StageIndex    = "index"
)

// StartupError is fatal: the process must not serve requests.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed at %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// State is the single per-process service state handed to request handlers.
type State struct {
	Embedder embedding.Embedder
	Conn     vector.Connection
	Cache    *tenant.Cache
	Pipeline *search.Pipeline

	logger   *zap.Logger
	stopOnce sync.Once
}

// Start loads the embedder, connects to the index engine and builds an empty tenant
// cache. On failure every resource acquired so far is released.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*State, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &StartupError{Stage: StageConfig, Err: err}
	}

	emb, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, &StartupError{Stage: StageEmbedder, Err: err}
	}

	conn, err := vector.Connect(ctx, cfg.Index.Driver, cfg.Index.DataSource,
		vector.WithVectorColumn(cfg.Index.VectorColumn))
	if err != nil {
		_ = emb.Close()
		return nil, &StartupError{Stage: StageIndex, Err: err}
	}
	logger.Info("Connected to index engine",
		zap.String("driver", cfg.Index.Driver),
		zap.String("data_source", cfg.Index.DataSource))

	return NewState(emb, conn, logger, search.WithProvider(cfg.Embedding.Provider)), nil
}

// NewState assembles a State from already-built collaborators.
func NewState(emb embedding.Embedder, conn vector.Connection, logger *zap.Logger, opts ...search.Option) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := tenant.NewCache(conn, logger)
	return &State{
		Embedder: emb,
		Conn:     conn,
		Cache:    cache,
		Pipeline: search.NewPipeline(emb, cache, logger, opts...),
		logger:   logger,
	}
}

// Stop closes the cached tenant handles, the connection and the embedder. Calls after
// the first are no-ops returning nil.
func (s *State) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		err = errors.Join(
			s.Cache.Close(),
			s.Conn.Close(),
			s.Embedder.Close(),
		)
		if err != nil {
			s.logger.Warn("Errors while releasing service state", zap.Error(err))
		}
	})
	return err
}
