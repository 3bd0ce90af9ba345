// Package vector adapts the index engine holding the per-tenant vector tables.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// Metric selects the distance function of a search.
type Metric string

const (
	// MetricCosine ranks by 1 - cos(a, b); 0 is identical direction.
	MetricCosine Metric = "cosine"
	// MetricL2 ranks by Euclidean distance.
	MetricL2 Metric = "l2"
)

var (
	// ErrIndexNotFound is returned by OpenIndex when the tenant has no table.
	ErrIndexNotFound = errors.New("index not found")
	// ErrSchemaMismatch is returned by OpenIndex when the table lacks a required column.
	ErrSchemaMismatch = errors.New("index schema mismatch")
	// ErrUnknownMetric is returned by Search for an unsupported Metric.
	ErrUnknownMetric = errors.New("unknown distance metric")
	// ErrClosed is returned when using a closed connection or index.
	ErrClosed = errors.New("index connection closed")
)

// Row is one search hit as stored by the engine. Distance is the engine's _distance.
type Row struct {
	ExpandID      int64
	SourceTable   string
	Distance      float64
	AskMethodCode string
}

// Index is an opened tenant table. Implementations are safe for concurrent Search.
type Index interface {
	Name() string
	// Search returns at most limit rows ordered by ascending distance to vec.
	Search(ctx context.Context, vec []float32, metric Metric, limit int) ([]Row, error)
	Close() error
}

// Connection is a handle on the index engine.
type Connection interface {
	OpenIndex(ctx context.Context, name string) (Index, error)
	Close() error
}

// Required columns of every tenant table besides the vector column.
var requiredColumns = []string{"expand_id", "source_table", "ask_method_code"}

// Options tune a connection.
type Options struct {
	// VectorColumn names the column holding embeddings. Defaults to "vector".
	VectorColumn string
}

// Option mutates Options.
type Option func(*Options)

// WithVectorColumn overrides the embedding column name.
func WithVectorColumn(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.VectorColumn = name
		}
	}
}

// Connect opens the engine named by driver: "sqlite3" (cgo), "sqlite" (pure Go) or
// "memory". SQLite data sources must already exist; they are opened read-only.
func Connect(ctx context.Context, driver, dataSource string, opts ...Option) (Connection, error) {
	o := Options{VectorColumn: "vector"}
	for _, opt := range opts {
		opt(&o)
	}
	switch driver {
	case "sqlite3":
		return connectSQL(ctx, mattnDriverName, dataSource, o)
	case "sqlite":
		return connectSQL(ctx, moderncDriverName, dataSource, o)
	case "memory":
		return OpenMemory(dataSource)
	default:
		return nil, fmt.Errorf("unknown index driver %q", driver)
	}
}
