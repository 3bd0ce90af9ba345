package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Scalar functions registered on every SQLite connection.
const (
	cosineFunc = "vec_cosine_distance"
	l2Func     = "vec_l2_distance"
)

var sqlFuncs = map[Metric]string{
	MetricCosine: cosineFunc,
	MetricL2:     l2Func,
}

// SQLConnection serves tenant tables from a SQLite database.
type SQLConnection struct {
	db           *sql.DB
	vectorColumn string
	closeOnce    sync.Once
	closeErr     error
}

func connectSQL(ctx context.Context, driverName, dataSource string, o Options) (*SQLConnection, error) {
	dsn, err := readOnlyDSN(dataSource)
	if err != nil {
		return nil, err
	}
	if err := registerDrivers(); err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping index database: %w", err)
	}
	return &SQLConnection{db: db, vectorColumn: o.VectorColumn}, nil
}

// readOnlyDSN turns a path into a read-only SQLite URI. The file must exist; URIs are
// passed through untouched.
func readOnlyDSN(dataSource string) (string, error) {
	if dataSource == "" {
		return "", errors.New("index data source is empty")
	}
	if strings.HasPrefix(dataSource, "file:") {
		return dataSource, nil
	}
	if _, err := os.Stat(dataSource); err != nil {
		return "", fmt.Errorf("index database: %w", err)
	}
	return "file:" + dataSource + "?mode=ro", nil
}

// OpenIndex validates the tenant table and prepares its search statements.
func (c *SQLConnection) OpenIndex(ctx context.Context, name string) (Index, error) {
	var found string
	err := c.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open index %q: %w", name, ErrIndexNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", name, err)
	}

	if err := c.checkColumns(ctx, name); err != nil {
		return nil, err
	}

	idx := &sqlIndex{name: name, stmts: make(map[Metric]*sql.Stmt, len(sqlFuncs))}
	for metric, fn := range sqlFuncs {
		query := fmt.Sprintf(
			`SELECT expand_id, source_table, %s(%s, ?) AS _distance, ask_method_code FROM %s WHERE %s IS NOT NULL ORDER BY _distance ASC LIMIT ?`,
			fn, quoteIdent(c.vectorColumn), quoteIdent(name), quoteIdent(c.vectorColumn))
		stmt, err := c.db.PrepareContext(ctx, query)
		if err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("prepare search on %q: %w", name, err)
		}
		idx.stmts[metric] = stmt
	}
	return idx, nil
}

func (c *SQLConnection) checkColumns(ctx context.Context, table string) error {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("inspect index %q: %w", table, err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var (
			cid      int
			col, typ string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &col, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect index %q: %w", table, err)
		}
		have[strings.ToLower(col)] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect index %q: %w", table, err)
	}

	var missing []string
	for _, col := range append(requiredColumns, c.vectorColumn) {
		if !have[strings.ToLower(col)] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("open index %q: missing columns %s: %w", table, strings.Join(missing, ", "), ErrSchemaMismatch)
	}
	return nil
}

// Close closes the database. Safe to call more than once.
func (c *SQLConnection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.db.Close()
	})
	return c.closeErr
}

type sqlIndex struct {
	name  string
	stmts map[Metric]*sql.Stmt
}

func (i *sqlIndex) Name() string {
	return i.name
}

func (i *sqlIndex) Search(ctx context.Context, vec []float32, metric Metric, limit int) ([]Row, error) {
	stmt, ok := i.stmts[metric]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	rows, err := stmt.QueryContext(ctx, EncodeVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", i.name, err)
	}
	defer rows.Close()

	out := make([]Row, 0, min(limit, 64))
	for rows.Next() {
		var (
			r    Row
			code sql.NullString
			src  sql.NullString
		)
		if err := rows.Scan(&r.ExpandID, &src, &r.Distance, &code); err != nil {
			return nil, fmt.Errorf("search %q: %w", i.name, err)
		}
		r.SourceTable = src.String
		r.AskMethodCode = code.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", i.name, err)
	}
	return out, nil
}

func (i *sqlIndex) Close() error {
	var errs []error
	for _, stmt := range i.stmts {
		errs = append(errs, stmt.Close())
	}
	return errors.Join(errs...)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
