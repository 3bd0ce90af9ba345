package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Record is one stored row of a tenant table. A nil Vector behaves like a NULL column
// and never matches.
type Record struct {
	ExpandID      int64
	SourceTable   string
	AskMethodCode string
	Vector        []float32
}

// MemoryConnection is an in-process engine with brute-force search. Tables can be filled
// with Add or loaded from a snapshot written by Save.
type MemoryConnection struct {
	mu     sync.RWMutex
	tables map[string]*memoryTable
	closed bool
}

type memoryTable struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryConnection returns an empty engine.
func NewMemoryConnection() *MemoryConnection {
	return &MemoryConnection{tables: make(map[string]*memoryTable)}
}

// OpenMemory returns an engine loaded from the snapshot at path, or an empty one when
// path is empty.
func OpenMemory(path string) (*MemoryConnection, error) {
	c := NewMemoryConnection()
	if path == "" {
		return c, nil
	}
	if err := c.Load(path); err != nil {
		return nil, err
	}
	return c, nil
}

// Add appends records to table, creating it if needed. Vectors are copied.
func (c *MemoryConnection) Add(table string, records ...Record) {
	c.mu.Lock()
	t, ok := c.tables[table]
	if !ok {
		t = &memoryTable{}
		c.tables[table] = t
	}
	c.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range records {
		if r.Vector != nil {
			r.Vector = append([]float32(nil), r.Vector...)
		}
		t.records = append(t.records, r)
	}
}

// Tables returns the table names in sorted order.
func (c *MemoryConnection) Tables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *MemoryConnection) OpenIndex(ctx context.Context, name string) (Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosed
	}
	t, ok := c.tables[name]
	if !ok {
		return nil, fmt.Errorf("open index %q: %w", name, ErrIndexNotFound)
	}
	return &memoryIndex{name: name, table: t}, nil
}

// Close marks the engine closed. Safe to call more than once.
func (c *MemoryConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type memoryIndex struct {
	name  string
	table *memoryTable
}

func (m *memoryIndex) Name() string {
	return m.name
}

// Search scores every non-nil vector and keeps the limit nearest. Ties keep insertion order.
func (m *memoryIndex) Search(ctx context.Context, vec []float32, metric Metric, limit int) ([]Row, error) {
	dist, err := distanceFunc(metric)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.table.mu.RLock()
	rows := make([]Row, 0, len(m.table.records))
	for _, r := range m.table.records {
		if r.Vector == nil {
			continue
		}
		d, err := dist(r.Vector, vec)
		if err != nil {
			m.table.mu.RUnlock()
			return nil, fmt.Errorf("search %q: %w", m.name, err)
		}
		rows = append(rows, Row{
			ExpandID:      r.ExpandID,
			SourceTable:   r.SourceTable,
			Distance:      d,
			AskMethodCode: r.AskMethodCode,
		})
	}
	m.table.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	if limit < len(rows) {
		rows = rows[:max(limit, 0)]
	}
	return rows, nil
}

func (m *memoryIndex) Close() error {
	return nil
}

// Save writes every table to path, creating the directory if needed. Format, little
// endian: table count (4), then per table name and record count (4), then per record
// expand_id (8), source_table, ask_method_code, dimension (4) and dimension*4 vector bytes.
// Strings are a length (4) followed by their bytes. A nil vector has dimension 0.
func (c *MemoryConnection) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	names := c.Tables()
	if err := writeUint32(w, uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		c.mu.RLock()
		t := c.tables[name]
		c.mu.RUnlock()

		t.mu.RLock()
		err := writeTable(w, name, t.records)
		t.mu.RUnlock()
		if err != nil {
			return fmt.Errorf("write table %q: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return f.Close()
}

func writeTable(w io.Writer, name string, records []Record) error {
	if err := writeString(w, name); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(records))); err != nil {
		return err
	}
	for _, r := range records {
		if err := binary.Write(w, binary.LittleEndian, r.ExpandID); err != nil {
			return err
		}
		if err := writeString(w, r.SourceTable); err != nil {
			return err
		}
		if err := writeString(w, r.AskMethodCode); err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(r.Vector))); err != nil {
			return err
		}
		if _, err := w.Write(EncodeVector(r.Vector)); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the engine contents with the snapshot at path.
func (c *MemoryConnection) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	n, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("read table count: %w", err)
	}
	tables := make(map[string]*memoryTable, n)
	for i := uint32(0); i < n; i++ {
		name, records, err := readTable(r)
		if err != nil {
			return fmt.Errorf("read table %d: %w", i, err)
		}
		tables[name] = &memoryTable{records: records}
	}

	c.mu.Lock()
	c.tables = tables
	c.mu.Unlock()
	return nil
}

func readTable(r io.Reader) (string, []Record, error) {
	name, err := readString(r)
	if err != nil {
		return "", nil, err
	}
	count, err := readUint32(r)
	if err != nil {
		return "", nil, err
	}
	records := make([]Record, 0, min(count, 1<<16))
	for i := uint32(0); i < count; i++ {
		var rec Record
		if err := binary.Read(r, binary.LittleEndian, &rec.ExpandID); err != nil {
			return "", nil, err
		}
		if rec.SourceTable, err = readString(r); err != nil {
			return "", nil, err
		}
		if rec.AskMethodCode, err = readString(r); err != nil {
			return "", nil, err
		}
		dim, err := readUint32(r)
		if err != nil {
			return "", nil, err
		}
		if dim > 0 {
			buf := make([]byte, int(dim)*4)
			if _, err := io.ReadFull(r, buf); err != nil {
				return "", nil, err
			}
			if rec.Vector, err = DecodeVector(buf); err != nil {
				return "", nil, err
			}
		}
		records = append(records, rec)
	}
	return name, records, nil
}

func writeUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
