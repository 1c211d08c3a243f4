// Package geopackage stores merge inputs and outputs as single-file
// SQLite containers. A container has a fuse_contents catalog describing
// each layer (name, geometry kind, CRS, attribute schema) and one feature
// table per layer with positional attribute columns.
package geopackage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/meridianworks/geofuse/pkg/types"
)

// Reader opens container files for reading.
type Reader struct{}

// NewReader returns a Reader.
func NewReader() Reader {
	return Reader{}
}

// Open validates and opens the container at path. A missing file returns
// ErrNotFound; a file without a finalized catalog returns
// ErrInvalidContainer.
func (Reader) Open(path string) (types.Container, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("stat container: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}

	c := &container{db: db, layers: map[string]*layerMeta{}}
	if err := c.load(path); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

type layerMeta struct {
	table  string
	schema *types.Schema
	crs    types.CRS
	count  int
}

type container struct {
	db     *sql.DB
	order  []string
	layers map[string]*layerMeta
	closed bool
}

func (c *container) load(path string) error {
	var finalized string
	row := c.db.QueryRow("SELECT value FROM fuse_meta WHERE key = 'finalized'")
	if err := row.Scan(&finalized); err != nil {
		return fmt.Errorf("%w: %s: no catalog", types.ErrInvalidContainer, path)
	}
	if finalized != "1" {
		return fmt.Errorf("%w: %s: not finalized", types.ErrInvalidContainer, path)
	}

	rows, err := c.db.Query(`SELECT layer_name, table_name, crs, schema_json, feature_count
		FROM fuse_contents ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrInvalidContainer, path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, table, crs, schemaJSON string
		var count int
		if err := rows.Scan(&name, &table, &crs, &schemaJSON, &count); err != nil {
			return fmt.Errorf("%w: %s: %v", types.ErrInvalidContainer, path, err)
		}
		schema := &types.Schema{}
		if err := json.Unmarshal([]byte(schemaJSON), schema); err != nil {
			return fmt.Errorf("%w: %s: layer %q schema: %v", types.ErrInvalidContainer, path, name, err)
		}
		c.order = append(c.order, name)
		c.layers[name] = &layerMeta{
			table:  table,
			schema: schema,
			crs:    types.CRS(crs),
			count:  count,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrInvalidContainer, path, err)
	}
	return nil
}

func (c *container) meta(layer string) (*layerMeta, error) {
	m, ok := c.layers[layer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrLayerNotFound, layer)
	}
	return m, nil
}

func (c *container) Layers() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *container) Schema(layer string) (*types.Schema, error) {
	m, err := c.meta(layer)
	if err != nil {
		return nil, err
	}
	return m.schema.Clone(), nil
}

func (c *container) CRS(layer string) (types.CRS, error) {
	m, err := c.meta(layer)
	if err != nil {
		return types.CRSUndefined, err
	}
	return m.crs, nil
}

func (c *container) FeatureCount(layer string) (int, error) {
	m, err := c.meta(layer)
	if err != nil {
		return 0, err
	}
	return m.count, nil
}

func (c *container) Features(layer string) (types.FeatureSeq, error) {
	m, err := c.meta(layer)
	if err != nil {
		return nil, err
	}

	cols := "geom"
	for i := 0; i < m.schema.Len(); i++ {
		cols += ", " + columnName(i)
	}
	rows, err := c.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", cols, m.table))
	if err != nil {
		return nil, fmt.Errorf("read layer %q: %w", layer, err)
	}
	return &featureSeq{rows: rows, schema: m.schema}, nil
}

func (c *container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// featureSeq streams one layer's rows, decoding each into a Feature.
type featureSeq struct {
	rows   *sql.Rows
	schema *types.Schema
	err    error
	done   bool
}

func (s *featureSeq) Next() (types.Feature, bool) {
	if s.done || s.err != nil {
		return types.Feature{}, false
	}
	if !s.rows.Next() {
		s.done = true
		s.err = s.rows.Err()
		s.rows.Close()
		return types.Feature{}, false
	}

	fields := s.schema.Fields()
	raw := make([]any, len(fields)+1)
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		s.fail(err)
		return types.Feature{}, false
	}

	geom, err := decodeGeometry(raw[0])
	if err != nil {
		s.fail(fmt.Errorf("decode geometry: %w", err))
		return types.Feature{}, false
	}
	props := make(map[string]any, len(fields))
	for i, f := range fields {
		v, err := decodeValue(raw[i+1], f.Type)
		if err != nil {
			s.fail(fmt.Errorf("field %q: %w", f.Name, err))
			return types.Feature{}, false
		}
		props[f.Name] = v
	}
	return types.Feature{Geometry: geom, Properties: props}, true
}

func (s *featureSeq) fail(err error) {
	s.err = err
	s.done = true
	s.rows.Close()
}

func (s *featureSeq) Err() error {
	return s.err
}

func (s *featureSeq) Close() error {
	s.done = true
	return s.rows.Close()
}
