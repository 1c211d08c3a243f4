package geopackage

import (
	"database/sql"
	"encoding/json"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/meridianworks/geofuse/pkg/types"
)

//go:embed schema.sql
var catalogDDL string

// Writer creates SQLite-backed output containers.
type Writer struct{}

// NewWriter returns a Writer.
func NewWriter() Writer {
	return Writer{}
}

// Create initializes a new container file at path. The path must not
// already exist; callers that want replacement remove the file first.
func (Writer) Create(path string) (types.Output, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAlreadyExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	if _, err := db.Exec(catalogDDL); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("initialize catalog: %w", err)
	}
	return &output{db: db, layers: map[string]*outputLayer{}}, nil
}

type outputLayer struct {
	table  string
	schema *types.Schema
	insert string
}

// output writes layers sequentially into one container file.
type output struct {
	db        *sql.DB
	layers    map[string]*outputLayer
	finalized bool
	closed    bool
}

func (o *output) CreateLayer(name string, schema *types.Schema, crs types.CRS) error {
	if o.closed {
		return fmt.Errorf("%w: output closed", types.ErrWrite)
	}
	if o.finalized {
		return fmt.Errorf("%w: output already finalized", types.ErrWrite)
	}
	if name == "" {
		return fmt.Errorf("%w: empty layer name", types.ErrWrite)
	}
	if schema == nil {
		return fmt.Errorf("%w: layer %q has no schema", types.ErrWrite, name)
	}
	if _, ok := o.layers[name]; ok {
		return fmt.Errorf("%w: layer %q", types.ErrAlreadyExists, name)
	}

	table, err := tableName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrWrite, err)
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("%w: encode schema: %v", types.ErrWrite, err)
	}

	cols := make([]string, 0, schema.Len()+1)
	cols = append(cols, "geom TEXT")
	for i, f := range schema.Fields() {
		cols = append(cols, fmt.Sprintf("%s %s", columnName(i), sqlType(f.Type)))
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))
	if _, err := o.db.Exec(ddl); err != nil {
		return fmt.Errorf("%w: create layer %q: %v", types.ErrWrite, name, err)
	}

	const catalog = `INSERT INTO fuse_contents
		(layer_name, table_name, geometry_kind, crs, schema_json)
		VALUES (?, ?, ?, ?, ?)`
	if _, err := o.db.Exec(catalog, name, table, schema.GeometryKind(), string(crs), string(schemaJSON)); err != nil {
		return fmt.Errorf("%w: register layer %q: %v", types.ErrWrite, name, err)
	}

	o.layers[name] = &outputLayer{
		table:  table,
		schema: schema.Clone(),
		insert: insertStatement(table, schema.Len()),
	}
	return nil
}

func insertStatement(table string, fieldCount int) string {
	cols := make([]string, 0, fieldCount+1)
	marks := make([]string, 0, fieldCount+1)
	cols = append(cols, "geom")
	marks = append(marks, "?")
	for i := 0; i < fieldCount; i++ {
		cols = append(cols, columnName(i))
		marks = append(marks, "?")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func (o *output) Append(layer string, features ...types.Feature) error {
	if o.closed {
		return fmt.Errorf("%w: output closed", types.ErrWrite)
	}
	if o.finalized {
		return fmt.Errorf("%w: output already finalized", types.ErrWrite)
	}
	meta, ok := o.layers[layer]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrLayerNotFound, layer)
	}
	if len(features) == 0 {
		return nil
	}

	tx, err := o.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin append: %v", types.ErrWrite, err)
	}
	stmt, err := tx.Prepare(meta.insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: prepare append: %v", types.ErrWrite, err)
	}
	defer stmt.Close()

	fields := meta.schema.Fields()
	args := make([]any, len(fields)+1)
	for _, f := range features {
		geom, err := encodeGeometry(f.Geometry)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: layer %q: encode geometry: %v", types.ErrWrite, layer, err)
		}
		args[0] = geom
		for i, fld := range fields {
			v, err := encodeValue(f.Properties[fld.Name], fld.Type)
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("%w: layer %q field %q: %v", types.ErrWrite, layer, fld.Name, err)
			}
			args[i+1] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: layer %q: %v", types.ErrWrite, layer, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit append: %v", types.ErrWrite, err)
	}
	return nil
}

func (o *output) Finalize() error {
	if o.closed {
		return fmt.Errorf("%w: output closed", types.ErrFinalize)
	}
	if o.finalized {
		return nil
	}
	for name, meta := range o.layers {
		var count int
		row := o.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", meta.table))
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("%w: count layer %q: %v", types.ErrFinalize, name, err)
		}
		if _, err := o.db.Exec(
			"UPDATE fuse_contents SET feature_count = ? WHERE layer_name = ?",
			count, name); err != nil {
			return fmt.Errorf("%w: record count for %q: %v", types.ErrFinalize, name, err)
		}
	}
	if _, err := o.db.Exec("UPDATE fuse_meta SET value = '1' WHERE key = 'finalized'"); err != nil {
		return fmt.Errorf("%w: %v", types.ErrFinalize, err)
	}
	o.finalized = true
	return nil
}

func (o *output) Close() error {
	if o.closed {
		return nil
	}
	o.closed = true
	return o.db.Close()
}
