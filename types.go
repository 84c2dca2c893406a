// Package rowstore is the top-level facade for the rowstore engine.
package rowstore

import (
	"github.com/tuannm99/rowstore/internal"
	"github.com/tuannm99/rowstore/internal/engine"
	"github.com/tuannm99/rowstore/internal/record"
	"github.com/tuannm99/rowstore/internal/table"
)

type (
	Database  = engine.Database
	Options   = engine.Options
	Config    = internal.RowStoreConfig
	Schema    = record.Schema
	Column    = record.Column
	Value     = record.Value
	Iterator  = table.Iterator
	Predicate = table.Predicate
)

const (
	Integer = record.TypeInteger
	Real    = record.TypeReal
	Text    = record.TypeText
)

// Open opens the database described by cfg.
func Open(cfg *Config) (*Database, error) {
	return engine.OpenConfig(cfg)
}

// LoadConfig reads a YAML config file; an empty path uses defaults and
// ROWSTORE_* environment variables only.
func LoadConfig(path string) (*Config, error) {
	return internal.LoadConfig(path)
}

func NewSchema(table string, cols ...Column) (Schema, error) {
	return record.NewSchema(table, cols...)
}
