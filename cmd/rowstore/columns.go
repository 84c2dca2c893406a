package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannm99/rowstore/internal/record"
	"github.com/tuannm99/rowstore/internal/table"
)

// parseColumn parses "name:type[:length][:pk|:notnull]", e.g. "id:int:pk" or
// "name:text:20".
func parseColumn(spec string) (record.Column, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 {
		return record.Column{}, fmt.Errorf("column %q: want name:type[:length][:pk|:notnull]", spec)
	}
	col := record.Column{Name: parts[0]}
	switch strings.ToLower(parts[1]) {
	case "int", "integer":
		col.Type = record.TypeInteger
	case "real", "double", "float":
		col.Type = record.TypeReal
	case "text", "varchar", "string":
		col.Type = record.TypeText
	default:
		return record.Column{}, fmt.Errorf("column %q: unknown type %q", spec, parts[1])
	}
	if n, ok := col.Type.Width(); ok {
		col.Length = int32(n)
	}

	for _, p := range parts[2:] {
		switch strings.ToLower(p) {
		case "pk":
			col.PrimaryKey = true
		case "notnull":
			col.NotNull = true
		default:
			n, err := strconv.ParseInt(p, 10, 32)
			if err != nil || n < 0 {
				return record.Column{}, fmt.Errorf("column %q: bad option %q", spec, p)
			}
			col.Length = int32(n)
		}
	}
	return col, nil
}

// parseRow converts command-line literals into a row for schema.
func parseRow(schema record.Schema, args []string) ([]record.Value, error) {
	if len(args) != schema.NumCols() {
		return nil, fmt.Errorf("%s has %d columns, got %d values", schema.Table, schema.NumCols(), len(args))
	}
	out := make([]record.Value, len(args))
	for i, a := range args {
		v, err := record.ParseValue(schema.Cols[i].Type, a)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", schema.Cols[i].Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseWhere ANDs every condition together; none means every row.
func parseWhere(schema record.Schema, conds []string) (table.Predicate, error) {
	if len(conds) == 0 {
		return table.True{}, nil
	}
	and := make(table.And, 0, len(conds))
	for _, c := range conds {
		cmp, err := table.ParseCondition(schema, c)
		if err != nil {
			return nil, err
		}
		and = append(and, cmp)
	}
	if len(and) == 1 {
		return and[0], nil
	}
	return and, nil
}
