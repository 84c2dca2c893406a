package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/record"
	"github.com/tuannm99/rowstore/internal/table"
)

func TestParseColumn(t *testing.T) {
	tests := []struct {
		spec string
		want record.Column
	}{
		{"id:int:pk", record.Column{Name: "id", Type: record.TypeInteger, Length: 4, PrimaryKey: true}},
		{"name:text:20", record.Column{Name: "name", Type: record.TypeText, Length: 20}},
		{"score:real:notnull", record.Column{Name: "score", Type: record.TypeReal, Length: 8, NotNull: true}},
		{"code:varchar:3:pk", record.Column{Name: "code", Type: record.TypeText, Length: 3, PrimaryKey: true}},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := parseColumn(tc.spec)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"id", "id:blob", "id:int:-3", "id:int:maybe"} {
		_, err := parseColumn(bad)
		require.Error(t, err, bad)
	}
}

func TestParseRowAndWhere(t *testing.T) {
	s, err := record.NewSchema("Person",
		record.Column{Name: "id", Type: record.TypeInteger, PrimaryKey: true},
		record.Column{Name: "name", Type: record.TypeText, Length: 10},
		record.Column{Name: "age", Type: record.TypeInteger, NotNull: true},
	)
	require.NoError(t, err)

	row, err := parseRow(s, []string{"2", "NULL", "40"})
	require.NoError(t, err)
	require.Equal(t, []record.Value{record.Int(2), record.Null(), record.Int(40)}, row)

	_, err = parseRow(s, []string{"2"})
	require.Error(t, err)
	_, err = parseRow(s, []string{"x", "Ann", "1"})
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	pred, err := parseWhere(s, nil)
	require.NoError(t, err)
	require.Equal(t, table.True{}, pred)

	pred, err = parseWhere(s, []string{"age>35"})
	require.NoError(t, err)
	require.Equal(t, table.Compare{Column: "age", Op: table.OpGt, Value: record.Int(35)}, pred)

	pred, err = parseWhere(s, []string{"age>35", "name=Bob"})
	require.NoError(t, err)
	require.Len(t, pred, 2)
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCLI_EndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.sqlite")

	out := run(t, "--db", db, "create", "Person",
		"--col", "id:int:pk", "--col", "name:text:10", "--col", "age:int:notnull")
	require.Contains(t, out, "Table 'Person' created")

	run(t, "--db", db, "insert", "Person", "1", "Ann", "30")
	run(t, "--db", db, "insert", "Person", "2", "null", "40")

	out = run(t, "--db", db, "tables")
	require.Equal(t, "Person\n", out)

	out = run(t, "--db", db, "scan", "Person", "--where", "age>35")
	require.Contains(t, out, "| 2 ")
	require.Contains(t, out, "| null ")
	require.NotContains(t, out, "Ann")
	require.Contains(t, out, "1 row(s)")

	out = run(t, "--db", db, "get", "Person", "1")
	require.Contains(t, out, "name = Ann")

	run(t, "--db", db, "delete", "Person", "1")
	out = run(t, "--db", db, "drop", "Person")
	require.Contains(t, out, "dropped")

	out = run(t, "--db", db, "tables")
	require.Empty(t, out)
}
