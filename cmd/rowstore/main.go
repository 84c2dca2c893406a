package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannm99/rowstore/internal"
	"github.com/tuannm99/rowstore/internal/engine"
	"github.com/tuannm99/rowstore/internal/record"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "rowstore",
	Short:         "Inspect and edit a rowstore database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// openDB loads the config, applies flag overrides and opens the database.
func openDB() (*engine.Database, error) {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Mode = internal.StorageSQLite
		cfg.Storage.Path = dbPath
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	if cfg.Storage.Mode == internal.StorageMemory {
		slog.Warn("storage mode is memory, nothing will be persisted")
	}
	return engine.OpenConfig(cfg)
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		names, err := db.ListTables()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Show the columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Describe(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range s.Cols {
			flags := ""
			switch {
			case c.PrimaryKey:
				flags = " PRIMARY KEY"
			case c.NotNull:
				flags = " NOT NULL"
			}
			fmt.Fprintf(out, "%-20s %v(%d)%s\n", c.Name, c.Type, c.Length, flags)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		specs, _ := cmd.Flags().GetStringArray("col")
		cols := make([]record.Column, 0, len(specs))
		for _, s := range specs {
			c, err := parseColumn(s)
			if err != nil {
				return err
			}
			cols = append(cols, c)
		}
		schema, err := record.NewSchema(args[0], cols...)
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if _, err := db.CreateTable(schema); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Table '%s' created\n", schema.Table)
		return nil
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <table> <value>...",
	Short: "Insert one row; use null for a missing value",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Describe(args[0])
		if err != nil {
			return err
		}
		row, err := parseRow(s, args[1:])
		if err != nil {
			return err
		}
		return db.Insert(args[0], row)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <table> <key>",
	Short: "Print the row with the given primary key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Describe(args[0])
		if err != nil {
			return err
		}
		pk := s.PrimaryKey()
		if pk < 0 {
			return fmt.Errorf("%s has no primary key", s.Table)
		}
		key, err := record.ParseValue(s.Cols[pk].Type, args[1])
		if err != nil {
			return err
		}
		row, err := db.Get(args[0], key)
		if err != nil {
			return err
		}
		for i, v := range row {
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", s.Cols[i].Name, v)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <key>",
	Short: "Delete the row with the given primary key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Describe(args[0])
		if err != nil {
			return err
		}
		pk := s.PrimaryKey()
		if pk < 0 {
			return fmt.Errorf("%s has no primary key", s.Table)
		}
		key, err := record.ParseValue(s.Cols[pk].Type, args[1])
		if err != nil {
			return err
		}
		return db.Delete(args[0], key)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <table>",
	Short: "Print the rows of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		s, err := db.Describe(args[0])
		if err != nil {
			return err
		}
		where, _ := cmd.Flags().GetStringArray("where")
		pred, err := parseWhere(s, where)
		if err != nil {
			return err
		}

		it, err := db.Scan(args[0], pred)
		if err != nil {
			return err
		}
		defer it.Close()
		if err := it.PrintAll(cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d row(s)\n", it.Visited())
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <table>",
	Short: "Drop a table and its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DropTable(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Table '%s' dropped\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database file; overrides storage settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	createCmd.Flags().StringArray("col", nil, "Column as name:type[:length][:pk|:notnull] (repeatable)")
	_ = createCmd.MarkFlagRequired("col")
	scanCmd.Flags().StringArray("where", nil, "Condition such as age>35 (repeatable, ANDed)")

	rootCmd.AddCommand(
		tablesCmd,
		describeCmd,
		createCmd,
		insertCmd,
		getCmd,
		deleteCmd,
		scanCmd,
		dropCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
