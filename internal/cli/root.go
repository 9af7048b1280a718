package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ido50/sqlz/v2"
	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Driver  string
	DSN     string
	Schema  string
	Config  string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the sqlz CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlz",
		Short: "Inspect databases through an sqlz entity schema",
		Long:  "Loads a YAML entity schema, connects to a database and inspects its entities and relations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "mysql", "database driver (mysql|sqlite3)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "path to the YAML entity schema")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML connection config")

	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewRelationsCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// session is an open connection with the schema's types registered on it.
type session struct {
	db       *sqlz.DB
	registry *sqlz.Registry
}

func (s *session) Close() error {
	return s.db.Close()
}

// open connects to the database and registers the schema. Diagnostics go
// to stderr, at debug level when verbose.
func (opts *RootOptions) open(ctx context.Context, stderr io.Writer) (*session, error) {
	if opts.DSN == "" {
		return nil, NewExitError(ExitCommandError, "--dsn is required")
	}
	if opts.Schema == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}

	cfg := sqlz.DefaultConfig()
	if opts.Config != "" {
		f, err := os.Open(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open config", err)
		}
		cfg, err = sqlz.LoadConfig(f)
		f.Close()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	f, err := os.Open(opts.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open schema", err)
	}
	schema, err := sqlz.LoadSchema(f)
	f.Close()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	db, err := sqlz.Open(ctx, opts.Driver, opts.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	db.WithConfig(cfg)

	registry := sqlz.NewRegistry(db)
	if err := registry.RegisterSchema(schema); err != nil {
		db.Close()
		return nil, WrapExitError(ExitCommandError, "invalid schema", err)
	}

	return &session{db: db, registry: registry}, nil
}
