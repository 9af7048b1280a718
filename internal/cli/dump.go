package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump TYPE ID",
		Short: "Dump an entity with its foreign keys resolved",
		Long: `Fetch an entity by id and print its columns, resolving foreign keys
recursively. An entity met again on its own foreign key path is printed
as "*RECURSION*".

Examples:
  sqlz dump --driver sqlite3 --dsn ./app.db --schema ./schema.yaml User 1
  sqlz dump --dsn 'user:pass@/app' --schema ./schema.yaml --format json Team 3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, cmd, args[0], args[1])
		},
	}

	return cmd
}

func runDump(opts *RootOptions, cmd *cobra.Command, typeName, rawID string) error {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", rawID), err)
	}

	ctx := cmd.Context()
	sess, err := opts.open(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	t, err := sess.registry.Type(typeName)
	if err != nil {
		return WrapExitError(ExitFailure, "unknown type", err)
	}

	e, err := t.Get(ctx, id)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fetch entity", err)
	}

	dump, err := e.Dump(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to dump entity", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(dump)
}
