package cli

import (
	"github.com/spf13/cobra"
)

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count TYPE",
		Short: "Count the rows of an entity type",
		Long: `Count the rows of an entity type's table. Counting a subtype counts
the whole table it shares with its root type.

Examples:
  sqlz count --driver sqlite3 --dsn ./app.db --schema ./schema.yaml User`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, cmd, args[0])
		},
	}

	return cmd
}

func runCount(opts *RootOptions, cmd *cobra.Command, typeName string) error {
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

	count, err := t.Lookup().GetCount(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count rows", err)
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(count)
}
