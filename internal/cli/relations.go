package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ido50/sqlz/v2"
	"github.com/spf13/cobra"
)

// RelationRow is a row of a relation table as printed by the relations
// command.
type RelationRow struct {
	Left      int64                  `json:"left"`
	LeftType  string                 `json:"left_type"`
	Right     int64                  `json:"right"`
	RightType string                 `json:"right_type"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (r RelationRow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%d)\t%s(%d)", r.LeftType, r.Left, r.RightType, r.Right)

	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\t%s=%v", name, r.Fields[name])
	}
	return b.String()
}

// NewRelationsCommand creates the relations command.
func NewRelationsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations TYPE TABLE",
		Short: "List every row of a relation table",
		Long: `List every row of a relation table of an entity type, with both
related entities and the extra relation columns.

Examples:
  sqlz relations --driver sqlite3 --dsn ./app.db --schema ./schema.yaml User friends`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelations(rootOpts, cmd, args[0], args[1])
		},
	}

	return cmd
}

func runRelations(opts *RootOptions, cmd *cobra.Command, typeName, table string) error {
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

	pairs, err := t.GetAllRelations(ctx, table)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list relations", err)
	}

	rows := make([]RelationRow, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, relationRow(pair))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Left != rows[j].Left {
			return rows[i].Left < rows[j].Left
		}
		return rows[i].Right < rows[j].Right
	})

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return out.Success(rows)
	}
	for _, row := range rows {
		if err := out.Success(row); err != nil {
			return err
		}
	}
	return nil
}

func relationRow(pair sqlz.RelationPair) RelationRow {
	row := RelationRow{Fields: pair.Fields}
	if pair.Left != nil {
		row.Left = pair.Left.ID()
		row.LeftType = pair.Left.Type().Name
	}
	if pair.Right != nil {
		row.Right = pair.Right.ID()
		row.RightType = pair.Right.Type().Name
	}
	if len(row.Fields) == 0 {
		row.Fields = nil
	}
	return row
}
