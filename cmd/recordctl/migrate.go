package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dioad/records/entity"
	"github.com/dioad/records/snapshot"
	"github.com/dioad/records/sqlite"
)

type migrateFlags struct {
	from string
	to   string
	kind string
}

func newMigrateCmd(a *app) *cobra.Command {
	var f migrateFlags

	cmd := &cobra.Command{
		Use:   "migrate --from file.json --to db.sqlite --kind notes",
		Short: "Copy a JSON or YAML snapshot into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.from == "" || f.to == "" {
				return errors.New("both --from and --to are required")
			}

			switch f.kind {
			case noteKind.name:
				return migrate(cmd.Context(), cmd.OutOrStdout(), a.validator, f, noteKind)
			case postKind.name:
				return migrate(cmd.Context(), cmd.OutOrStdout(), a.validator, f, postKind)
			case transactionKind.name:
				return migrate(cmd.Context(), cmd.OutOrStdout(), a.validator, f, transactionKind)
			default:
				return fmt.Errorf("unknown kind %q, want notes, posts or transactions", f.kind)
			}
		},
	}

	cmd.Flags().StringVar(&f.from, "from", "", "snapshot file to read")
	cmd.Flags().StringVar(&f.to, "to", "", "SQLite database to write")
	cmd.Flags().StringVar(&f.kind, "kind", noteKind.name, "record kind")
	return cmd
}

// migrate imports every record of the snapshot in one transaction, keeping ids and
// stamps. Nothing is written if any record is invalid or already present.
func migrate[T any](ctx context.Context, out io.Writer, va *entity.Validator, f migrateFlags, k kind[T]) error {
	rs, err := snapshot.ReadFile[T](f.from)
	if err != nil {
		return err
	}

	for _, r := range rs {
		if err := va.Validate(r.Data); err != nil {
			return fmt.Errorf("%s %s: %w", k.singular, r.ID, err)
		}
	}

	db, err := sqlite.NewStore(f.to)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := sqlite.NewBackend[T](ctx, db, k.name)
	if err != nil {
		return err
	}
	if err := b.Import(ctx, rs); err != nil {
		return err
	}

	fmt.Fprintf(out, "migrated %d %s to %s\n", len(rs), k.name, f.to)
	return nil
}
