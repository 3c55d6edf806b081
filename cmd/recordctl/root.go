package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dioad/records"
	"github.com/dioad/records/entity"
	"github.com/dioad/records/internal/config"
	"github.com/dioad/records/internal/logging"
)

// app is the state shared by every subcommand once the root command has run its
// pre-run hook.
type app struct {
	cfgFile   string
	opts      *config.Options
	validator *entity.Validator
}

// notFoundError is what the user sees when an id does not resolve.
type notFoundError struct {
	kind string
	id   string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.kind, e.id)
}

func (e *notFoundError) Unwrap() error {
	return records.ErrNotFound
}

// run executes recordctl with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var verr *entity.ValidationError
	if errors.As(err, &verr) {
		for _, k := range slices.Sorted(maps.Keys(verr.Fields)) {
			fmt.Fprintln(w, verr.Fields[k])
		}
		return
	}
	fmt.Fprintln(w, err)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{validator: entity.NewValidator()}

	root := &cobra.Command{
		Use:           "recordctl",
		Short:         "Manage notes, blog posts and ledger transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnv(".env"); err != nil {
				return err
			}

			opts, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.opts = opts

			logging.SetupLogger(opts.Env, opts.Log.Level, cmd.ErrOrStderr())
			return nil
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ./recordctl.yaml or ~/.recordctl/config.yaml)")

	root.AddCommand(
		newKindCmd(a, noteKind),
		newKindCmd(a, postKind),
		newTransactionsCmd(a),
		newMigrateCmd(a),
	)

	return root
}
