package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dioad/records/entity"
)

func newTransactionsCmd(a *app) *cobra.Command {
	cmd := newKindCmd(a, transactionKind)
	cmd.AddCommand(newBalanceCmd(a))
	return cmd
}

func newBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the sum of all transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := openStore[entity.Transaction](cmd.Context(), a.opts, transactionKind.name)
			if err != nil {
				return err
			}
			defer done()

			rs, err := s.List(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions, balance %s\n", len(rs), entity.Label(entity.Balance(rs)))
			return nil
		},
	}
}
