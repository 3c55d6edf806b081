package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dioad/records"
	"github.com/dioad/records/entity"
)

// kind describes one record type managed from the command line.
type kind[T any] struct {
	name     string
	singular string
	summary  func(T) string
}

var (
	noteKind = kind[entity.Note]{
		name:     "notes",
		singular: "note",
		summary:  func(n entity.Note) string { return n.Title },
	}
	postKind = kind[entity.Post]{
		name:     "posts",
		singular: "post",
		summary:  func(p entity.Post) string { return p.Title },
	}
	transactionKind = kind[entity.Transaction]{
		name:     "transactions",
		singular: "transaction",
		summary: func(tx entity.Transaction) string {
			return tx.Name + "\t" + entity.Label(tx.Amount)
		},
	}
)

func (k kind[T]) notFound(err error, id string) error {
	if errors.Is(err, records.ErrNotFound) {
		return &notFoundError{kind: k.singular, id: id}
	}
	return err
}

func newKindCmd[T any](a *app, k kind[T]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   k.name,
		Short: "Manage " + k.name,
	}

	cmd.AddCommand(
		newAddCmd(a, k),
		newListCmd(a, k),
		newShowCmd(a, k),
		newEditCmd(a, k),
		newRemoveCmd(a, k),
	)
	return cmd
}

func newAddCmd[T any](a *app, k kind[T]) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "add --set key=value...",
		Short: "Create a " + k.singular,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch, err := parseSets[T](sets)
			if err != nil {
				return err
			}

			var zero T
			data, err := records.Apply(zero, patch)
			if err != nil {
				return err
			}
			if err := a.validator.Validate(data); err != nil {
				return err
			}

			s, done, err := openStore[T](cmd.Context(), a.opts, k.name)
			if err != nil {
				return err
			}
			defer done()

			r, err := s.Create(cmd.Context(), data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as key=value, repeatable")
	return cmd
}

func newListCmd[T any](a *app, k kind[T]) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List " + k.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := openStore[T](cmd.Context(), a.opts, k.name)
			if err != nil {
				return err
			}
			defer done()

			rs, err := s.Page(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			return writeList(cmd.OutOrStdout(), rs, k.summary)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records, 0 for all")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of records to skip")
	return cmd
}

func writeList[T any](out io.Writer, rs []records.Record[T], summary func(T) string) error {
	if len(rs) == 0 {
		_, err := fmt.Fprintln(out, "no records")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tSUMMARY")
	for _, r := range rs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, humanize.Time(r.Updated), summary(r.Data))
	}
	return w.Flush()
}

func newShowCmd[T any](a *app, k kind[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a " + k.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStore[T](cmd.Context(), a.opts, k.name)
			if err != nil {
				return err
			}
			defer done()

			r, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return k.notFound(err, args[0])
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(r); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newEditCmd[T any](a *app, k kind[T]) *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "edit <id> --set key=value...",
		Short: "Change fields of a " + k.singular,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseSets[T](sets)
			if err != nil {
				return err
			}
			if len(patch) == 0 {
				return errors.New("nothing to change, pass at least one --set key=value")
			}

			s, done, err := openStore[T](cmd.Context(), a.opts, k.name)
			if err != nil {
				return err
			}
			defer done()

			r, err := s.UpdateFunc(cmd.Context(), args[0], func(data *T) error {
				merged, err := records.Apply(*data, patch)
				if err != nil {
					return err
				}
				if err := a.validator.Validate(merged); err != nil {
					return err
				}
				*data = merged
				return nil
			})
			if err != nil {
				return k.notFound(err, args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "updated %s %s\n", k.singular, r.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as key=value, repeatable")
	return cmd
}

func newRemoveCmd[T any](a *app, k kind[T]) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a " + k.singular,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStore[T](cmd.Context(), a.opts, k.name)
			if err != nil {
				return err
			}
			defer done()

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return k.notFound(err, args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", k.singular, args[0])
			return nil
		},
	}
}

// parseSets turns key=value pairs into a patch. Values for fields that are numbers
// or booleans in T are converted; everything else stays a string.
func parseSets[T any](pairs []string) (records.Patch, error) {
	shape := jsonShape[T]()

	p := records.Patch{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", pair)
		}
		p[key] = coerce(shape[key], value)
	}
	return p, nil
}

// jsonShape returns the JSON encoding of T's zero value, field by field. Map types
// have no shape.
func jsonShape[T any]() map[string]json.RawMessage {
	var zero T
	shape := map[string]json.RawMessage{}

	b, err := json.Marshal(zero)
	if err != nil || bytes.Equal(b, []byte("null")) {
		return shape
	}
	_ = json.Unmarshal(b, &shape)
	return shape
}

func coerce(zero json.RawMessage, value string) any {
	switch {
	case bytes.Equal(zero, []byte("false")):
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case len(zero) > 0 && (zero[0] == '-' || zero[0] >= '0' && zero[0] <= '9'):
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return value
}
