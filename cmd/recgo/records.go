package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/query"
	"github.com/hupe1980/recgo/record"
)

func (a *app) newListCmd() *cobra.Command {
	var (
		filters    []string
		filterJSON string
		sortField  string
		desc       bool
		offset     int
		limit      int
		include    []string
	)

	cmd := &cobra.Command{
		Use:   "list <model>",
		Short: "List the records of a model class",
		Long: `List the records of a model class.

Filters of different fields are OR'ed. A field given several times matches
any of its values. Values are parsed as JSON when possible, so --filter
amount=12 matches the number 12 and --filter name='"12"' the text "12".`,
		Example: `  recgo list transactions --filter contact=1 --include contact
  recgo list transactions --filter-json '{"date":{"startDate":"2024-01-01"}}' --sort date --desc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := query.Options{Include: include}

			parsed, err := parseFilters(filters, filterJSON)
			if err != nil {
				return err
			}
			opts.Filters = parsed

			if sortField != "" {
				opts.Sort = &query.Sort{Field: sortField, Order: query.Asc}
				if desc {
					opts.Sort.Order = query.Desc
				}
			}
			if cmd.Flags().Changed("offset") || cmd.Flags().Changed("limit") {
				opts.Offset = query.Int(offset)
				opts.Limit = query.Int(limit)
			}

			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				res, err := s.List(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "field=value filter (repeatable)")
	cmd.Flags().StringVar(&filterJSON, "filter-json", "", "filters as a JSON object")
	cmd.Flags().StringVarP(&sortField, "sort", "s", "", "field to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of records to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of records")
	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "foreign key fields to resolve")
	return cmd
}

// parseFilters merges field=value pairs and a JSON filter object.
func parseFilters(pairs []string, raw string) (map[string]query.FilterValue, error) {
	out := map[string]query.FilterValue{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("invalid --filter-json: %w", err)
		}
	}

	values := map[string][]record.Value{}
	var fields []string
	for _, pair := range pairs {
		field, value, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q, want field=value", pair)
		}
		if _, seen := values[field]; !seen {
			fields = append(fields, field)
		}
		values[field] = append(values[field], parseValue(value))
	}
	for _, field := range fields {
		if vs := values[field]; len(vs) == 1 {
			out[field] = query.Eq(vs[0])
		} else {
			out[field] = query.In(vs...)
		}
	}
	return out, nil
}

// parseValue decodes s as a JSON scalar, falling back to the text itself.
func parseValue(s string) record.Value {
	var v record.Value
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return record.String(s)
	}
	if k := v.Kind(); k == record.KindArray || k == record.KindObject {
		return record.String(s)
	}
	return v
}

func (a *app) newViewCmd() *cobra.Command {
	var include []string

	cmd := &cobra.Command{
		Use:   "view <model> <id>",
		Short: "Show a single record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				res, err := s.View(cmd.Context(), args[0], args[1], query.ViewOptions{Include: include})
				if err != nil {
					return err
				}
				if err := printJSON(cmd, res); err != nil {
					return err
				}
				if !res.Success {
					return errFailed
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "foreign key fields to resolve")
	return cmd
}

// decodeRecord parses the JSON object of a create or update argument.
func decodeRecord(cmd *cobra.Command, arg string) (record.Record, error) {
	data, err := readArg(cmd, arg)
	if err != nil {
		return nil, err
	}
	var rec record.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return rec, nil
}

// printResult prints a mutation result and turns rejections into errFailed.
func printResult(cmd *cobra.Command, res recgo.Result) error {
	if err := printJSON(cmd, res); err != nil {
		return err
	}
	if !res.Success {
		return errFailed
	}
	return nil
}

func (a *app) newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <model> <json|@file|->",
		Short: "Create a record",
		Example: `  recgo create contacts '{"name":"Alice","email":"alice@example.com"}'
  recgo create invoices @invoice.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := decodeRecord(cmd, args[1])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				res, err := s.Create(cmd.Context(), args[0], params)
				if err != nil {
					return err
				}
				return printResult(cmd, res)
			})
		},
	}
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <model> <id> <json|@file|->",
		Short: "Update a record",
		Long:  `Update a record. Fields present in the JSON object replace the stored ones, null included.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := decodeRecord(cmd, args[2])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				res, err := s.Update(cmd.Context(), args[0], args[1], params)
				if err != nil {
					return err
				}
				return printResult(cmd, res)
			})
		},
	}
}

func (a *app) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <model> <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a record that is not referenced",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				res, err := s.Remove(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return printResult(cmd, res)
			})
		},
	}
}
