package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/record"
)

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <model>",
		Short: "Print all records of a model class as a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				records, err := s.Download(args[0])
				if err != nil {
					return err
				}
				if records == nil {
					records = []record.Record{}
				}
				return printJSON(cmd, records)
			})
		},
	}
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <model> <file|->",
		Short: "Replace the records of a model class and rebuild the indexes",
		Long: `Replace the records of a model class with the JSON array in file and
rebuild all indexes. Records are stored as given, without validation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := args[1]
			if arg != "-" {
				arg = "@" + arg
			}
			data, err := readArg(cmd, arg)
			if err != nil {
				return err
			}
			var records []record.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("invalid records: %w", err)
			}

			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				if err := s.Upload(cmd.Context(), args[0], records); err != nil {
					return err
				}
				if err := s.RebuildIndexes(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d %s\n", len(records), args[0])
				return err
			})
		},
	}
}

func (a *app) newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild all indexes from the stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				return s.RebuildIndexes(cmd.Context())
			})
		},
	}
}
