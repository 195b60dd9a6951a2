package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/schema"
)

func (a *app) newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				models, err := s.ListModelClasses()
				if err != nil {
					return err
				}
				return printJSON(cmd, models)
			})
		},
	}
}

func (a *app) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <model>",
		Short: "Show the schema of a model class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(s *recgo.Store, _ *backend) error {
				sch, err := s.GetSchema(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, sch)
			})
		},
	}
}

func (a *app) newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <schemas.yaml|schemas.json>",
		Short: "Replace the schemas and reload the store",
		Long: `Replace the schemas of the store with the given file and reload the store.
Existing collections and indexes are kept; indexes are rebuilt when missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadSchemas(cmd, args[0])
			if err != nil {
				return err
			}
			c, _ := codec.ByName(a.cfg.Codec)
			data, err := c.Marshal(reg)
			if err != nil {
				return fmt.Errorf("encode schemas: %w", err)
			}

			return a.withStore(cmd.Context(), func(s *recgo.Store, b *backend) error {
				if err := b.persistence.Write(cmd.Context(), persistence.SchemasKey, data); err != nil {
					return fmt.Errorf("write schemas: %w", err)
				}
				if err := s.InitData(cmd.Context(), true); err != nil {
					return err
				}
				models, err := s.ListModelClasses()
				if err != nil {
					return err
				}
				return printJSON(cmd, models)
			})
		},
	}
}

func loadSchemas(cmd *cobra.Command, arg string) (schema.Registry, error) {
	src := arg
	if arg != "-" {
		src = "@" + arg
	}
	data, err := readArg(cmd, src)
	if err != nil {
		return nil, err
	}

	var reg schema.Registry
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json":
		reg, err = schema.LoadJSON(bytes.NewReader(data))
	default:
		reg, err = schema.LoadYAML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("load schemas %s: %w", arg, err)
	}
	if err := reg.Validate(persistence.ReservedKeys()...); err != nil {
		return nil, err
	}
	return reg, nil
}
