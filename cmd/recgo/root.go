package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/codec"
)

const defaultConfigFile = "recgo.yaml"

// errFailed is returned by commands whose mutation was rejected. The
// result has already been printed.
var errFailed = errors.New("operation failed")

// app holds the state shared by the commands of one invocation.
type app struct {
	configPath string
	flags      Config
	cfg        Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "recgo",
		Short: "A schema-driven record store",
		Long: `recgo stores records of schema-declared model classes with unique,
foreign key and filter indexes on top of a pluggable persistence backend.

Settings are read from recgo.yaml (or --config) and overridden by flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(a.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			overrides(cmd.Flags(), a.flags, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfigFile, "config file")
	bindFlags(root.PersistentFlags(), &a.flags)

	root.AddCommand(
		a.newModelsCmd(),
		a.newSchemaCmd(),
		a.newSeedCmd(),
		a.newListCmd(),
		a.newViewCmd(),
		a.newCreateCmd(),
		a.newUpdateCmd(),
		a.newRemoveCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newReindexCmd(),
	)
	return root
}

func (a *app) logger() *recgo.Logger {
	level, _ := a.cfg.Level()
	if a.cfg.LogFormat == "json" {
		return recgo.NewJSONLogger(level)
	}
	return recgo.NewTextLogger(level)
}

// withStore opens the backend, initializes a store on it and runs fn.
// The backend is closed afterwards, flushing pending writes.
func (a *app) withStore(ctx context.Context, fn func(s *recgo.Store, b *backend) error) (err error) {
	logger := a.logger()

	b, err := openBackend(ctx, a.cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close backend: %w", cerr))
		}
	}()

	c, _ := codec.ByName(a.cfg.Codec)
	s, err := recgo.New(b.persistence,
		recgo.WithCodec(c),
		recgo.WithLogger(logger),
		b.downloader(a.cfg),
	)
	if err != nil {
		return err
	}
	if err := s.InitData(ctx, false); err != nil {
		return err
	}
	return fn(s, b)
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

// readArg returns arg, or the content of stdin when arg is "-" and the
// content of the file when arg starts with "@".
func readArg(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(cmd.InOrStdin())
	case len(arg) > 1 && arg[0] == '@':
		return os.ReadFile(arg[1:])
	default:
		return []byte(arg), nil
	}
}
