package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/recgo/codec"
	"github.com/hupe1980/recgo/persistence"
)

// Backend kinds.
const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendS3       = "s3"
	BackendMinIO    = "minio"
	BackendDynamoDB = "dynamodb"
)

var backends = []string{
	BackendMemory, BackendLocal, BackendSQLite, BackendBolt,
	BackendS3, BackendMinIO, BackendDynamoDB,
}

// Config is the CLI configuration, read from a YAML file and overridden by
// flags.
type Config struct {
	Backend string `yaml:"backend"`
	// Path is the data directory of the local backend or the database file
	// of the sqlite and bolt backends.
	Path string `yaml:"path"`

	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Secure    bool   `yaml:"secure"`
	Table     string `yaml:"table"`

	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`
	// WriteBehind is the background write rate per second. Zero writes
	// through.
	WriteBehind float64 `yaml:"writeBehind"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// Files is the root directory file records are downloaded from. Blob
	// backends default to the files/ prefix of their bucket.
	Files string `yaml:"files"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendLocal,
		Path:        ".recgo",
		Codec:       codec.GoJSON{}.Name(),
		Compression: persistence.CompressionNone.String(),
		LogLevel:    "warn",
		LogFormat:   "text",
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error
// unless required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that do not need a backend connection.
func (c Config) Validate() error {
	if !slices.Contains(backends, c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(backends, ", "))
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		return fmt.Errorf("unknown codec %q (want one of %s)", c.Codec, strings.Join(codec.Names(), ", "))
	}
	if _, err := persistence.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.WriteBehind < 0 {
		return fmt.Errorf("negative write-behind rate %v", c.WriteBehind)
	}

	switch c.Backend {
	case BackendLocal, BackendSQLite, BackendBolt:
		if c.Path == "" {
			return fmt.Errorf("backend %s needs a path", c.Backend)
		}
	case BackendS3, BackendMinIO:
		if c.Bucket == "" {
			return fmt.Errorf("backend %s needs a bucket", c.Backend)
		}
		if c.Backend == BackendMinIO && c.Endpoint == "" {
			return errors.New("backend minio needs an endpoint")
		}
	case BackendDynamoDB:
		if c.Table == "" {
			return errors.New("backend dynamodb needs a table")
		}
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// bindFlags registers the override flags of every setting.
func bindFlags(set *pflag.FlagSet, c *Config) {
	set.StringVar(&c.Backend, "backend", "", "storage backend ("+strings.Join(backends, "|")+")")
	set.StringVar(&c.Path, "path", "", "data directory or database file")
	set.StringVar(&c.Bucket, "bucket", "", "bucket of the s3 and minio backends")
	set.StringVar(&c.Prefix, "prefix", "", "key prefix of blob backends, namespace of dynamodb")
	set.StringVar(&c.Endpoint, "endpoint", "", "service endpoint")
	set.StringVar(&c.Region, "region", "", "AWS region")
	set.StringVar(&c.AccessKey, "access-key", "", "minio access key")
	set.StringVar(&c.SecretKey, "secret-key", "", "minio secret key")
	set.BoolVar(&c.Secure, "secure", false, "use TLS for minio")
	set.StringVar(&c.Table, "table", "", "dynamodb table")
	set.StringVar(&c.Codec, "codec", "", "payload codec ("+strings.Join(codec.Names(), "|")+")")
	set.StringVar(&c.Compression, "compression", "", "payload compression (none|lz4|zstd)")
	set.Float64Var(&c.WriteBehind, "write-behind", 0, "background writes per second, 0 writes through")
	set.StringVar(&c.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	set.StringVar(&c.LogFormat, "log-format", "", "log format (text|json)")
	set.StringVar(&c.Files, "files", "", "root directory of downloadable files")
}

// overrides copies the settings of every changed flag from flags to c.
func overrides(set *pflag.FlagSet, flags Config, c *Config) {
	set.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "backend":
			c.Backend = flags.Backend
		case "path":
			c.Path = flags.Path
		case "bucket":
			c.Bucket = flags.Bucket
		case "prefix":
			c.Prefix = flags.Prefix
		case "endpoint":
			c.Endpoint = flags.Endpoint
		case "region":
			c.Region = flags.Region
		case "access-key":
			c.AccessKey = flags.AccessKey
		case "secret-key":
			c.SecretKey = flags.SecretKey
		case "secure":
			c.Secure = flags.Secure
		case "table":
			c.Table = flags.Table
		case "codec":
			c.Codec = flags.Codec
		case "compression":
			c.Compression = flags.Compression
		case "write-behind":
			c.WriteBehind = flags.WriteBehind
		case "log-level":
			c.LogLevel = flags.LogLevel
		case "log-format":
			c.LogFormat = flags.LogFormat
		case "files":
			c.Files = flags.Files
		}
	})
}
