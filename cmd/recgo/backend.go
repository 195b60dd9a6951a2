package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"

	"github.com/hupe1980/recgo"
	"github.com/hupe1980/recgo/blobstore"
	miniostore "github.com/hupe1980/recgo/blobstore/minio"
	s3store "github.com/hupe1980/recgo/blobstore/s3"
	"github.com/hupe1980/recgo/download"
	"github.com/hupe1980/recgo/persistence"
	"github.com/hupe1980/recgo/persistence/bolt"
	ddbpersistence "github.com/hupe1980/recgo/persistence/dynamodb"
	"github.com/hupe1980/recgo/persistence/sqlite"
)

// Prefixes below the bucket prefix of blob backends.
const (
	dataPrefix  = "data/"
	filesPrefix = "files/"
)

// backend is an opened persistence together with the resources to release
// when the command finishes.
type backend struct {
	persistence persistence.Persistence
	files       blobstore.BlobStore
	closers     []func() error
}

// Close releases the resources in reverse order of acquisition.
func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func (b *backend) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// openBackend opens the persistence described by cfg and wraps it with
// compression and write-behind as configured.
func openBackend(ctx context.Context, cfg Config, logger *recgo.Logger) (*backend, error) {
	b := &backend{}

	p, err := openPersistence(ctx, cfg, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	algo, err := persistence.ParseCompression(cfg.Compression)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if algo != persistence.CompressionNone {
		p = persistence.NewCompressed(p, algo)
	}

	if cfg.WriteBehind > 0 {
		wb := persistence.NewWriteBehind(p, persistence.WriteBehindOptions{
			Rate: rate.Limit(cfg.WriteBehind),
			OnError: func(key string, err error) {
				logger.LogPersist(context.Background(), key, err)
			},
		})
		b.onClose(wb.Close)
		p = wb
	}

	b.persistence = p
	return b, nil
}

func openPersistence(ctx context.Context, cfg Config, b *backend) (persistence.Persistence, error) {
	switch cfg.Backend {
	case BackendMemory:
		return persistence.NewMemory(nil), nil

	case BackendLocal:
		store, err := blobstore.OpenLocalStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
		}
		b.onClose(store.Close)
		return persistence.NewBlob(store, ""), nil

	case BackendSQLite:
		p, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		b.onClose(p.Close)
		return p, nil

	case BackendBolt:
		p, err := bolt.Open(cfg.Path, 0)
		if err != nil {
			return nil, err
		}
		b.onClose(p.Close)
		return p, nil

	case BackendS3:
		var opts []s3store.Option
		if cfg.Region != "" {
			opts = append(opts, s3store.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3store.WithEndpoint(cfg.Endpoint))
		}
		opts = append(opts, s3store.WithPrefix(cfg.Prefix))
		store, err := s3store.New(ctx, cfg.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		b.files = store
		return persistence.NewBlob(store, dataPrefix), nil

	case BackendMinIO:
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		store := miniostore.NewStore(client, cfg.Bucket, cfg.Prefix)
		b.files = store
		return persistence.NewBlob(store, dataPrefix), nil

	case BackendDynamoDB:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: load config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		var opts []ddbpersistence.Option
		if cfg.Prefix != "" {
			opts = append(opts, ddbpersistence.WithNamespace(cfg.Prefix))
		}
		return ddbpersistence.New(client, cfg.Table, opts...), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// downloader returns the file downloader of cfg, or nil when files cannot
// be resolved.
func (b *backend) downloader(cfg Config) recgo.Option {
	switch {
	case cfg.Files != "":
		return recgo.WithDownloader(download.NewBlob(blobstore.NewLocalStore(cfg.Files)))
	case b.files != nil:
		return recgo.WithDownloader(download.NewBlob(b.files, download.WithPrefix(filesPrefix)))
	default:
		return recgo.WithDownloader(nil)
	}
}
