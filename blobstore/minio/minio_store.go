package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/recgo/blobstore"
)

// Options configures a Store.
type Options struct {
	// ContentType is sent for names without a known extension.
	ContentType string
	// PartSize is the multipart threshold passed to PutObject. Zero lets
	// minio-go choose.
	PartSize uint64
}

// Store keeps record payloads and files as objects under a key prefix.
// Payloads are small documents, so Open downloads the object once and
// serves reads from memory.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	opts   Options
}

var _ blobstore.BlobStore = (*Store)(nil)

// NewStore creates a store over bucket. Object keys are prefix joined with
// the blob name.
func NewStore(client *minio.Client, bucket, prefix string, optFns ...func(o *Options)) *Store {
	opts := Options{ContentType: "application/octet-stream"}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		opts:   opts,
	}
}

// Open downloads the object named name.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(s.prefix, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrap("open", name, err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; the first read reports missing objects.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.wrap("open", name, err)
	}
	return blobstore.NewBytesBlob(data), nil
}

// Put uploads data as name.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(s.prefix, name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType(name, s.opts.ContentType),
			PartSize:    s.opts.PartSize,
		})
	if err != nil {
		return s.wrap("put", name, err)
	}
	return nil
}

// Delete removes name. Missing objects are ignored.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(s.prefix, name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return s.wrap("delete", name, err)
	}
	return nil
}

// List returns the sorted blob names starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix(s.prefix, prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, s.wrap("list", prefix, obj.Err)
		}
		if name := blobName(s.prefix, obj.Key); name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) wrap(op, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("minio: %s %s/%s: %w", op, s.bucket, name, blobstore.ErrNotFound)
	}
	return fmt.Errorf("minio: %s %s/%s: %w", op, s.bucket, name, err)
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func objectKey(root, name string) string {
	if root == "" {
		return name
	}
	return root + "/" + name
}

// listPrefix keeps a trailing slash that path.Join would drop.
func listPrefix(root, prefix string) string {
	if root == "" {
		return prefix
	}
	if prefix == "" {
		return root + "/"
	}
	return root + "/" + prefix
}

func blobName(root, key string) string {
	if root == "" {
		return key
	}
	return strings.TrimPrefix(key, root+"/")
}

func contentType(name, fallback string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return fallback
}
