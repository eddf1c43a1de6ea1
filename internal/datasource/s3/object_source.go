// Package s3 implements an object-store data source with a local file cache.
//
// Raw input files change rarely while pipeline runs are frequent, so the
// source downloads an object once and reuses the cached copy on later runs.
// The cache file name embeds an xxh3 hash of (bucket, key) so distinct objects
// never collide even when their keys flatten to the same file name.
package s3

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zeebo/xxh3"
)

// API is the subset of the S3 client used by Object. Narrowing the dependency
// keeps tests free of network access.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Object is a data source that reads one object from an S3 bucket, caching it
// under a local directory between runs.
type Object struct {
	client   API
	bucket   string
	key      string
	cacheDir string
	force    bool
}

// Option customizes an Object source.
type Option func(*Object)

// WithCacheDir overrides the default cache directory ("data/cache").
func WithCacheDir(dir string) Option {
	return func(o *Object) {
		if dir != "" {
			o.cacheDir = dir
		}
	}
}

// WithForceDownload bypasses the cache and re-fetches the object.
func WithForceDownload(force bool) Option {
	return func(o *Object) { o.force = force }
}

// NewObject returns a cached S3 data source for s3://bucket/key.
func NewObject(client API, bucket, key string, opts ...Option) *Object {
	o := &Object{
		client:   client,
		bucket:   bucket,
		key:      key,
		cacheDir: "data/cache",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns a reader over the object's bytes. The cached copy is served
// when present (unless force-download is set); otherwise the object is
// downloaded to the cache first and the cached file is opened. Downloads go
// through a temp file + rename so a partial download never poisons the cache.
func (o *Object) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := o.cachePath()
	if !o.force {
		if f, err := os.Open(path); err == nil {
			log.Printf("s3 source: cache hit path=%s", path)
			return f, nil
		}
	}

	if err := o.download(ctx, path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cached object %s: %w", path, err)
	}
	return f, nil
}

// download fetches s3://bucket/key into path.
func (o *Object) download(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	log.Printf("s3 source: downloading s3://%s/%s", o.bucket, o.key)
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", o.bucket, o.key, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("download s3://%s/%s: %w", o.bucket, o.key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}
	log.Printf("s3 source: cached path=%s bytes=%d", path, n)
	return nil
}

// cachePath derives the local cache file for this object. The flattened key
// keeps the name recognizable; the hash guarantees uniqueness.
func (o *Object) cachePath() string {
	sum := xxh3.HashString(o.bucket + "\x00" + o.key)
	flat := strings.ReplaceAll(o.key, "/", "_")
	return filepath.Join(o.cacheDir, fmt.Sprintf("%016x_%s", sum, flat))
}
