package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"cloud.google.com/go/storage"

	"github.com/paarshan4800/fin-advisor/internal/cache"
)

const expiresAtKey = "expires_at"

// Config names the bucket and the object prefix cache entries live under.
type Config struct {
	Bucket string
	Prefix string
}

// Store implements cache.Store with one GCS object per key. Expiry is kept in
// object metadata and checked on read; a bucket lifecycle rule removes old
// objects.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewStore creates the storage client using Application Default Credentials.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs.NewStore: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs.NewStore: create storage client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, now: time.Now}, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}

	w := s.client.Bucket(s.bucket).Object(objectName(s.prefix, key)).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = expiryMetadata(s.now().Add(ttl))

	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs.Set: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs.Set: finalize %s: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj := s.client.Bucket(s.bucket).Object(objectName(s.prefix, key))

	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcs.Get: attrs %s: %w", key, err)
	}
	if expired(attrs.Metadata, s.now()) {
		return nil, cache.ErrNotFound
	}

	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gcs.Get: open reader %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs.Get: read %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func expiryMetadata(at time.Time) map[string]string {
	return map[string]string{expiresAtKey: strconv.FormatInt(at.Unix(), 10)}
}

// expired treats missing or malformed expiry metadata as expired.
func expired(metadata map[string]string, now time.Time) bool {
	v, ok := metadata[expiresAtKey]
	if !ok {
		return true
	}
	at, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return true
	}
	return now.Unix() >= at
}

var _ cache.Store = (*Store)(nil)
