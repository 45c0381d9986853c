package store

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Options select and tune the origin store.
type Options struct {
	DatabaseURL string
	S3          S3Config
	DiskDir     string
	Cache       CacheConfig
}

// Open picks the first configured origin in the order postgres, s3, disk,
// memory and wraps it in a CachedStore. The returned func releases it.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	origin, label, closeFn, err := openOrigin(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("store: using %s origin", label)
	return NewCachedStore(origin, opts.Cache), closeFn, nil
}

func openOrigin(ctx context.Context, opts Options) (Store, string, func(), error) {
	noop := func() {}
	if dsn := strings.TrimSpace(opts.DatabaseURL); dsn != "" {
		pg, err := ConnectPostgres(ctx, dsn)
		if err != nil {
			return nil, "", nil, fmt.Errorf("store: open postgres: %w", err)
		}
		return pg, "postgres", pg.Close, nil
	}
	if opts.S3.Complete() {
		s3, err := NewS3Store(opts.S3)
		if err != nil {
			return nil, "", nil, err
		}
		return s3, "s3 bucket=" + opts.S3.Bucket, noop, nil
	}
	if dir := strings.TrimSpace(opts.DiskDir); dir != "" {
		disk, err := NewDiskStore(dir)
		if err != nil {
			return nil, "", nil, err
		}
		return disk, "disk dir=" + dir, noop, nil
	}
	return NewMemoryStore(), "in-memory", noop, nil
}
