// Package blob archives served export files to the local filesystem or an
// S3-compatible bucket.
package blob

import (
	"context"
	"fmt"

	"batchledger/infrastructure/config"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Store writes immutable objects. Put fails when key already exists.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// Open returns the store selected by cfg.Driver, or nil for "none".
func Open(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case string(DriverFilesystem):
		s, err := NewFS(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case string(DriverS3):
		s, err := NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}
