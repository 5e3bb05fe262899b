package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrS3NotImplemented is returned by every S3Archive operation.
// TODO: back the archive with aws-sdk-go-v2 once an object-store
// deployment exists; until then the provider only validates its config.
var ErrS3NotImplemented = errors.New("s3 archive not implemented, use provider \"local\"")

// S3Archive is the reserved S3 backend. Construction validates the
// configuration so a misconfigured deployment fails at startup, not at the
// first sweep.
type S3Archive struct {
	bucket string
	region string
	prefix string
}

// NewS3Archive validates the S3 configuration.
func NewS3Archive(cfg Config) (*S3Archive, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}
	if cfg.S3Region == "" {
		return nil, fmt.Errorf("s3 archive: region is required")
	}
	return &S3Archive{bucket: cfg.S3Bucket, region: cfg.S3Region, prefix: cfg.S3Prefix}, nil
}

func (a *S3Archive) Store(ctx context.Context, userID uuid.UUID, item Item, r io.Reader) (*Item, error) {
	return nil, ErrS3NotImplemented
}

func (a *S3Archive) Open(ctx context.Context, userID, itemID uuid.UUID) (io.ReadCloser, *Item, error) {
	return nil, nil, ErrS3NotImplemented
}

func (a *S3Archive) List(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	return nil, ErrS3NotImplemented
}

func (a *S3Archive) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	return ErrS3NotImplemented
}
