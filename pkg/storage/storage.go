// Package storage archives what the pipeline consumed and produced: the
// source statement PDFs and the ledgers exported from them, grouped per
// caller and described by JSON sidecars.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Kind tells a stored source document from a generated export.
type Kind string

const (
	KindSource Kind = "source"
	KindExport Kind = "export"
)

// Item describes one archived file. Callers fill Name, Kind, Bank and
// ContentType; Store assigns the rest.
type Item struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	Bank        string    `json:"bank,omitempty"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Storage-internal file name
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores and retrieves pipeline files per caller.
type Archive interface {
	// Store persists the reader's content and returns the completed item.
	Store(ctx context.Context, userID uuid.UUID, item Item, r io.Reader) (*Item, error)

	// Open returns the content and metadata of an archived item.
	Open(ctx context.Context, userID, itemID uuid.UUID) (io.ReadCloser, *Item, error)

	// List returns every item archived for the caller, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]*Item, error)

	// Remove deletes an archived item and its metadata.
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
}

// Config selects and tunes the archive backend.
type Config struct {
	Provider string // "local" (default) or "s3"
	LocalDir string
	S3Bucket string
	S3Region string
	S3Prefix string
}

// New creates the archive backend the configuration names.
func New(cfg Config) (Archive, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Archive(cfg)
	default:
		return NewLocalArchive(cfg.LocalDir)
	}
}
