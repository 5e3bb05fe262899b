package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalArchive keeps archived files on the local filesystem, one directory
// per caller with a .meta subdirectory of JSON sidecars.
type LocalArchive struct {
	baseDir string
}

// NewLocalArchive creates the base directory if needed.
func NewLocalArchive(baseDir string) (*LocalArchive, error) {
	if baseDir == "" {
		baseDir = "./archive"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &LocalArchive{baseDir: baseDir}, nil
}

// Store persists the reader's content under a collision-free name and
// writes the metadata sidecar.
func (a *LocalArchive) Store(ctx context.Context, userID uuid.UUID, item Item, r io.Reader) (*Item, error) {
	item.ID = uuid.New()
	item.CreatedAt = time.Now().UTC()

	userDir := filepath.Join(a.baseDir, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("create caller directory: %w", err)
	}

	safe := sanitizeName(item.Name)
	if safe == "" {
		safe = "file"
	}
	item.Path = fmt.Sprintf("%s_%s", item.ID.String()[:8], safe)

	filePath := filepath.Join(userDir, item.Path)
	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	item.Size, err = io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("write archive file: %w", err)
	}

	if err := a.writeSidecar(userDir, &item); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return &item, nil
}

// Open returns the content and metadata of an archived item.
func (a *LocalArchive) Open(ctx context.Context, userID, itemID uuid.UUID) (io.ReadCloser, *Item, error) {
	item, err := a.info(userID, itemID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(a.baseDir, userID.String(), item.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("open archive file: %w", err)
	}
	return f, item, nil
}

// List returns the caller's archived items, newest first.
func (a *LocalArchive) List(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	metaDir := filepath.Join(a.baseDir, userID.String(), ".meta")
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Item{}, nil
		}
		return nil, fmt.Errorf("list archive metadata: %w", err)
	}

	items := make([]*Item, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		item, err := a.info(userID, id)
		if err != nil {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Remove deletes an archived item and its sidecar.
func (a *LocalArchive) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	item, err := a.info(userID, itemID)
	if err != nil {
		return err
	}

	userDir := filepath.Join(a.baseDir, userID.String())
	if err := os.Remove(filepath.Join(userDir, item.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete archive file: %w", err)
	}
	os.Remove(filepath.Join(userDir, ".meta", itemID.String()+".json"))
	return nil
}

func (a *LocalArchive) info(userID, itemID uuid.UUID) (*Item, error) {
	metaPath := filepath.Join(a.baseDir, userID.String(), ".meta", itemID.String()+".json")

	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archived item not found: %s", itemID)
		}
		return nil, fmt.Errorf("read archive metadata: %w", err)
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parse archive metadata: %w", err)
	}
	return &item, nil
}

func (a *LocalArchive) writeSidecar(userDir string, item *Item) error {
	metaDir := filepath.Join(userDir, ".meta")
	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(metaDir, item.ID.String()+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write archive metadata: %w", err)
	}
	return nil
}

// sanitizeName strips path separators and other characters that could
// escape the caller directory.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(strings.TrimSpace(name))
}
