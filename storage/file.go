package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/identity-registry/interfaces"
)

// FilePublisher keeps state documents in a local directory, one file per
// content hash. Hashes computed by Publish come from HashOf and are not the
// UnixFS DAG hash an IPFS node would assign to the same bytes, so next to an
// IPFS node documents are kept under the node's hash through Store.
type FilePublisher struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFilePublisher creates a file publisher rooted at baseDir, creating the
// directory if needed.
func NewFilePublisher(baseDir string, log *slog.Logger) (*FilePublisher, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilePublisher{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Publish writes data under HashOf(data) and returns the hash.
func (b *FilePublisher) Publish(ctx context.Context, data []byte) (string, error) {
	hash, err := HashOf(data)
	if err != nil {
		return "", err
	}
	if err := b.Store(ctx, hash, data); err != nil {
		return "", err
	}
	return hash, nil
}

// Store writes data under hash.
func (b *FilePublisher) Store(ctx context.Context, hash string, data []byte) error {
	if err := ValidateIPFSHash(hash); err != nil {
		return err
	}

	filePath := b.filePath(hash)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("hash", hash))

	return nil
}

// Fetch reads the document stored under hash.
// Returns ErrContentNotFound if no such file exists.
func (b *FilePublisher) Fetch(ctx context.Context, hash string) ([]byte, error) {
	if err := ValidateIPFSHash(hash); err != nil {
		return nil, err
	}

	filePath := b.filePath(hash)
	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks that the base directory still exists.
func (b *FilePublisher) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File publisher unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this publisher.
func (b *FilePublisher) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this publisher.
func (b *FilePublisher) LocationURI() string {
	return b.locationURI
}

func (b *FilePublisher) filePath(hash string) string {
	return filepath.Join(b.baseDir, hash)
}
