package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalBackend writes under a configured root directory. It's the default
// backend and what every test in this repo exercises, since it needs no
// network collaborator.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	return &LocalBackend{root: abs}, nil
}

func (b *LocalBackend) SaveBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	path := filepath.Join(b.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create parent dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return b.URI(clean), nil
}

func (b *LocalBackend) SaveFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	data, err := readFileForSave(localPath)
	if err != nil {
		return "", err
	}
	return b.SaveBytes(ctx, key, data, contentType)
}

func readFileForSave(localPath string) ([]byte, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", localPath, err)
	}
	return data, nil
}

func (b *LocalBackend) ReadBytes(ctx context.Context, key string) ([]byte, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.root, clean))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (b *LocalBackend) LocalPath(key string) string {
	clean, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return filepath.Join(b.root, clean)
}

func (b *LocalBackend) URI(key string) string {
	clean, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	return "local://" + filepath.ToSlash(clean)
}

func (b *LocalBackend) KeyFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "local://") {
		return "", fmt.Errorf("storage: not a local:// uri: %s", uri)
	}
	return strings.TrimPrefix(uri, "local://"), nil
}
