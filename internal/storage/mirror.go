package storage

import (
	"context"
	"fmt"
	"log"
)

// MirrorBackend pairs a local working tree with a remote object store:
// every save lands on local disk first (so the media pipeline always has a
// filesystem path) and is then replicated to the object store, whose URI
// becomes the persisted reference. Reads prefer local disk and fall back to
// the object store.
type MirrorBackend struct {
	local  *LocalBackend
	remote *ObjectBackend
}

func NewMirrorBackend(local *LocalBackend, remote *ObjectBackend) *MirrorBackend {
	return &MirrorBackend{local: local, remote: remote}
}

func (b *MirrorBackend) SaveBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := b.local.SaveBytes(ctx, key, data, contentType); err != nil {
		return "", err
	}
	uri, err := b.remote.SaveBytes(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("object replication failed for %s: %w", key, err)
	}
	return uri, nil
}

func (b *MirrorBackend) SaveFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	data, err := readFileForSave(localPath)
	if err != nil {
		return "", err
	}
	return b.SaveBytes(ctx, key, data, contentType)
}

func (b *MirrorBackend) ReadBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := b.local.ReadBytes(ctx, key)
	if err == nil {
		return data, nil
	}
	if err != ErrKeyNotFound {
		return nil, err
	}

	data, err = b.remote.ReadBytes(ctx, key)
	if err != nil {
		return nil, err
	}
	// Repopulate the local tree so subsequent LocalPath callers see it.
	if _, saveErr := b.local.SaveBytes(ctx, key, data, ""); saveErr != nil {
		log.Printf("[storage] failed to cache %s locally: %v", key, saveErr)
	}
	return data, nil
}

func (b *MirrorBackend) LocalPath(key string) string {
	return b.local.LocalPath(key)
}

func (b *MirrorBackend) URI(key string) string {
	return b.remote.URI(key)
}

func (b *MirrorBackend) KeyFromURI(uri string) (string, error) {
	if key, err := b.remote.KeyFromURI(uri); err == nil {
		return key, nil
	}
	return b.local.KeyFromURI(uri)
}
