package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalBackendRoundTrip(t *testing.T) {
	root := t.TempDir()
	backend, err := NewLocalBackend(root)
	require.NoError(t, err)

	ctx := context.Background()
	uri, err := backend.SaveBytes(ctx, "jobs/abc/output.mp4", []byte("fake video"), "video/mp4")
	require.NoError(t, err)
	require.Equal(t, "local://jobs/abc/output.mp4", uri)

	data, err := backend.ReadBytes(ctx, "jobs/abc/output.mp4")
	require.NoError(t, err)
	require.Equal(t, "fake video", string(data))

	require.Equal(t, filepath.Join(root, "jobs/abc/output.mp4"), backend.LocalPath("jobs/abc/output.mp4"))

	key, err := backend.KeyFromURI(uri)
	require.NoError(t, err)
	require.Equal(t, "jobs/abc/output.mp4", key)
}

func TestLocalBackendRejectsPathTraversal(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = backend.SaveBytes(context.Background(), "../../etc/passwd", []byte("x"), "text/plain")
	require.Error(t, err)
}

func TestLocalBackendMissingKey(t *testing.T) {
	backend, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	_, err = backend.ReadBytes(context.Background(), "jobs/missing.mp4")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestGenerateStoragePath(t *testing.T) {
	require.Equal(t, filepath.Join("jobs", "job-1", "output.mp4"), GenerateStoragePath("job-1", "output.mp4"))
}
