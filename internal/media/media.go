// Package media wraps the ffmpeg/ffprobe CLIs as an opaque shell-out:
// every filter-graph operation is a direct exec.CommandContext invocation
// with an explicit argument slice. Probe is the one exception — it uses
// gopkg.in/vansante/go-ffprobe.v2, since structured stream/format metadata
// is exactly what that library is for.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/amsoltis/scenerender/internal/apperrors"
)

// Facade is the typed wrapper over the media processor. All operations
// accept a context.Context and run via exec.CommandContext so the caller's
// deadline is always honored.
type Facade struct {
	tempDir string
}

func NewFacade(tempDir string) (*Facade, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media temp dir: %w", err)
	}
	return &Facade{tempDir: tempDir}, nil
}

// TempFile returns a path under the facade's temp directory.
func (f *Facade) TempFile(name string) string {
	return filepath.Join(f.tempDir, name)
}

// Cleanup removes intermediate files, best-effort.
func (f *Facade) Cleanup(paths ...string) {
	for _, p := range paths {
		os.Remove(p)
	}
}

// runFFmpeg executes ffmpeg with the given args, wrapping any non-zero
// exit in a MediaError carrying captured stderr.
func runFFmpeg(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &apperrors.MediaError{Op: op, ExitErr: err, Stderr: string(out)}
	}
	return nil
}
