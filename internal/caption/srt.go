package caption

import (
	"fmt"
	"os"
	"strings"

	"github.com/amsoltis/scenerender/internal/renderspec"
)

// WriteSRT exports the timeline's caption tracks as an SRT file whose
// timecodes derive from the same millisecond timeline as the burn-in.
func WriteSRT(captions []renderspec.CaptionTrack, outputPath string) error {
	var sb strings.Builder
	n := 0
	for _, c := range captions {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		n++
		sb.WriteString(fmt.Sprintf("%d\n", n))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", FormatSRTTime(c.Start), FormatSRTTime(c.End)))
		sb.WriteString(c.Text)
		sb.WriteString("\n\n")
	}
	if n == 0 {
		return fmt.Errorf("no captions to export")
	}
	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write SRT file: %w", err)
	}
	return nil
}

// FormatSRTTime converts milliseconds to the SRT HH:MM:SS,mmm format.
func FormatSRTTime(ms int) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
