package caption

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/amsoltis/scenerender/internal/renderspec"
)

// WriteASS renders the timeline's caption tracks as an ASS document at
// outputPath: one dialogue event per caption, wrapped into the safe zone,
// with a fade at each boundary.
func WriteASS(captions []renderspec.CaptionTrack, style Style, outputPath string) error {
	if len(captions) == 0 {
		return fmt.Errorf("no captions to render")
	}

	var sb strings.Builder

	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString(fmt.Sprintf("PlayResX: %d\n", frameWidth))
	sb.WriteString(fmt.Sprintf("PlayResY: %d\n", frameHeight))
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")

	bold := 0
	if style.Bold {
		bold = -1
	}
	sb.WriteString(fmt.Sprintf(
		"Style: Default,%s,%d,%s,%s,%s,&H80000000,%d,0,0,0,100,100,0,0,1,%d,0,2,%d,%d,%d,1\n",
		style.FontName, style.FontSize,
		style.PrimaryColor,
		style.PrimaryColor,
		style.OutlineColor,
		bold,
		style.Outline,
		safeZoneSides, safeZoneSides, style.MarginV,
	))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, c := range captions {
		lines := WrapText(escapeASSText(c.Text), style)
		if len(lines) == 0 {
			continue
		}
		text := fmt.Sprintf("{\\fad(%d,%d)}%s", fadeMs, fadeMs, strings.Join(lines, "\\N"))
		sb.WriteString(fmt.Sprintf(
			"Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTime(float64(c.Start)/1000.0),
			formatASSTime(float64(c.End)/1000.0),
			text,
		))
	}

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write ASS file: %w", err)
	}
	return nil
}

// escapeASSText neutralizes literal braces in user text so they cannot open
// override blocks.
func escapeASSText(text string) string {
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	return text
}

// formatASSTime converts seconds to the ASS H:MM:SS.CC timestamp format.
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalCs := int(math.Round(seconds * 100))
	hours := totalCs / 360000
	minutes := (totalCs % 360000) / 6000
	secs := (totalCs % 6000) / 100
	centiseconds := totalCs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}
