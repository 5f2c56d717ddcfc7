package caption

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amsoltis/scenerender/internal/renderspec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStyleKnownPreset(t *testing.T) {
	s := ResolveStyle("tech_bold", false)
	assert.Equal(t, 56, s.FontSize)
	assert.Equal(t, "Noto Sans", s.FontName)
}

func TestResolveStyleUnknownPresetFallsBack(t *testing.T) {
	s := ResolveStyle("no_such_preset", false)
	assert.Equal(t, defaultStyle.FontSize, s.FontSize)
}

func TestResolveStyleBrandSafe(t *testing.T) {
	s := ResolveStyle("lifestyle_warm", true)
	assert.GreaterOrEqual(t, s.FontSize, brandSafeMinFontSize)
	assert.Equal(t, "Noto Sans", s.FontName)
	assert.True(t, s.FontLocked)
}

func TestWrapTextSingleLine(t *testing.T) {
	lines := WrapText("Hello world", defaultStyle)
	assert.Equal(t, []string{"Hello world"}, lines)
}

func TestWrapTextTwoLines(t *testing.T) {
	// At font size 48, ~36 chars fit per line.
	lines := WrapText("This caption is long enough that it should wrap onto a second line", defaultStyle)
	require.Len(t, lines, 2)
	limit := charsPerLine(defaultStyle.FontSize)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), limit+1)
	}
}

func TestWrapTextOverflowTruncatesWithEllipsis(t *testing.T) {
	long := strings.Repeat("overflowing caption text ", 10)
	lines := WrapText(long, defaultStyle)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "…"))
}

func TestWrapTextEmpty(t *testing.T) {
	assert.Nil(t, WrapText("   ", defaultStyle))
}

func TestWriteASS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.ass")

	id := 1
	captions := []renderspec.CaptionTrack{
		{Text: "Hello world", Start: 200, End: 4800, SceneID: &id},
	}
	require.NoError(t, WriteASS(captions, ResolveStyle("product_hero_clean", true), path))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	content := string(data)

	assert.Contains(t, content, "[Script Info]")
	assert.Contains(t, content, "PlayResX: 1080")
	assert.Contains(t, content, "PlayResY: 1920")
	assert.Contains(t, content, "\\fad(200,200)")
	assert.Contains(t, content, "Hello world")
	assert.Contains(t, content, "0:00:00.20")
	assert.Contains(t, content, "0:00:04.80")
}

func TestWriteASSEscapesBraces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.ass")

	captions := []renderspec.CaptionTrack{
		{Text: "look {\\b1}bold{\\b0}", Start: 0, End: 2000},
	}
	require.NoError(t, WriteASS(captions, defaultStyle, path))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.NotContains(t, string(data), "{\\b1}")
}

func TestWriteSRT(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions.srt")

	captions := []renderspec.CaptionTrack{
		{Text: "Hello world", Start: 0, End: 2000},
		{Text: "Second", Start: 2500, End: 5000},
	}
	require.NoError(t, WriteSRT(captions, path))

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	content := string(data)

	assert.Contains(t, content, "00:00:00,000 --> 00:00:02,000")
	assert.Contains(t, content, "00:00:02,500 --> 00:00:05,000")
	assert.Contains(t, content, "1\n")
	assert.Contains(t, content, "2\n")
}

func TestFormatSRTTime(t *testing.T) {
	assert.Equal(t, "00:00:00,000", FormatSRTTime(0))
	assert.Equal(t, "00:00:02,500", FormatSRTTime(2500))
	assert.Equal(t, "00:01:01,001", FormatSRTTime(61001))
	assert.Equal(t, "01:00:00,000", FormatSRTTime(3600000))
}

func TestCharsPerLine(t *testing.T) {
	// (1080 - 108) / (48 * 0.55) = 36.8 → 36.
	assert.Equal(t, 36, charsPerLine(48))
	assert.GreaterOrEqual(t, charsPerLine(2000), 1)
}
