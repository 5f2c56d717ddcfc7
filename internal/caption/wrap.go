package caption

import "strings"

// avgGlyphWidthRatio approximates a proportional font's average glyph width
// as a fraction of the font size.
const avgGlyphWidthRatio = 0.55

// charsPerLine estimates how many characters fit between the side safe
// margins at the given font size.
func charsPerLine(fontSize int) int {
	usable := frameWidth - 2*safeZoneSides
	n := int(float64(usable) / (float64(fontSize) * avgGlyphWidthRatio))
	if n < 1 {
		n = 1
	}
	return n
}

// WrapText greedily word-wraps text to the style's estimated line width,
// capping at two lines; overflow is truncated with an ellipsis on the
// second line.
func WrapText(text string, style Style) []string {
	limit := charsPerLine(style.FontSize)
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := ""
	for i, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len(candidate) <= limit {
			current = candidate
			continue
		}

		if current == "" {
			// A single word longer than the line: hard-cut it.
			current = word[:limit]
		}
		lines = append(lines, current)
		current = word
		if len(lines) == maxCaptionLines {
			// Remaining words overflow: truncate the last kept line.
			rest := strings.Join(words[i:], " ")
			lines[maxCaptionLines-1] = truncateWithEllipsis(lines[maxCaptionLines-1]+" "+rest, limit)
			return lines
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func truncateWithEllipsis(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return strings.TrimSpace(s[:limit-1]) + "…"
}
