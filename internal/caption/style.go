// Package caption resolves caption styles, wraps text into the safe zone,
// generates the timed ASS burn-in document, and exports SRT subtitles.
package caption

// Frame and safe-zone geometry for the 9:16 output canvas.
const (
	frameWidth  = 1080
	frameHeight = 1920

	safeZoneTop    = 100
	safeZoneBottom = 150
	safeZoneSides  = 54

	// brandSafeMinFontSize is the brand-safe floor on caption font size.
	brandSafeMinFontSize = 24

	// fadeMs is the ease in/out at each caption boundary.
	fadeMs = 200

	maxCaptionLines = 2
)

// Style is a resolved caption look.
type Style struct {
	FontName     string
	FontSize     int
	PrimaryColor string // ASS &HAABBGGRR
	OutlineColor string
	Outline      int
	Bold         bool
	MarginV      int // distance from the bottom edge
	FontLocked   bool
}

// presetStyles maps preset ids to their caption look.
var presetStyles = map[string]Style{
	"product_hero_clean": {
		FontName:     "Noto Sans",
		FontSize:     52,
		PrimaryColor: "&H00FFFFFF",
		OutlineColor: "&H00000000",
		Outline:      3,
		Bold:         true,
		MarginV:      safeZoneBottom + 40,
	},
	"lifestyle_warm": {
		FontName:     "Georgia",
		FontSize:     48,
		PrimaryColor: "&H00F0F8FF",
		OutlineColor: "&H00202020",
		Outline:      2,
		Bold:         false,
		MarginV:      safeZoneBottom + 40,
	},
	"tech_bold": {
		FontName:     "Noto Sans",
		FontSize:     56,
		PrimaryColor: "&H0000FFFF",
		OutlineColor: "&H00000000",
		Outline:      4,
		Bold:         true,
		MarginV:      safeZoneBottom + 40,
	},
}

var defaultStyle = Style{
	FontName:     "Noto Sans",
	FontSize:     48,
	PrimaryColor: "&H00FFFFFF",
	OutlineColor: "&H00000000",
	Outline:      3,
	Bold:         true,
	MarginV:      safeZoneBottom + 40,
}

// ResolveStyle returns the preset's caption style with brand-safe rules
// applied: the font-size floor is raised and the font family locked to the
// house default.
func ResolveStyle(presetID string, brandSafe bool) Style {
	style, ok := presetStyles[presetID]
	if !ok {
		style = defaultStyle
	}

	if brandSafe {
		if style.FontSize < brandSafeMinFontSize {
			style.FontSize = brandSafeMinFontSize
		}
		style.FontName = defaultStyle.FontName
		style.FontLocked = true
	}

	if style.MarginV < safeZoneBottom {
		style.MarginV = safeZoneBottom
	}
	return style
}
