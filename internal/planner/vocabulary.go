package planner

// Keyword vocabularies used for per-scene style extraction. A sentence is
// scanned for these terms (whole-word, case-insensitive) and the first hit
// per category wins; scenes with no hit inherit the preset defaults.

// moodKeywords maps spotted words to the mood they imply.
var moodKeywords = map[string]string{
	"dramatic":   "dramatic",
	"epic":       "dramatic",
	"intense":    "dramatic",
	"calm":       "calm",
	"peaceful":   "calm",
	"serene":     "calm",
	"energetic":  "energetic",
	"dynamic":    "energetic",
	"vibrant":    "energetic",
	"exciting":   "energetic",
	"mysterious": "mysterious",
	"dark":       "mysterious",
	"moody":      "mysterious",
	"elegant":    "elegant",
	"luxury":     "elegant",
	"premium":    "elegant",
	"sleek":      "elegant",
	"playful":    "playful",
	"fun":        "playful",
	"cheerful":   "playful",
}

// cameraKeywords maps spotted words to a camera-motion hint.
var cameraKeywords = map[string]string{
	"zoom":     "zoom-in",
	"close-up": "zoom-in",
	"closeup":  "zoom-in",
	"reveal":   "zoom-out",
	"wide":     "zoom-out",
	"pan":      "pan",
	"sweep":    "pan",
	"glide":    "pan",
	"rotate":   "orbit",
	"rotation": "orbit",
	"orbit":    "orbit",
	"spin":     "orbit",
	"rise":     "pan-up",
	"ascend":   "pan-up",
	"soar":     "pan-up",
	"fall":     "pan-down",
	"descend":  "pan-down",
}

// templateScene is one entry of the 3-scene Intro/Feature/CTA template used
// when a request arrives with neither prompt nor media.
type templateScene struct {
	Description string
	Caption     string
	Mood        string
}

// templateScenes is the archetype used by the template strategy. Preset
// keywords are appended to each description at plan time.
var templateScenes = []templateScene{
	{
		Description: "Opening shot introducing the product with a bold first impression",
		Caption:     "Introducing",
		Mood:        "dramatic",
	},
	{
		Description: "Close-up highlighting the key feature and craftsmanship in detail",
		Caption:     "Built different",
		Mood:        "elegant",
	},
	{
		Description: "Final call to action inviting the viewer to learn more",
		Caption:     "Get yours today",
		Mood:        "energetic",
	},
}

// presetDefaults supplies per-preset default mood and engine-facing keywords
// appended to every generated prompt for that preset.
type presetDefaults struct {
	Mood         string
	CameraMotion string
	Keywords     string
}

var presetDefaultsTable = map[string]presetDefaults{
	"product_hero_clean": {
		Mood:         "elegant",
		CameraMotion: "zoom-in",
		Keywords:     "clean studio lighting, minimal background, product photography",
	},
	"lifestyle_warm": {
		Mood:         "calm",
		CameraMotion: "pan",
		Keywords:     "warm natural light, lifestyle setting, soft focus",
	},
	"tech_bold": {
		Mood:         "dramatic",
		CameraMotion: "orbit",
		Keywords:     "high contrast, dark background, neon accents",
	},
}

// defaultsForPreset returns the preset's defaults, or a neutral fallback for
// unknown preset ids.
func defaultsForPreset(presetID string) presetDefaults {
	if d, ok := presetDefaultsTable[presetID]; ok {
		return d
	}
	return presetDefaults{Mood: "calm", CameraMotion: "zoom-in", Keywords: ""}
}
