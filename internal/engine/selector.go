package engine

import (
	"strings"

	"github.com/amsoltis/scenerender/internal/config"
	"github.com/amsoltis/scenerender/internal/renderspec"
)

const (
	EngineRunway = "runway"
	EnginePika   = "pika"
	EngineLuma   = "luma"
	EngineLocal  = "local"
)

// keyword groups routing a scene to the provider whose model suits it.
var (
	runwayKeywords = []string{"realistic", "cinematic", "photorealis"}
	pikaKeywords   = []string{"stylized", "creative", "artistic", "anime", "abstract"}
	lumaKeywords   = []string{"physics", "3d", "product", "showcase", "rotation"}
)

// Assignment is the per-scene selection outcome: which engine runs first and
// the fully composed, sanitized prompt it receives.
type Assignment struct {
	Engine          string
	Prompt          string
	ImagePath       string
	DurationSeconds int
	StyleHints      []string
}

// Selector resolves engine assignments from scene content, preset
// preferences and the configured default.
type Selector struct {
	sanitizer     *Sanitizer
	presetPrefs   map[string]config.PresetEnginePref
	defaultEngine string
}

func NewSelector(sanitizer *Sanitizer, presetPrefs map[string]config.PresetEnginePref, defaultEngine string) *Selector {
	if defaultEngine == "" {
		defaultEngine = EngineRunway
	}
	return &Selector{
		sanitizer:     sanitizer,
		presetPrefs:   presetPrefs,
		defaultEngine: defaultEngine,
	}
}

// Select resolves the engine and final prompt for one scene. imagePath is
// the local path of the scene's resolved image asset ("" when none).
func (s *Selector) Select(scene renderspec.Scene, presetID string, brandSafe bool, imagePath string) Assignment {
	engine := s.pickEngine(scene, presetID)

	hints := styleHints(scene.Style)
	prompt := s.composePrompt(scene, hints, presetID, brandSafe)

	durationSec := scene.DurationMs / 1000
	if durationSec < 1 {
		durationSec = 1
	}

	return Assignment{
		Engine:          engine,
		Prompt:          prompt,
		ImagePath:       imagePath,
		DurationSeconds: durationSec,
		StyleHints:      hints,
	}
}

// pickEngine applies the priority order: explicit engine, image media goes
// local, then keyword routing, then the preset preference, then the default.
func (s *Selector) pickEngine(scene renderspec.Scene, presetID string) string {
	if scene.Media.Engine != nil && *scene.Media.Engine != "" {
		return *scene.Media.Engine
	}
	if scene.Media.Kind == renderspec.MediaImage {
		return EngineLocal
	}

	haystack := strings.ToLower(scene.Description)
	if scene.Style != nil {
		haystack += " " + strings.ToLower(scene.Style.Mood+" "+scene.Style.CameraMotion+" "+scene.Style.Lighting)
	}
	if scene.Media.Prompt != nil {
		haystack += " " + strings.ToLower(*scene.Media.Prompt)
	}

	for _, kw := range runwayKeywords {
		if strings.Contains(haystack, kw) {
			return EngineRunway
		}
	}
	for _, kw := range pikaKeywords {
		if strings.Contains(haystack, kw) {
			return EnginePika
		}
	}
	for _, kw := range lumaKeywords {
		if strings.Contains(haystack, kw) {
			return EngineLuma
		}
	}

	if pref, ok := s.presetPrefs[presetID]; ok && pref.PreferredEngine != "" {
		return pref.PreferredEngine
	}
	return s.defaultEngine
}

// composePrompt concatenates, in order: scene prompt/description, style
// keywords, preset keywords, and the brand-safe suffix; the composed string
// then passes through sanitization.
func (s *Selector) composePrompt(scene renderspec.Scene, hints []string, presetID string, brandSafe bool) string {
	parts := []string{}
	if scene.Media.Prompt != nil && *scene.Media.Prompt != "" {
		parts = append(parts, *scene.Media.Prompt)
	} else {
		parts = append(parts, scene.Description)
	}
	if len(hints) > 0 {
		parts = append(parts, strings.Join(hints, ", "))
	}
	if kw := presetKeywords(presetID); kw != "" {
		parts = append(parts, kw)
	}
	if brandSafe {
		parts = append(parts, s.sanitizer.BrandSafeSuffix())
	}
	return s.sanitizer.Sanitize(strings.Join(parts, ", "))
}

// styleHints renders a scene style into prompt keywords.
func styleHints(style *renderspec.Style) []string {
	if style == nil {
		return nil
	}
	var hints []string
	if style.Mood != "" {
		hints = append(hints, style.Mood+" mood")
	}
	if style.CameraMotion != "" {
		hints = append(hints, style.CameraMotion+" camera motion")
	}
	if style.Lighting != "" {
		hints = append(hints, style.Lighting+" lighting")
	}
	return hints
}

// presetKeywords mirrors the planner's preset vocabulary at prompt-compose
// time; unknown presets contribute nothing.
func presetKeywords(presetID string) string {
	switch presetID {
	case "product_hero_clean":
		return "clean studio lighting, minimal background"
	case "lifestyle_warm":
		return "warm natural light, lifestyle setting"
	case "tech_bold":
		return "high contrast, dark background"
	default:
		return ""
	}
}
