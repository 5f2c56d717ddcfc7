package engine

import (
	"strings"
	"testing"

	"github.com/amsoltis/scenerender/internal/config"
	"github.com/stretchr/testify/assert"
)

func testSanitizer() *Sanitizer {
	return NewSanitizer(config.PromptSanitizationConfig{
		Blocklist: []string{"violence", "weapon", "explicit"},
		Substitutions: map[string]string{
			"shoot": "film",
			"gun":   "device",
		},
		MaxPromptLength: 500,
		BrandSafeSuffix: "professional, brand-safe, clean aesthetic",
	})
}

func TestSanitizeRemovesBlocklistedWords(t *testing.T) {
	s := testSanitizer()
	out := s.Sanitize("a scene of violence in the street")
	assert.NotContains(t, out, "violence")
	assert.Equal(t, "a scene of in the street", out)
}

func TestSanitizeAppliesSubstitutions(t *testing.T) {
	s := testSanitizer()
	out := s.Sanitize("shoot the product with a gun turret")
	assert.Equal(t, "film the product with a device turret", out)
}

func TestSanitizeWholeWordOnly(t *testing.T) {
	s := testSanitizer()
	// "shooting" contains "shoot" but is not a whole-word match.
	assert.Equal(t, "shooting stars", s.Sanitize("shooting stars"))
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	s := testSanitizer()
	assert.Equal(t, "a b c", s.Sanitize("a   b\t\tc"))
}

func TestSanitizeTruncates(t *testing.T) {
	s := testSanitizer()
	long := strings.Repeat("word ", 200)
	out := s.Sanitize(long)
	assert.LessOrEqual(t, len(out), 500)
}

func TestSanitizeIdempotent(t *testing.T) {
	s := testSanitizer()
	prompts := []string{
		"shoot a gun scene with violence   and style",
		strings.Repeat("cinematic product reveal, ", 40),
		"plain safe prompt",
		"",
	}
	for _, p := range prompts {
		once := s.Sanitize(p)
		assert.Equal(t, once, s.Sanitize(once))
	}
}

func TestRephraseSoftensAndAppendsSuffix(t *testing.T) {
	s := testSanitizer()
	out := s.Rephrase("robots attack and destroy the city")
	assert.NotContains(t, out, "attack")
	assert.NotContains(t, out, "destroy")
	assert.Contains(t, out, "approach")
	assert.Contains(t, out, "transform")
	assert.Contains(t, out, "safe content, suitable for all audiences")
}

func TestRephraseIsSanitized(t *testing.T) {
	s := testSanitizer()
	out := s.Rephrase("shoot   the    scene")
	assert.Contains(t, out, "film the scene")
	assert.NotContains(t, out, "  ")
}
