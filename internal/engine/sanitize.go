package engine

import (
	"regexp"
	"strings"

	"github.com/amsoltis/scenerender/internal/config"
)

// Sanitizer applies the configured prompt cleanup: whole-word blocklist
// removal, substitution map, whitespace collapse and length truncation. The
// pass is idempotent — sanitizing an already-sanitized prompt is a no-op.
type Sanitizer struct {
	cfg        config.PromptSanitizationConfig
	blockRes   []*regexp.Regexp
	substRes   map[*regexp.Regexp]string
	softenRes  map[*regexp.Regexp]string
	whitespace *regexp.Regexp
}

// softeners is the fixed rephrase table applied once after a moderation
// rejection, on top of the configured substitutions.
var softeners = map[string]string{
	"attack":  "approach",
	"destroy": "transform",
	"fight":   "compete",
	"kill":    "stop",
	"blood":   "energy",
	"war":     "contest",
	"explode": "burst",
}

const moderationRetrySuffix = "safe content, suitable for all audiences"

func NewSanitizer(cfg config.PromptSanitizationConfig) *Sanitizer {
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = 500
	}
	s := &Sanitizer{
		cfg:        cfg,
		substRes:   make(map[*regexp.Regexp]string, len(cfg.Substitutions)),
		softenRes:  make(map[*regexp.Regexp]string, len(softeners)),
		whitespace: regexp.MustCompile(`\s+`),
	}
	for _, word := range cfg.Blocklist {
		s.blockRes = append(s.blockRes, wholeWordRe(word))
	}
	for from, to := range cfg.Substitutions {
		s.substRes[wholeWordRe(from)] = to
	}
	for from, to := range softeners {
		s.softenRes[wholeWordRe(from)] = to
	}
	return s
}

func wholeWordRe(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
}

// Sanitize removes blocklisted words, applies substitutions, collapses
// whitespace and truncates to the configured max length.
func (s *Sanitizer) Sanitize(prompt string) string {
	for _, re := range s.blockRes {
		prompt = re.ReplaceAllString(prompt, "")
	}
	for re, to := range s.substRes {
		prompt = re.ReplaceAllString(prompt, to)
	}
	prompt = strings.TrimSpace(s.whitespace.ReplaceAllString(prompt, " "))
	if len(prompt) > s.cfg.MaxPromptLength {
		prompt = strings.TrimSpace(prompt[:s.cfg.MaxPromptLength])
	}
	return prompt
}

// Rephrase is the one-shot moderation recovery: substitutions plus the
// softener table, then the all-audiences suffix, then a normal sanitize so
// the result still honors the length cap.
func (s *Sanitizer) Rephrase(prompt string) string {
	for re, to := range s.softenRes {
		prompt = re.ReplaceAllString(prompt, to)
	}
	if !strings.Contains(prompt, moderationRetrySuffix) {
		prompt = prompt + ", " + moderationRetrySuffix
	}
	return s.Sanitize(prompt)
}

// BrandSafeSuffix returns the configured brand-safe prompt suffix.
func (s *Sanitizer) BrandSafeSuffix() string {
	if s.cfg.BrandSafeSuffix != "" {
		return s.cfg.BrandSafeSuffix
	}
	return "professional, brand-safe, clean aesthetic"
}
