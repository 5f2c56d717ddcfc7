package audio

import "sort"

// Span is a half-open time interval in milliseconds.
type Span struct {
	StartMs int
	EndMs   int
}

const (
	// duckPadMs pads each voice-active span so ducking begins slightly
	// before the voice and releases slightly after it.
	duckPadMs = 100

	// duckFadeMs is the linear fade on each side of a duck region.
	duckFadeMs = 200

	// duckAttenuationDB is how far the music drops while voice is active.
	duckAttenuationDB = -12.0
)

// BuildDuckRegions pads each voice-active span by duckPadMs, clamps to the
// track bounds, and merges overlapping or adjacent regions.
func BuildDuckRegions(voiceSpans []Span, totalDurationMs int) []Span {
	if len(voiceSpans) == 0 {
		return nil
	}

	padded := make([]Span, 0, len(voiceSpans))
	for _, s := range voiceSpans {
		if s.EndMs <= s.StartMs {
			continue
		}
		p := Span{StartMs: s.StartMs - duckPadMs, EndMs: s.EndMs + duckPadMs}
		if p.StartMs < 0 {
			p.StartMs = 0
		}
		if totalDurationMs > 0 && p.EndMs > totalDurationMs {
			p.EndMs = totalDurationMs
		}
		if p.EndMs > p.StartMs {
			padded = append(padded, p)
		}
	}
	if len(padded) == 0 {
		return nil
	}

	sort.Slice(padded, func(i, j int) bool { return padded[i].StartMs < padded[j].StartMs })

	merged := []Span{padded[0]}
	for _, s := range padded[1:] {
		last := &merged[len(merged)-1]
		if s.StartMs <= last.EndMs {
			if s.EndMs > last.EndMs {
				last.EndMs = s.EndMs
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// VoiceSpansFromCaptions treats each aligned caption's window as a
// voice-active span for ducking purposes.
func VoiceSpansFromCaptions(captions []AlignedCaption) []Span {
	spans := make([]Span, 0, len(captions))
	for _, c := range captions {
		spans = append(spans, Span{StartMs: c.StartMs, EndMs: c.EndMs})
	}
	return spans
}
