package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuckVolumeFilterRampsLinearly(t *testing.T) {
	filter := duckVolumeFilter(DuckRegionSec{Start: 1.0, End: 3.0}, -12.0, 0.2)

	assert.Contains(t, filter, "enable='between(t,1.000,3.000)'")
	// Per-frame evaluation with the ramp depth capped at full attenuation.
	assert.Contains(t, filter, "eval=frame")
	assert.Contains(t, filter, "pow(10,-12.00*min(1,min((t-1.000)/0.200,(3.000-t)/0.200))/20)")
	// No hard-step constant gain anywhere in the expression.
	assert.NotContains(t, filter, "volume=-12dB")
}

func TestDuckVolumeFilterDefaults(t *testing.T) {
	filter := duckVolumeFilter(DuckRegionSec{Start: 0, End: 1}, 0, 0)
	assert.Contains(t, filter, "-12.00")
	assert.Contains(t, filter, "/0.200")
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `/tmp/a\:b`, EscapeFilterPath("/tmp/a:b"))
	assert.Equal(t, `a'\''b`, EscapeFilterPath("a'b"))
}

func TestXfadeTransitionName(t *testing.T) {
	assert.Equal(t, "fade", xfadeTransitionName("FADE"))
	assert.Equal(t, "fadeblack", xfadeTransitionName("FADE_BLACK"))
	assert.Equal(t, "wipeleft", xfadeTransitionName("SWIPE_LEFT"))
	assert.Equal(t, "wiperight", xfadeTransitionName("SWIPE_RIGHT"))
	assert.Equal(t, "fade", xfadeTransitionName("unknown"))
}

func TestStripDrawtextUnsafe(t *testing.T) {
	out := stripDrawtextUnsafe(`a "quoted": text'`)
	assert.False(t, strings.ContainsAny(out, `'":`))
}
