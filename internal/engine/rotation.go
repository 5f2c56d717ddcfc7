package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/amsoltis/scenerender/internal/config"
)

// RotationTracker keeps a process-local rolling record of per-engine
// attempt outcomes. When enabled, an engine whose failure rate inside the
// configured window crosses the threshold (with enough samples) is swapped
// for a healthier alternative at selection time. The signal is advisory —
// counters reset with the process and are never persisted.
type RotationTracker struct {
	cfg     config.EngineRotationConfig
	mu      sync.Mutex
	records *gocache.Cache
	seq     atomic.Uint64
}

type attemptRecord struct {
	engine  string
	success bool
}

func NewRotationTracker(cfg config.EngineRotationConfig) *RotationTracker {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &RotationTracker{
		cfg:     cfg,
		records: gocache.New(window, window/2),
	}
}

// Record stores one attempt outcome; entries age out of the window via the
// cache's TTL.
func (t *RotationTracker) Record(engineName string, success bool) {
	key := fmt.Sprintf("%s:%d", engineName, t.seq.Add(1))
	t.records.SetDefault(key, attemptRecord{engine: engineName, success: success})
}

// FailureRate returns the engine's failure rate and sample count within the
// window.
func (t *RotationTracker) FailureRate(engineName string) (rate float64, samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	failures := 0
	for _, item := range t.records.Items() {
		rec, ok := item.Object.(attemptRecord)
		if !ok || rec.engine != engineName {
			continue
		}
		samples++
		if !rec.success {
			failures++
		}
	}
	if samples == 0 {
		return 0, 0
	}
	return float64(failures) / float64(samples), samples
}

// Unhealthy reports whether the engine's rolling failure rate crosses the
// configured threshold with at least the minimum sample count.
func (t *RotationTracker) Unhealthy(engineName string) bool {
	if !t.cfg.Enabled {
		return false
	}
	rate, samples := t.FailureRate(engineName)
	return samples >= t.cfg.MinAttempts && rate >= t.cfg.FailureThreshold
}

// Substitute returns a healthier engine from candidates when the selected
// one is unhealthy, or the original selection otherwise.
func (t *RotationTracker) Substitute(selected string, candidates []string) string {
	if !t.Unhealthy(selected) {
		return selected
	}
	for _, c := range candidates {
		if c != selected && !t.Unhealthy(c) {
			return c
		}
	}
	return selected
}
