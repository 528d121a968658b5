// Package ranker applies the temporal decay that turns a raw vector
// similarity score into a time-aware one. It owns no policy beyond the
// decay formula itself; per-scope ttl defaults live with the
// composition root's configuration.
package ranker

import (
	"math"
	"time"

	"github.com/CoReason-AI/coreason-archive/pkg/thought"
)

// Ranker computes the decay multiplier for a thought at a point in time.
// It returns a value in [0, 1]: 1 at zero elapsed time, falling toward 0
// as the thought ages (HalfLifeDecay never reaches 0; LinearDecay does).
type Ranker interface {
	Decay(now time.Time, t *thought.CachedThought) float64
}

// RankerFunc adapts a plain function to the Ranker interface, mirroring
// the teacher's RerankerFunc adapter idiom.
type RankerFunc func(now time.Time, t *thought.CachedThought) float64

// Decay implements Ranker.
func (f RankerFunc) Decay(now time.Time, t *thought.CachedThought) float64 {
	return f(now, t)
}

// HalfLifeDecay implements exponential decay with half-life ttl_seconds:
// λ(t) = ln(2) / ttl_seconds, decay = exp(-λ(t) · Δt). This is the
// archive's default ranker.
var HalfLifeDecay Ranker = RankerFunc(func(now time.Time, t *thought.CachedThought) float64 {
	ttl := t.TTLSeconds
	if ttl < 1 {
		ttl = 1
	}
	deltaT := now.Sub(t.CreatedAt).Seconds()
	if deltaT < 0 {
		deltaT = 0
	}
	lambda := math.Ln2 / float64(ttl)
	return math.Exp(-lambda * deltaT)
})

// LinearDecay is an alternative ranker where score falls linearly to
// zero at 2×ttl_seconds rather than asymptotically. It is not wired into
// the default composition root: the spec's formula is explicitly
// exponential, so this exists only for callers who want to experiment
// with an alternate shape without touching the Matchmaker.
var LinearDecay Ranker = RankerFunc(func(now time.Time, t *thought.CachedThought) float64 {
	ttl := t.TTLSeconds
	if ttl < 1 {
		ttl = 1
	}
	deltaT := now.Sub(t.CreatedAt).Seconds()
	if deltaT < 0 {
		deltaT = 0
	}
	horizon := 2 * float64(ttl)
	if deltaT >= horizon {
		return 0
	}
	return 1 - deltaT/horizon
})
