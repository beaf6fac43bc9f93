package timing

import (
	"context"
	"math/rand"
	"time"
)

// Clock abstracts real time so the engine's human-simulation delays can run
// with zero or deterministic duration in tests without touching flow logic.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Real returns the wall-clock implementation.
func Real() Clock { return realClock{} }

// Humanizer schedules the randomized pauses used both for behavioral
// camouflage and for flow pacing.
type Humanizer struct {
	clock Clock
	rng   *rand.Rand
}

func NewHumanizer(clock Clock, rng *rand.Rand) *Humanizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Humanizer{clock: clock, rng: rng}
}

// Pause sleeps for a uniformly random duration in [min, max] and reports the
// duration chosen.
func (h *Humanizer) Pause(ctx context.Context, min, max time.Duration) time.Duration {
	d := h.Between(min, max)
	h.clock.Sleep(ctx, d)
	return d
}

// Between picks a uniformly random duration in [min, max].
func (h *Humanizer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(h.rng.Int63n(int64(max-min)+1))
}

// IntBetween picks a uniformly random int in [min, max].
func (h *Humanizer) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + h.rng.Intn(max-min+1)
}

// FloatBetween picks a uniformly random float64 in [min, max).
func (h *Humanizer) FloatBetween(min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + h.rng.Float64()*(max-min)
}

// Sign returns +1 or -1 with equal probability.
func (h *Humanizer) Sign() float64 {
	if h.rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

// Clock exposes the underlying clock for direct sleeps.
func (h *Humanizer) Clock() Clock { return h.clock }
