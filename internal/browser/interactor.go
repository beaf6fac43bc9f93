package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"oddsminer/internal/timing"
)

// Pointer drives the physical mouse of the live page.
type Pointer interface {
	Move(x, y float64, steps int) error
	Wheel(deltaX, deltaY float64) error
}

// Outcome reports one smart-click invocation. It is never persisted; it only
// drives flow decisions and logs.
type Outcome struct {
	Succeeded bool
	Recovered bool
	Reason    error
}

// Interactor performs a human-like pointer move and click with one built-in
// scroll-and-forced-retry recovery attempt. Total interaction cost is bounded
// to at most two physical click attempts per call.
type Interactor struct {
	human *timing.Humanizer
	log   *zap.Logger

	recoveryPause time.Duration
	forcedTimeout time.Duration
}

func NewInteractor(human *timing.Humanizer, log *zap.Logger) *Interactor {
	return &Interactor{
		human:         human,
		log:           log,
		recoveryPause: time.Second,
		forcedTimeout: 2 * time.Second,
	}
}

// Click moves the pointer to the target's center with small randomized jitter
// over 10-20 intermediate steps, pauses 0.2-0.5s and clicks. On failure it
// performs exactly one recovery attempt: scroll the page by a randomized
// signed 200px offset, pause ~1s, then force a click with a 2s timeout that
// bypasses actionability checks.
func (ic *Interactor) Click(ctx context.Context, ptr Pointer, el Element, label string) Outcome {
	if box, ok := el.Box(); ok {
		x := box.X + box.Width/2 + ic.human.FloatBetween(-5, 5)
		y := box.Y + box.Height/2 + ic.human.FloatBetween(-5, 5)
		steps := ic.human.IntBetween(10, 20)
		if err := ptr.Move(x, y, steps); err != nil {
			ic.log.Debug("pointer move failed", zap.String("target", label), zap.Error(err))
		}
	}

	ic.human.Pause(ctx, 200*time.Millisecond, 500*time.Millisecond)

	err := el.Click()
	if err == nil {
		return Outcome{Succeeded: true}
	}

	ic.log.Warn("click failed, attempting recovery",
		zap.String("target", label), zap.Error(err))

	if wErr := ptr.Wheel(0, ic.human.Sign()*200); wErr != nil {
		ic.log.Debug("recovery scroll failed", zap.String("target", label), zap.Error(wErr))
	}
	ic.human.Clock().Sleep(ctx, ic.recoveryPause)

	if fErr := el.ForceClick(ic.forcedTimeout); fErr != nil {
		ic.log.Warn("recovery click failed", zap.String("target", label), zap.Error(fErr))
		return Outcome{Succeeded: false, Recovered: false, Reason: fErr}
	}

	ic.log.Info("click recovered", zap.String("target", label))
	return Outcome{Succeeded: true, Recovered: true}
}
