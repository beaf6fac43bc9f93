package browser

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oddsminer/internal/timing"
)

type fakePointer struct {
	moves  []struct{ x, y float64 }
	steps  []int
	wheels []float64
}

func (p *fakePointer) Move(x, y float64, steps int) error {
	p.moves = append(p.moves, struct{ x, y float64 }{x, y})
	p.steps = append(p.steps, steps)
	return nil
}

func (p *fakePointer) Wheel(_, deltaY float64) error {
	p.wheels = append(p.wheels, deltaY)
	return nil
}

func newTestInteractor() *Interactor {
	human := timing.NewHumanizer(&fakeClock{}, rand.New(rand.NewSource(1)))
	return NewInteractor(human, zap.NewNop())
}

func TestClickLandsNearCenterWithHumanSteps(t *testing.T) {
	el := &fakeElement{box: Box{X: 100, Y: 200, Width: 40, Height: 20}, hasBox: true}
	ptr := &fakePointer{}

	out := newTestInteractor().Click(context.Background(), ptr, el, "target")

	assert.True(t, out.Succeeded)
	assert.False(t, out.Recovered)
	assert.Equal(t, 1, el.clicks)
	assert.Zero(t, el.forceClicks)

	require.Len(t, ptr.moves, 1)
	assert.InDelta(t, 120, ptr.moves[0].x, 5)
	assert.InDelta(t, 210, ptr.moves[0].y, 5)
	require.Len(t, ptr.steps, 1)
	assert.GreaterOrEqual(t, ptr.steps[0], 10)
	assert.LessOrEqual(t, ptr.steps[0], 20)
}

func TestClickWithoutBoundingBoxSkipsPointerMove(t *testing.T) {
	el := &fakeElement{hasBox: false}
	ptr := &fakePointer{}

	out := newTestInteractor().Click(context.Background(), ptr, el, "target")

	assert.True(t, out.Succeeded)
	assert.Empty(t, ptr.moves)
	assert.Equal(t, 1, el.clicks)
}

func TestClickRecoversWithScrollAndForcedClick(t *testing.T) {
	el := &fakeElement{
		box: Box{X: 0, Y: 0, Width: 10, Height: 10}, hasBox: true,
		clickErr: errors.New("element is covered"),
	}
	ptr := &fakePointer{}

	out := newTestInteractor().Click(context.Background(), ptr, el, "target")

	assert.True(t, out.Succeeded)
	assert.True(t, out.Recovered)
	assert.Equal(t, 1, el.clicks)
	assert.Equal(t, 1, el.forceClicks)

	require.Len(t, ptr.wheels, 1)
	assert.InDelta(t, 200, ptr.wheels[0]*sign(ptr.wheels[0]), 0.001,
		"recovery scroll is a signed 200px offset")
}

func TestClickGivesUpAfterSingleRecoveryAttempt(t *testing.T) {
	forced := errors.New("still covered")
	el := &fakeElement{
		hasBox:   true,
		clickErr: errors.New("element is covered"),
		forceErr: forced,
	}

	out := newTestInteractor().Click(context.Background(), &fakePointer{}, el, "target")

	assert.False(t, out.Succeeded)
	assert.False(t, out.Recovered)
	assert.ErrorIs(t, out.Reason, forced)
	assert.Equal(t, 1, el.clicks, "no second normal click after recovery fails")
	assert.Equal(t, 1, el.forceClicks)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
