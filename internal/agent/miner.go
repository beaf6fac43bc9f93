// Package agent implements the autonomous, vision-driven extraction agent
// that takes over the live browsing session after the scripted warm-up. It
// attaches to the session's remote debugging endpoint and runs an
// observe-decide-act loop against a vision-capable model.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"oddsminer/internal/llm"
	"oddsminer/internal/timing"
)

// ErrAgentFailure signals that the agent framework itself failed (attachment,
// model error, step budget exhaustion). Fatal to the run: no record is
// produced.
var ErrAgentFailure = errors.New("autonomous agent failed")

// Miner is the vision-driven extraction agent.
type Miner struct {
	model    llm.VisionModel
	human    *timing.Humanizer
	log      *zap.Logger
	maxSteps int

	maxParseFailures int
}

func NewMiner(model llm.VisionModel, human *timing.Humanizer, maxSteps int, log *zap.Logger) *Miner {
	return &Miner{
		model:            model,
		human:            human,
		log:              log,
		maxSteps:         maxSteps,
		maxParseFailures: 3,
	}
}

// Run attaches to the live session at endpoint and drives the task to a
// terminal result. The returned string is the agent's terminal payload,
// handed to the result sink unmodified.
func (m *Miner) Run(ctx context.Context, endpoint, task string) (string, error) {
	m.log.Info("attaching autonomous agent",
		zap.String("endpoint", endpoint),
		zap.String("provider", m.model.Provider()))

	tabCtx, cancel, err := attach(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: attach: %v", ErrAgentFailure, err)
	}
	defer cancel()

	var history []string
	parseFailures := 0

	for step := 1; step <= m.maxSteps; step++ {
		shot, err := screenshot(tabCtx)
		if err != nil {
			return "", fmt.Errorf("%w: screenshot at step %d: %v", ErrAgentFailure, step, err)
		}

		raw, err := m.model.GenerateVision(ctx, observationPrompt(task, history), shot)
		if err != nil {
			return "", fmt.Errorf("%w: model at step %d: %v", ErrAgentFailure, step, err)
		}

		act, err := parseAction(raw)
		if err != nil {
			parseFailures++
			m.log.Warn("unparseable agent action", zap.Int("step", step), zap.Error(err))
			if parseFailures >= m.maxParseFailures {
				return "", fmt.Errorf("%w: %d consecutive unparseable actions", ErrAgentFailure, parseFailures)
			}
			history = append(history, fmt.Sprintf("step %d: response was not a valid action, retry", step))
			continue
		}
		parseFailures = 0

		m.log.Info("agent action",
			zap.Int("step", step),
			zap.String("action", act.Action),
			zap.String("reason", act.Reason))

		switch act.Action {
		case actionDone:
			return act.Result, nil
		case actionAbort:
			return "", fmt.Errorf("%w: agent aborted: %s", ErrAgentFailure, act.Reason)
		}

		if err := m.execute(ctx, tabCtx, act); err != nil {
			// Interaction errors are observations for the next turn, not
			// failures: the agent sees the unchanged screenshot and adapts.
			m.log.Warn("agent action failed", zap.Int("step", step), zap.Error(err))
			history = append(history, fmt.Sprintf("step %d: %s failed: %v", step, act.Action, err))
			continue
		}
		history = append(history, fmt.Sprintf("step %d: %s", step, act.describe()))
	}

	return "", fmt.Errorf("%w: step budget (%d) exhausted without a terminal result", ErrAgentFailure, m.maxSteps)
}

// attach connects to the browser's remote debugging endpoint and binds to the
// already-open page target, so the agent continues the warmed-up session
// instead of opening a fresh tab.
func attach(ctx context.Context, endpoint string) (context.Context, context.CancelFunc, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, endpoint)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	cancelAll := func() {
		cancelBrowser()
		cancelAlloc()
	}

	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		cancelAll()
		return nil, nil, fmt.Errorf("list targets: %w", err)
	}

	for _, info := range infos {
		if info.Type != "page" || strings.HasPrefix(info.URL, "devtools://") {
			continue
		}
		tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
		return tabCtx, func() {
			cancelTab()
			cancelAll()
		}, nil
	}

	cancelAll()
	return nil, nil, fmt.Errorf("no page target exposed at %s", endpoint)
}

func screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}
