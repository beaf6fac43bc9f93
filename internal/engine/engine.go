// Package engine ties one run together: session launch, scripted warm-up
// navigation, hybrid handoff to the autonomous agent, and result ingestion.
//
// Error taxonomy: launch failures (browser.ErrLaunchFailure) and agent
// framework failures (agent.ErrAgentFailure) are fatal and propagate to the
// run boundary, where the session is still closed before the failure is
// reported upward. Navigation timeouts, missing selectors, interaction
// failures and parse failures are absorbed at their originating step.
package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oddsminer/internal/browser"
	"oddsminer/internal/config"
	"oddsminer/internal/navigator"
	"oddsminer/internal/sink"
	"oddsminer/internal/timing"
)

// Session is the engine's view of one live browsing session. Exactly one
// exists per run; the engine owns it exclusively and closes it on every exit
// path.
type Session interface {
	Surface() browser.Surface
	CDPEndpoint() string
	Screenshot() ([]byte, error)
	Status() (url, title string)
	Close() error
}

// LaunchFunc acquires a session. It wraps browser.Launcher in production and
// fakes in tests.
type LaunchFunc func(ctx context.Context) (Session, error)

// Flow is the scripted navigator contract the engine drives.
type Flow interface {
	Run(ctx context.Context, page browser.Surface, url string) *navigator.Report
}

// Agent drives the autonomous extraction against the session's remote
// attachment point and returns its terminal payload.
type Agent interface {
	Run(ctx context.Context, endpoint, task string) (string, error)
}

// Ingestor validates terminal output and writes the run artifact.
type Ingestor interface {
	Ingest(agentResult any) (*sink.Result, error)
}

// Engine executes runs. One logical run is a strictly ordered sequence of
// suspension points; nothing inside a run executes in parallel.
type Engine struct {
	cfg    config.Config
	launch LaunchFunc
	flow   Flow
	agent  Agent
	sink   Ingestor
	task   string
	clock  timing.Clock
	log    *zap.Logger

	// observer, when set, receives the live session right after launch so a
	// watch server can stream it. It must not retain the session past the
	// run.
	observer func(Session)
}

type Option func(*Engine)

// WithObserver registers a callback invoked with the live session after a
// successful launch.
func WithObserver(fn func(Session)) Option {
	return func(e *Engine) { e.observer = fn }
}

// WithTask overrides the natural-language task handed to the agent.
func WithTask(task string) Option {
	return func(e *Engine) { e.task = task }
}

func New(cfg config.Config, launch LaunchFunc, flow Flow, ag Agent, ingestor Ingestor, task string, clock timing.Clock, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		launch: launch,
		flow:   flow,
		agent:  ag,
		sink:   ingestor,
		task:   task,
		clock:  clock,
		log:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes one full hybrid run against url. A blank url short-circuits
// before any session is created. Exactly one of the result's fields is set on
// success; a fatal run returns a nil result and the fatal error, with the
// session guaranteed closed.
func (e *Engine) Run(ctx context.Context, url string) (*sink.Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		e.log.Warn("empty target URL, aborting before session creation")
		return nil, nil
	}

	log := e.log.With(zap.String("run_id", uuid.New().String()))

	sess, err := e.launch(ctx)
	if err != nil {
		log.Error("session launch failed", zap.Error(err))
		return nil, err
	}
	defer sess.Close()

	if e.observer != nil {
		e.observer(sess)
	}

	report := e.flow.Run(ctx, sess.Surface(), url)
	log.Info("warm-up navigation complete", zap.Bool("market_visible", report.MarketVisible))

	log.Info("warm-up dwell before agent takeover", zap.Duration("dwell", e.cfg.WarmupDwell))
	e.clock.Sleep(ctx, e.cfg.WarmupDwell)
	report.Steps = append(report.Steps, navigator.StepOutcome{State: navigator.StateHandoff, Required: true, Found: true})

	out, err := e.agent.Run(ctx, sess.CDPEndpoint(), e.task)
	if err != nil {
		log.Error("agent run failed, no record produced", zap.Error(err))
		return nil, err
	}

	return e.sink.Ingest(out)
}

// RunScripted executes only the deterministic navigation flow, without the
// agent handoff. Used by the navigator binary and as a credentials-free dry
// run.
func (e *Engine) RunScripted(ctx context.Context, url string) (*navigator.Report, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		e.log.Warn("empty target URL, aborting before session creation")
		return nil, nil
	}

	sess, err := e.launch(ctx)
	if err != nil {
		e.log.Error("session launch failed", zap.Error(err))
		return nil, err
	}
	defer sess.Close()

	if e.observer != nil {
		e.observer(sess)
	}

	return e.flow.Run(ctx, sess.Surface(), url), nil
}
