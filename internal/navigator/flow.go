// Package navigator drives the scripted warm-up flow: cookie consent, event
// search, result selection, tab navigation and market verification. Every
// step degrades gracefully; only the engine's launch phase can abort a run.
package navigator

import (
	"context"

	"go.uber.org/zap"

	"oddsminer/internal/browser"
	"oddsminer/internal/config"
	"oddsminer/internal/timing"
)

// State names the positions of the linear flow machine.
type State string

const (
	StateInit         State = "INIT"
	StateCookies      State = "COOKIES"
	StateSearch       State = "SEARCH"
	StateResultSelect State = "RESULT_SELECT"
	StateTabNav       State = "TAB_NAV"
	StateMarketVerify State = "MARKET_VERIFY"
	// StateHandoff is recorded by the engine when the autonomous agent takes
	// over; the scripted-only variant never reaches it.
	StateHandoff State = "HANDOFF"
	StateDone    State = "DONE"
)

// StepOutcome records what happened at one flow state. Required only affects
// reporting; a missing required target still never aborts the run.
type StepOutcome struct {
	State     State
	Required  bool
	Found     bool
	Clicked   bool
	Recovered bool
}

// Report summarizes a completed flow. Terminal is always StateDone: the flow
// reaches it whether or not the target market was located.
type Report struct {
	Steps         []StepOutcome
	MarketVisible bool
	Terminal      State
}

// Flow is the scripted step sequence built from the resolver and interactor.
type Flow struct {
	cfg        config.Config
	resolver   *browser.Resolver
	interactor *browser.Interactor
	human      *timing.Humanizer
	log        *zap.Logger
}

func New(cfg config.Config, resolver *browser.Resolver, interactor *browser.Interactor, human *timing.Humanizer, log *zap.Logger) *Flow {
	return &Flow{
		cfg:        cfg,
		resolver:   resolver,
		interactor: interactor,
		human:      human,
		log:        log,
	}
}

// Run executes the full scripted sequence against a live page. It never
// returns an error: navigation timeouts are warnings, missing targets are
// skips, interaction failures are recorded and the flow advances.
func (f *Flow) Run(ctx context.Context, page browser.Surface, url string) *Report {
	report := &Report{Terminal: StateDone}

	f.log.Info("starting stealth navigation", zap.String("url", url))
	if err := page.Navigate(url, f.cfg.NavTimeout); err != nil {
		f.log.Warn("initial navigation did not settle, continuing with partial page state", zap.Error(err))
	}
	report.Steps = append(report.Steps, StepOutcome{State: StateInit, Found: true})

	f.acceptCookies(ctx, page, report)
	f.performSearch(ctx, page, report)
	f.navigateMatchTabs(ctx, page, report)
	f.verifyMarket(ctx, page, report)

	f.log.Info("scripted flow finished",
		zap.Bool("market_visible", report.MarketVisible),
		zap.Int("steps", len(report.Steps)))
	return report
}

func (f *Flow) pause(ctx context.Context, label string) {
	d := f.human.Pause(ctx, f.cfg.ActionPauseMin, f.cfg.ActionPauseMax)
	f.log.Debug("human pause", zap.String("label", label), zap.Duration("delay", d))
}

// clickStep resolves a spec and clicks its first visible match, recording the
// outcome. Absence and interaction failure both advance the flow.
func (f *Flow) clickStep(ctx context.Context, page browser.Surface, state State, spec browser.Spec, required bool, report *Report) bool {
	outcome := StepOutcome{State: state, Required: required}
	defer func() { report.Steps = append(report.Steps, outcome) }()

	el := f.resolver.Resolve(ctx, page, spec, f.cfg.ResolveTimeout)
	if el == nil {
		if required {
			f.log.Warn("required target not found, skipping step", zap.String("step", string(state)))
		} else {
			f.log.Info("target not found, skipping step", zap.String("step", string(state)))
		}
		return false
	}
	outcome.Found = true

	click := f.interactor.Click(ctx, page.Mouse(), el, spec.Label)
	outcome.Clicked = click.Succeeded
	outcome.Recovered = click.Recovered
	if !click.Succeeded {
		f.log.Warn("interaction failed, advancing", zap.String("step", string(state)))
		return false
	}

	f.pause(ctx, spec.Label)
	return true
}

func (f *Flow) acceptCookies(ctx context.Context, page browser.Surface, report *Report) {
	f.pause(ctx, "check cookies")
	spec := browser.RoleSpec("cookie-accept", "button", f.cfg.Selectors.Cookies)
	if !f.clickStep(ctx, page, StateCookies, spec, false, report) {
		f.log.Info("no cookie banner detected")
	}
}

func (f *Flow) performSearch(ctx context.Context, page browser.Surface, report *Report) {
	f.pause(ctx, "pre search")

	outcome := StepOutcome{State: StateSearch, Required: true}

	trigger := f.resolver.Resolve(ctx, page, browser.TextSpec("search-trigger", f.cfg.Selectors.SearchTrigger), f.cfg.ResolveTimeout)
	if trigger == nil {
		trigger = f.resolver.ResolveSelector(ctx, page, "search-trigger-css", f.cfg.Selectors.SearchTriggerCSS, f.cfg.ResolveTimeout)
	}
	if trigger == nil {
		f.log.Warn("search trigger not found, skipping search")
		report.Steps = append(report.Steps, outcome)
		return
	}
	outcome.Found = true

	click := f.interactor.Click(ctx, page.Mouse(), trigger, "search-trigger")
	outcome.Clicked = click.Succeeded
	outcome.Recovered = click.Recovered
	report.Steps = append(report.Steps, outcome)
	if !click.Succeeded {
		return
	}
	f.pause(ctx, "wait input")

	input := f.resolver.ResolveSelector(ctx, page, "search-input", f.cfg.Selectors.SearchInputs, f.cfg.ResolveTimeout)
	if input == nil {
		f.log.Warn("search input never became visible")
		return
	}
	if err := input.Click(); err != nil {
		f.log.Warn("could not focus search input", zap.Error(err))
		return
	}

	f.typeLikeHuman(ctx, page.Keys(), f.cfg.SearchQuery)
	if err := page.Keys().Press("Enter"); err != nil {
		f.log.Warn("submit search failed", zap.Error(err))
		return
	}
	f.log.Info("search submitted", zap.String("query", f.cfg.SearchQuery))

	f.selectResult(ctx, page, report)
}

// typeLikeHuman emits the query one character at a time with randomized
// inter-key delays.
func (f *Flow) typeLikeHuman(ctx context.Context, keys browser.Keyboard, text string) {
	for _, r := range text {
		if err := keys.Type(string(r)); err != nil {
			f.log.Debug("keystroke failed", zap.Error(err))
		}
		f.human.Pause(ctx, f.cfg.TypeDelayMin, f.cfg.TypeDelayMax)
	}
}

func (f *Flow) selectResult(ctx context.Context, page browser.Surface, report *Report) {
	spec := browser.TextSpec("search-result", []string{f.cfg.SearchQuery})
	if !f.clickStep(ctx, page, StateResultSelect, spec, true, report) {
		f.log.Warn("no search results matched", zap.String("query", f.cfg.SearchQuery))
	}
}

func (f *Flow) navigateMatchTabs(ctx context.Context, page browser.Surface, report *Report) {
	bb := browser.TextSpec("bet-builder-tab", f.cfg.Selectors.BetBuilder)
	f.clickStep(ctx, page, StateTabNav, bb, false, report)

	ps := browser.TextSpec("player-section-tab", f.cfg.Selectors.PlayerSection)
	f.clickStep(ctx, page, StateTabNav, ps, false, report)
}

// verifyMarket only records whether the target market text is visible; it
// extracts nothing. Scripted extraction is deliberately not attempted, the
// autonomous agent takes over after the warm-up dwell.
func (f *Flow) verifyMarket(ctx context.Context, page browser.Surface, report *Report) {
	spec := browser.TextSpec("target-market", f.cfg.Selectors.TargetMarket)
	el := f.resolver.Resolve(ctx, page, spec, f.cfg.ResolveTimeout)
	found := el != nil
	report.Steps = append(report.Steps, StepOutcome{State: StateMarketVerify, Required: true, Found: found})
	report.MarketVisible = found

	if found {
		f.log.Info("target market located", zap.String("market", f.cfg.Selectors.TargetMarket[0]))
	} else {
		f.log.Info("target market not available on this event")
	}
}
