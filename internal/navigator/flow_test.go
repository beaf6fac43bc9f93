package navigator

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oddsminer/internal/browser"
	"oddsminer/internal/config"
	"oddsminer/internal/timing"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) {
	c.now = c.now.Add(d)
}

type stubElement struct {
	visible  bool
	clickErr error
	clicks   int
	text     string
}

func (e *stubElement) Visible() bool { return e.visible }

func (e *stubElement) Box() (browser.Box, bool) {
	return browser.Box{X: 10, Y: 10, Width: 20, Height: 20}, true
}

func (e *stubElement) Click() error                     { e.clicks++; return e.clickErr }
func (e *stubElement) ForceClick(_ time.Duration) error { return e.clickErr }
func (e *stubElement) Text() string                     { return e.text }

type stubPointer struct{}

func (stubPointer) Move(_, _ float64, _ int) error { return nil }

func (stubPointer) Wheel(_, _ float64) error { return nil }

type stubKeyboard struct {
	typed   strings.Builder
	presses []string
}

func (k *stubKeyboard) Type(text string) error { k.typed.WriteString(text); return nil }
func (k *stubKeyboard) Press(key string) error { k.presses = append(k.presses, key); return nil }

// stubSurface resolves targets from text and css tables and records
// navigation.
type stubSurface struct {
	texts     map[string]*stubElement
	selectors map[string]*stubElement

	keyboard *stubKeyboard
	navErr   error
	gotoURL  string
}

func (s *stubSurface) ByRole(role, name string) browser.Element { return s.ByText(name) }

func (s *stubSurface) ByText(text string) browser.Element {
	if el, ok := s.texts[text]; ok {
		return el
	}
	return nil
}

func (s *stubSurface) BySelector(css string) browser.Element {
	if el, ok := s.selectors[css]; ok {
		return el
	}
	return nil
}

func (s *stubSurface) Mouse() browser.Pointer { return stubPointer{} }
func (s *stubSurface) Keys() browser.Keyboard { return s.keyboard }

func (s *stubSurface) Navigate(url string, _ time.Duration) error {
	s.gotoURL = url
	return s.navErr
}

func (s *stubSurface) URL() string { return s.gotoURL }

func (s *stubSurface) Title() string { return "stub" }

func testConfig() config.Config {
	cfg := config.Default()
	// Collapse every randomized and bounded wait so the flow runs instantly
	// against the fake clock.
	cfg.ActionPauseMin, cfg.ActionPauseMax = 0, 0
	cfg.TypeDelayMin, cfg.TypeDelayMax = 0, 0
	cfg.ResolveTimeout = 0
	return cfg
}

func newTestFlow(cfg config.Config) *Flow {
	clock := &fakeClock{}
	human := timing.NewHumanizer(clock, rand.New(rand.NewSource(1)))
	return New(cfg,
		browser.NewResolver(clock, zap.NewNop()),
		browser.NewInteractor(human, zap.NewNop()),
		human, zap.NewNop())
}

func happySurface(cfg config.Config) *stubSurface {
	return &stubSurface{
		keyboard: &stubKeyboard{},
		texts: map[string]*stubElement{
			"Aceptar":        {visible: true},
			"Buscar":         {visible: true},
			cfg.SearchQuery:  {visible: true, text: cfg.SearchQuery},
			"Bet Builder":    {visible: true},
			"Player":         {visible: true},
			"Tiros a puerta": {visible: true},
		},
		selectors: map[string]*stubElement{
			"input[type='search']": {visible: true},
		},
	}
}

func TestFlowHappyPathReachesMarket(t *testing.T) {
	cfg := testConfig()
	page := happySurface(cfg)

	report := newTestFlow(cfg).Run(context.Background(), page, cfg.TargetURL)

	require.NotNil(t, report)
	assert.Equal(t, StateDone, report.Terminal)
	assert.True(t, report.MarketVisible)
	assert.Equal(t, cfg.TargetURL, page.gotoURL)

	// Search query typed one rune at a time and submitted.
	assert.Equal(t, cfg.SearchQuery, page.keyboard.typed.String())
	assert.Contains(t, page.keyboard.presses, "Enter")

	states := make([]State, 0, len(report.Steps))
	for _, s := range report.Steps {
		states = append(states, s.State)
	}
	assert.Equal(t, []State{
		StateInit, StateCookies, StateSearch, StateResultSelect,
		StateTabNav, StateTabNav, StateMarketVerify,
	}, states)
}

func TestFlowMissingCookieBannerIsSkippedNotFatal(t *testing.T) {
	cfg := testConfig()
	page := happySurface(cfg)
	delete(page.texts, "Aceptar")

	report := newTestFlow(cfg).Run(context.Background(), page, cfg.TargetURL)

	assert.Equal(t, StateDone, report.Terminal)
	assert.True(t, report.MarketVisible)

	for _, s := range report.Steps {
		if s.State == StateCookies {
			assert.False(t, s.Found)
			assert.False(t, s.Clicked)
		}
	}
}

func TestFlowNavigationTimeoutContinuesWithPartialPage(t *testing.T) {
	cfg := testConfig()
	page := happySurface(cfg)
	page.navErr = errors.New("timeout 60000ms exceeded")

	report := newTestFlow(cfg).Run(context.Background(), page, cfg.TargetURL)

	assert.Equal(t, StateDone, report.Terminal)
	assert.True(t, report.MarketVisible, "flow keeps working against the partial page state")
}

func TestFlowMissingSearchTriggerSkipsDependentSteps(t *testing.T) {
	cfg := testConfig()
	page := happySurface(cfg)
	delete(page.texts, "Buscar")
	page.selectors = map[string]*stubElement{} // css fallback also absent

	report := newTestFlow(cfg).Run(context.Background(), page, cfg.TargetURL)

	assert.Equal(t, StateDone, report.Terminal)
	assert.Empty(t, page.keyboard.typed.String(), "nothing typed without a search box")

	var sawResultSelect bool
	for _, s := range report.Steps {
		if s.State == StateSearch {
			assert.False(t, s.Found)
		}
		if s.State == StateResultSelect {
			sawResultSelect = true
		}
	}
	assert.False(t, sawResultSelect, "result selection is skipped when search never opened")
}

func TestFlowMarketAbsenceOnlyClearsVisibility(t *testing.T) {
	cfg := testConfig()
	page := happySurface(cfg)
	delete(page.texts, "Tiros a puerta")

	report := newTestFlow(cfg).Run(context.Background(), page, cfg.TargetURL)

	assert.Equal(t, StateDone, report.Terminal)
	assert.False(t, report.MarketVisible)
}
