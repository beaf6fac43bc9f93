package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"oddsminer/internal/config"
	"oddsminer/internal/stealth"
)

// ErrLaunchFailure signals that no compatible browser engine could be
// started after the fallback channel attempt. Fatal: the run aborts and no
// artifacts are written.
var ErrLaunchFailure = errors.New("no compatible browser engine available")

// Session owns one browser process, one isolated context and one page.
// It is created once per run, exclusively owned by it, and closed exactly
// once on every exit path via Close's sync.Once guard.
type Session struct {
	ID string

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	cdpEndpoint string
	closeOnce   sync.Once
	log         *zap.Logger
}

// Launcher acquires browsing sessions configured with a stealth profile.
type Launcher struct {
	cfg     config.Config
	profile *stealth.Profile
	log     *zap.Logger
}

func NewLauncher(cfg config.Config, profile *stealth.Profile, log *zap.Logger) *Launcher {
	return &Launcher{cfg: cfg, profile: profile, log: log}
}

// Launch starts the browser engine, attempting the bundled chromium channel
// first and the installed chrome channel on failure, then builds the isolated
// context and page with the stealth profile applied before any page loads.
func (l *Launcher) Launch(ctx context.Context) (*Session, error) {
	initScript, launch := l.profile.Build()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: start driver: %v", ErrLaunchFailure, err)
	}

	args := append([]string{}, launch.Args...)
	args = append(args, fmt.Sprintf("--remote-debugging-port=%d", l.cfg.CDPPort))

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.cfg.Headless),
		Args:     args,
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		l.log.Warn("primary engine channel failed, trying chrome channel", zap.Error(err))
		opts.Channel = playwright.String("chrome")
		browser, err = pw.Chromium.Launch(opts)
		if err != nil {
			pw.Stop()
			return nil, fmt.Errorf("%w: %v", ErrLaunchFailure, err)
		}
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(launch.UserAgent),
		Locale:     playwright.String(launch.Locale),
		TimezoneId: playwright.String(launch.Timezone),
		HasTouch:   playwright.Bool(launch.HasTouch),
		NoViewport: playwright.Bool(true),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err := browserCtx.AddInitScript(playwright.Script{Content: playwright.String(initScript)}); err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("inject evasions: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	sessionID := uuid.New().String()
	s := &Session{
		ID:          sessionID,
		pw:          pw,
		browser:     browser,
		context:     browserCtx,
		page:        page,
		cdpEndpoint: fmt.Sprintf("http://127.0.0.1:%d", l.cfg.CDPPort),
		log:         l.log.With(zap.String("session_id", sessionID)),
	}
	s.log.Info("session launched")
	return s, nil
}

// Surface returns the live-page surface for the scripted flow.
func (s *Session) Surface() Surface { return NewSurface(s.page) }

// CDPEndpoint is the remote control attachment point exposed to the
// autonomous agent during the hybrid handoff.
func (s *Session) CDPEndpoint() string { return s.cdpEndpoint }

// Screenshot captures the current page as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	return s.page.Screenshot()
}

// Status reports the page's current URL and title for observers.
func (s *Session) Status() (url, title string) {
	url = s.page.URL()
	title, _ = s.page.Title()
	return url, title
}

// Close releases the page, context, browser process and driver. Safe on
// every exit path; repeated calls are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.log.Info("closing session")
		if s.page != nil {
			s.page.Close()
		}
		if s.context != nil {
			s.context.Close()
		}
		if s.browser != nil {
			s.browser.Close()
		}
		if s.pw != nil {
			err = s.pw.Stop()
		}
	})
	return err
}
