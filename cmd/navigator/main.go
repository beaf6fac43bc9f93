// Command navigator runs only the deterministic warm-up flow, without the
// vision agent. Useful for validating selectors and stealth against a live
// site, optionally with a watch server streaming screenshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"oddsminer/internal/browser"
	"oddsminer/internal/config"
	"oddsminer/internal/engine"
	"oddsminer/internal/navigator"
	"oddsminer/internal/server"
	"oddsminer/internal/stealth"
	"oddsminer/internal/timing"
)

func main() {
	urlFlag := flag.String("url", "", "target sportsbook URL (defaults to the configured target)")
	watch := flag.Bool("watch", false, "serve live status and screenshots while the flow runs")
	debug := flag.Bool("debug", false, "verbose development logging")
	flag.Parse()

	logger := buildLogger(*debug)
	defer logger.Sync()

	cfg := config.Load()

	url := strings.TrimSpace(*urlFlag)
	if url == "" && flag.NArg() > 0 {
		url = strings.TrimSpace(flag.Arg(0))
	}
	if url == "" {
		url = cfg.TargetURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timing.Real()
	human := timing.NewHumanizer(clock, rand.New(rand.NewSource(time.Now().UnixNano())))

	launcher := browser.NewLauncher(cfg, stealth.NewProfile(cfg), logger)
	flow := navigator.New(cfg, browser.NewResolver(clock, logger), browser.NewInteractor(human, logger), human, logger)

	var opts []engine.Option
	if *watch {
		watchSrv := server.New(cfg.WatchAddr, logger)
		go func() {
			if err := watchSrv.Start(); err != nil {
				logger.Warn("watch server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			watchSrv.Shutdown(shutdownCtx)
		}()
		opts = append(opts, engine.WithObserver(func(s engine.Session) { watchSrv.Attach(s) }))
	}

	eng := engine.New(cfg,
		func(ctx context.Context) (engine.Session, error) { return launcher.Launch(ctx) },
		flow, nil, nil, "", clock, logger, opts...)

	report, err := eng.RunScripted(ctx, url)
	if err != nil {
		logger.Fatal("scripted run failed", zap.Error(err))
	}
	if report == nil {
		fmt.Println("no target URL provided")
		os.Exit(1)
	}

	fmt.Printf("terminal state: %s  market visible: %v\n", report.Terminal, report.MarketVisible)
	for _, step := range report.Steps {
		fmt.Printf("  %-14s found=%-5v clicked=%-5v recovered=%v\n",
			step.State, step.Found, step.Clicked, step.Recovered)
	}
}

func buildLogger(debug bool) *zap.Logger {
	if debug {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
