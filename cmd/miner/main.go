// Command miner runs one full hybrid extraction: stealth session launch,
// scripted warm-up navigation, vision-agent takeover and result ingestion,
// with optional persistence of the extracted odds.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"oddsminer/internal/agent"
	"oddsminer/internal/analysis"
	"oddsminer/internal/browser"
	"oddsminer/internal/config"
	"oddsminer/internal/engine"
	"oddsminer/internal/llm"
	"oddsminer/internal/navigator"
	"oddsminer/internal/sink"
	"oddsminer/internal/stealth"
	"oddsminer/internal/store"
	"oddsminer/internal/timing"
)

func main() {
	urlFlag := flag.String("url", "", "target sportsbook URL (defaults to the configured target)")
	persist := flag.Bool("store", false, "persist extracted odds into the local database")
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

	apiKey, err := config.ResolveCredentials(".")
	if err != nil {
		logger.Fatal("cannot resolve vision model credentials", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timing.Real()
	human := timing.NewHumanizer(clock, rand.New(rand.NewSource(time.Now().UnixNano())))

	launcher := browser.NewLauncher(cfg, stealth.NewProfile(cfg), logger)
	flow := navigator.New(cfg, browser.NewResolver(clock, logger), browser.NewInteractor(human, logger), human, logger)
	miner := agent.NewMiner(llm.NewGeminiClient(apiKey, cfg.AgentModel), human, cfg.AgentMaxSteps, logger)
	results := sink.New(cfg.DataDir, logger)

	eng := engine.New(cfg,
		func(ctx context.Context) (engine.Session, error) { return launcher.Launch(ctx) },
		flow, miner, results, agent.DefaultTask(), clock, logger)

	result, err := eng.Run(ctx, url)
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Println("no data extracted")
		os.Exit(1)
	}
	if result == nil {
		fmt.Println("no data extracted")
		os.Exit(1)
	}

	printSummary(result)

	if *persist && result.Record != nil {
		if err := persistRecord(ctx, cfg, result.Record, logger); err != nil {
			logger.Error("persisting odds failed", zap.Error(err))
		}
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

func printSummary(result *sink.Result) {
	switch {
	case result.Record != nil:
		rec := result.Record
		fmt.Printf("match:  %s\nmarket: %s\n", rec.Match, rec.Market)
		for i, p := range rec.Players {
			if i == 5 {
				fmt.Printf("  ... and %d more\n", len(rec.Players)-5)
				break
			}
			line := fmt.Sprintf("  %s  line %s @ %s", p.Name, p.Line, p.Odd)
			if odd, err := strconv.ParseFloat(p.Odd, 64); err == nil && odd > 1 {
				line += fmt.Sprintf("  (implied %.1f%%)", analysis.ImpliedProbability(odd)*100)
			}
			fmt.Println(line)
		}
	case result.MarketError != "":
		fmt.Printf("market unavailable: %s\n", result.MarketError)
	case result.Fallback != nil:
		fmt.Println("unstructured output stored:")
		fmt.Println(result.Fallback.RawOutput)
	}
}

// persistRecord writes the record into the odds database. The match string is
// extracted as "Home vs Away"; a record that does not follow that shape is
// stored under a single home-team slot.
func persistRecord(ctx context.Context, cfg config.Config, rec *sink.Record, logger *zap.Logger) error {
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	home, away := splitMatch(rec.Match)
	matchID, err := st.UpsertMatch(ctx, home, away, "", time.Now())
	if err != nil {
		return err
	}

	for _, p := range rec.Players {
		odd, err := strconv.ParseFloat(strings.ReplaceAll(p.Odd, ",", "."), 64)
		if err != nil {
			logger.Warn("skipping odd with unparseable value",
				zap.String("player", p.Name), zap.String("odd", p.Odd))
			continue
		}
		if err := st.InsertOdd(ctx, matchID, "codere", rec.Market, p.Name, p.Line, odd); err != nil {
			return err
		}
	}

	n, err := st.OddsCount(ctx, matchID)
	if err == nil {
		logger.Info("odds persisted", zap.Int64("match_id", matchID), zap.Int("total_odds", n))
	}
	return nil
}

func splitMatch(match string) (home, away string) {
	for _, sep := range []string{" vs ", " vs. ", " - ", " v "} {
		if parts := strings.SplitN(match, sep, 2); len(parts) == 2 {
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(match), ""
}
