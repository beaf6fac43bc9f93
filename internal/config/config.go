package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Selectors holds the ordered candidate lists for every logical UI target the
// scripted flow drives. Order encodes preference; the first visible match wins.
type Selectors struct {
	Cookies          []string
	SearchTrigger    []string
	SearchTriggerCSS []string // CSS fallbacks when no textual trigger matches
	SearchInputs     []string // CSS candidates for the search input box
	BetBuilder       []string
	PlayerSection    []string
	TargetMarket     []string
}

// Config is the immutable run configuration. It is built once (Load or
// Default) and passed into the engine at construction time; nothing mutates
// it afterwards, so tests can inject their own timings and targets freely.
type Config struct {
	TargetURL   string
	SearchQuery string

	Headless bool
	CDPPort  int

	UserAgent string
	Locale    string
	Timezone  string

	// Human-simulation timing windows.
	ActionPauseMin time.Duration
	ActionPauseMax time.Duration
	TypeDelayMin   time.Duration
	TypeDelayMax   time.Duration

	NavTimeout     time.Duration
	ResolveTimeout time.Duration
	WarmupDwell    time.Duration

	AgentModel    string
	AgentMaxSteps int

	DataDir   string
	DBPath    string
	WatchAddr string

	Selectors Selectors
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Default returns the baked-in configuration targeting the Codere mobile
// sportsbook, mirroring the production deployment values.
func Default() Config {
	return Config{
		TargetURL:   "https://m.apuestas.codere.es/deportesEs/#/HomePage",
		SearchQuery: "Levante",

		Headless: false,
		CDPPort:  9222,

		UserAgent: defaultUserAgent,
		Locale:    "es-ES",
		Timezone:  "Europe/Madrid",

		ActionPauseMin: 1500 * time.Millisecond,
		ActionPauseMax: 3500 * time.Millisecond,
		TypeDelayMin:   50 * time.Millisecond,
		TypeDelayMax:   150 * time.Millisecond,

		NavTimeout:     60 * time.Second,
		ResolveTimeout: 4 * time.Second,
		WarmupDwell:    15 * time.Second,

		AgentModel:    "gemini-2.5-flash",
		AgentMaxSteps: 25,

		DataDir:   "data",
		DBPath:    filepath.Join("data", "value_betting.db"),
		WatchAddr: ":8080",

		Selectors: Selectors{
			Cookies:          []string{"Aceptar", "Accept", "Allow all", "OK", "Acepto", "Allow", "Aceptar cookies"},
			SearchTrigger:    []string{"Buscar", "Search", "Búsqueda", "Buscar eventos"},
			SearchTriggerCSS: []string{"button[aria-label*='Buscar']", ".search-button", "ion-icon[name='search']"},
			SearchInputs:     []string{"input[type='search']", "input.searchbar-input"},
			BetBuilder:       []string{"Bet Builder", "Crear Apuesta", "Tiros"},
			PlayerSection:    []string{"Player", "Jugador"},
			TargetMarket:     []string{"Tiros a puerta", "Shots on Target", "Tiros a portería"},
		},
	}
}

// Load builds the configuration from defaults plus environment overrides.
// A .env file in the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()

	if v := os.Getenv("MINER_TARGET_URL"); v != "" {
		cfg.TargetURL = v
	}
	if v := os.Getenv("MINER_SEARCH_QUERY"); v != "" {
		cfg.SearchQuery = v
	}
	if v := os.Getenv("MINER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}
	if v := os.Getenv("MINER_CDP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.CDPPort = p
		}
	}
	if v := os.Getenv("MINER_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.DBPath = filepath.Join(v, "value_betting.db")
	}
	if v := os.Getenv("MINER_AGENT_MODEL"); v != "" {
		cfg.AgentModel = v
	}
	if v := os.Getenv("MINER_WATCH_ADDR"); v != "" {
		cfg.WatchAddr = v
	}

	return cfg
}

type keyFile struct {
	APIKey string `json:"api_key"`
}

// ResolveCredentials locates the Gemini API key required by the hybrid
// handoff path. Precedence: GEMINI_API_KEY env var, then google_key.json one
// level above the project root (kept outside the repository), then
// google_key.json at the root itself. Absence is fatal for the hybrid run.
func ResolveCredentials(projectRoot string) (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key, nil
	}

	candidates := []string{
		filepath.Join(projectRoot, "..", "google_key.json"),
		filepath.Join(projectRoot, "google_key.json"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var kf keyFile
		if err := json.Unmarshal(data, &kf); err != nil {
			return "", fmt.Errorf("parse credentials %s: %w", path, err)
		}
		if kf.APIKey == "" {
			return "", fmt.Errorf("credentials %s: empty api_key", path)
		}
		return kf.APIKey, nil
	}

	return "", fmt.Errorf("no credentials: set GEMINI_API_KEY or place google_key.json next to the project root")
}
