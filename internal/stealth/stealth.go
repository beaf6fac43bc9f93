// Package stealth builds the fingerprint-masking payload and launch
// parameters applied to a browsing session before any page loads.
package stealth

import (
	_ "embed"

	"oddsminer/internal/config"
)

//go:embed evasions.js
var evasionsJS string

// LaunchSpec carries the session launch parameters derived from a profile.
// The viewport is left unset so the window runs maximized; fixed headless
// viewports are a detection signal.
type LaunchSpec struct {
	UserAgent string
	Locale    string
	Timezone  string
	HasTouch  bool
	Args      []string
}

// Profile produces the evasion script and launch configuration for one run.
type Profile struct {
	cfg config.Config
}

func NewProfile(cfg config.Config) *Profile {
	return &Profile{cfg: cfg}
}

// Build returns the init script to inject before any page script executes and
// the launch parameters for the browser process. Pure data construction; it
// cannot fail.
func (p *Profile) Build() (initScript string, launch LaunchSpec) {
	launch = LaunchSpec{
		UserAgent: p.cfg.UserAgent,
		Locale:    p.cfg.Locale,
		Timezone:  p.cfg.Timezone,
		HasTouch:  true,
		Args: []string{
			"--start-maximized",
			"--disable-blink-features=AutomationControlled",
			"--no-default-browser-check",
			"--disable-infobars",
			"--disable-extensions",
			"--disable-popup-blocking",
		},
	}
	return evasionsJS, launch
}
