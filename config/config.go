// Package config loads the engine's tunable decode parameters — weak
// bit readout policy, System34 gap bound, and PLL resolver constants —
// from a TOML file, falling back to an embedded default profile.
// Grounded on the teacher's config.go (embedded default, TOML decode,
// validated-then-published global profile), generalized from a
// drive/image catalog to the engine's own decode knobs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/sergev/floppyengine/bitbuf"
	"github.com/sergev/floppyengine/geometry"
	"github.com/sergev/floppyengine/pll"
)

//go:embed floppy.toml
var defaultConfigData []byte

// Active holds the profile selected by the most recent Initialize
// call, ready for direct use by callers that do not need to juggle
// multiple profiles.
var Active EngineProfile

// Config is the TOML document shape: a default profile name plus a
// catalogue of named engine profiles.
type Config struct {
	Default string   `toml:"default"`
	Engine  []Engine `toml:"engine"`
}

// Engine is one named engine tuning profile as stored in TOML.
type Engine struct {
	Name                string  `toml:"name"`
	WeakReadout         string  `toml:"weak_readout"` // "randomize" or "zero"
	GapMaxBitsDD        int     `toml:"gap_max_bits_dd"`
	GapMaxBitsHD        int     `toml:"gap_max_bits_hd"`
	PLLAlpha            float64 `toml:"pll_alpha"`
	PLLClamp            float64 `toml:"pll_clamp"`
	WeakThreshold       float64 `toml:"weak_threshold"`
	WeakMaxK            int     `toml:"weak_max_k"`
	RateTolerance       float64 `toml:"rate_tolerance"`
	CanonicalRevolution string  `toml:"canonical_revolution"` // "fewest_weak" is the only policy currently implemented
}

// EngineProfile is a validated, ready-to-use profile: TOML strings
// resolved into the concrete enums/params the engine packages expect.
type EngineProfile struct {
	Name          string
	WeakReadout   bitbuf.WeakReadout
	GapMaxBitsDD  int
	GapMaxBitsHD  int
	PLL           pll.Params
	CanonicalRule string
}

func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "floppyengine")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".floppyengine.toml"), nil
}

// Initialize loads the engine profile named by the config's `default`
// key (creating the config file from the embedded default if none
// exists yet), validates it, and stores it in Active.
func Initialize() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}

	profile, err := resolve(conf, conf.Default)
	if err != nil {
		return err
	}
	Active = profile
	return nil
}

// Default parses the embedded default profile without touching disk,
// useful for tests and library callers that never want a config file.
func Default() (EngineProfile, error) {
	var conf Config
	if _, err := toml.Decode(string(defaultConfigData), &conf); err != nil {
		return EngineProfile{}, fmt.Errorf("failed to parse embedded default config: %w", err)
	}
	return resolve(conf, conf.Default)
}

func resolve(conf Config, name string) (EngineProfile, error) {
	if name == "" {
		return EngineProfile{}, errors.New("config: `default` key is missing or empty")
	}

	var found *Engine
	for i := range conf.Engine {
		if conf.Engine[i].Name == name {
			found = &conf.Engine[i]
			break
		}
	}
	if found == nil {
		return EngineProfile{}, fmt.Errorf("config: engine profile %q not found", name)
	}

	if found.GapMaxBitsDD <= 0 || found.GapMaxBitsHD <= 0 {
		return EngineProfile{}, fmt.Errorf("config: profile %q has non-positive gap bound", name)
	}
	if found.PLLAlpha <= 0 || found.PLLAlpha >= 1 {
		return EngineProfile{}, fmt.Errorf("config: profile %q has invalid pll_alpha %v (must be in (0,1))", name, found.PLLAlpha)
	}
	if found.CanonicalRevolution != "fewest_weak" {
		return EngineProfile{}, fmt.Errorf("config: profile %q names unsupported canonical_revolution policy %q", name, found.CanonicalRevolution)
	}

	var readout bitbuf.WeakReadout
	switch found.WeakReadout {
	case "randomize", "":
		readout = bitbuf.WeakRandomize
	case "zero":
		readout = bitbuf.WeakZero
	default:
		return EngineProfile{}, fmt.Errorf("config: profile %q names unknown weak_readout %q", name, found.WeakReadout)
	}

	return EngineProfile{
		Name:         found.Name,
		WeakReadout:  readout,
		GapMaxBitsDD: found.GapMaxBitsDD,
		GapMaxBitsHD: found.GapMaxBitsHD,
		PLL: pll.Params{
			Alpha:         found.PLLAlpha,
			ClampFraction: found.PLLClamp,
			WeakFraction:  found.WeakThreshold,
			WeakMaxK:      found.WeakMaxK,
			RateTolerance: found.RateTolerance,
		},
		CanonicalRule: found.CanonicalRevolution,
	}, nil
}

// GapMaxBits returns the profile's gap bound for the given density,
// defaulting to the DD bound for anything not explicitly HD/ED.
func (p EngineProfile) GapMaxBits(density geometry.Density) int {
	if density >= geometry.HighDensity {
		return p.GapMaxBitsHD
	}
	return p.GapMaxBitsDD
}
