// Package config loads named encoder profiles from TOML.
//
// A config file holds any number of profiles and names the one used when a
// caller does not pick one:
//
//	default_profile = "web"
//
//	[profiles.web]
//	delay = 10
//	repeat = 0
//	quality = 10
//	colors = 256
//	disposal = -1
//	background = "#ffffff"
//	transparent = "#00ff00"
//	transparent_exact = true
//
// Keys left out of a profile keep the values of gifenc.DefaultOptions.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/gif-tools-mcp/internal/gifenc"
	"github.com/ironsheep/gif-tools-mcp/internal/imaging"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "GIF_MCP_CONFIG"

var ErrUnknownProfile = errors.New("unknown profile")

type profileFile struct {
	Delay            int    `toml:"delay"`
	Repeat           int    `toml:"repeat"`
	Quality          int    `toml:"quality"`
	Colors           int    `toml:"colors"`
	Disposal         int    `toml:"disposal"`
	Width            int    `toml:"width"`
	Height           int    `toml:"height"`
	Background       string `toml:"background"`
	Transparent      string `toml:"transparent"`
	TransparentExact bool   `toml:"transparent_exact"`
	ReuseGlobalTable bool   `toml:"reuse_global_table"`
}

type fileConfig struct {
	DefaultProfile string                 `toml:"default_profile"`
	Profiles       map[string]profileFile `toml:"profiles"`
}

// Config is a set of resolved encoder profiles.
type Config struct {
	// DefaultProfile is used when Options is called with an empty name.
	// Empty means gifenc.DefaultOptions.
	DefaultProfile string

	profiles map[string]gifenc.Options
}

// Default returns a Config without profiles.
func Default() *Config {
	return &Config{profiles: map[string]gifenc.Options{}}
}

// Load reads and validates the TOML file at path.
func Load(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := resolve(raw, meta)
	if err != nil {
		return nil, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Parse reads a config from TOML text.
func Parse(data string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}
	return resolve(raw, meta)
}

// LoadFromEnv loads the file named by GIF_MCP_CONFIG, or returns Default
// when the variable is unset.
func LoadFromEnv() (*Config, error) {
	path := strings.TrimSpace(os.Getenv(PathEnv))
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Options returns the encoder options of the named profile. An empty name
// selects DefaultProfile.
func (c *Config) Options(name string) (gifenc.Options, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return gifenc.DefaultOptions(), nil
	}
	opts, ok := c.profiles[name]
	if !ok {
		return gifenc.Options{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return opts, nil
}

// Profiles lists the profile names in sorted order.
func (c *Config) Profiles() []string {
	names := make([]string, 0, len(c.profiles))
	for name := range c.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resolve(raw fileConfig, meta toml.MetaData) (*Config, error) {
	cfg := Default()
	cfg.DefaultProfile = strings.TrimSpace(raw.DefaultProfile)

	for name, p := range raw.Profiles {
		opts, err := profileOptions(name, p, meta)
		if err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		cfg.profiles[name] = opts
	}

	if cfg.DefaultProfile != "" {
		if _, ok := cfg.profiles[cfg.DefaultProfile]; !ok {
			return nil, fmt.Errorf("default_profile: %w: %q", ErrUnknownProfile, cfg.DefaultProfile)
		}
	}
	return cfg, nil
}

func profileOptions(name string, p profileFile, meta toml.MetaData) (gifenc.Options, error) {
	opts := gifenc.DefaultOptions()
	defined := func(key string) bool {
		return meta.IsDefined("profiles", name, key)
	}

	if defined("delay") {
		opts.Delay = p.Delay
	}
	if defined("repeat") {
		opts.Repeat = p.Repeat
	}
	if defined("quality") {
		opts.Quality = p.Quality
	}
	if defined("colors") {
		opts.Colors = p.Colors
	}
	if defined("disposal") {
		opts.Disposal = gifenc.Disposal(p.Disposal)
	}
	if defined("width") {
		opts.Width = p.Width
	}
	if defined("height") {
		opts.Height = p.Height
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if defined("background") {
		c, err := parseColor("background", p.Background)
		if err != nil {
			return opts, err
		}
		opts.Background = c
	}
	if defined("transparent") {
		c, err := parseColor("transparent", p.Transparent)
		if err != nil {
			return opts, err
		}
		opts.Transparent = c
	}
	if defined("transparent_exact") {
		opts.TransparentExact = p.TransparentExact
	}
	if defined("reuse_global_table") {
		opts.ReuseGlobalTable = p.ReuseGlobalTable
	}
	return opts, nil
}

func parseColor(key, s string) (*color.RGBA, error) {
	c, err := imaging.ParseHexColor(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &c, nil
}
