package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gonkalabs/codeblur/internal/registry"
	"github.com/gonkalabs/codeblur/internal/store"
)

// DefaultFile is the optional YAML configuration read from the working
// directory.
const DefaultFile = "codeblur.yaml"

// LogCfg configures logging.
type LogCfg struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`   // rotate into this file instead of stderr
}

// Cfg holds all runtime configuration.
type Cfg struct {
	// Engine
	Style                 string `yaml:"style"`
	NumberThreshold       int    `yaml:"number_threshold"`
	FullStringObfuscation bool   `yaml:"full_strings"`
	Dictionary            string `yaml:"dictionary"` // extra word file, one word per line

	// CLI state file
	StatePath string `yaml:"state"`

	Log LogCfg `yaml:"log"`

	// Server
	ListenAddr string `yaml:"listen"` // e.g. :8080
}

// Default returns the built-in configuration.
func Default() *Cfg {
	return &Cfg{
		Style:           registry.DefaultStyle,
		NumberThreshold: 4,
		StatePath:       store.DefaultPath,
		Log:             LogCfg{Level: "info", Format: "text"},
		ListenAddr:      ":8080",
	}
}

// Load reads .env (if present), then the YAML file at path, then
// environment variables, each layer overriding the one before. An empty
// path means DefaultFile, which may be absent; an explicit path must exist.
func Load(path string) (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Cfg) applyEnv() error {
	if v := env("CODEBLUR_STYLE"); v != "" {
		c.Style = v
	}
	if v := env("CODEBLUR_NUMBER_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: CODEBLUR_NUMBER_THRESHOLD: %w", err)
		}
		c.NumberThreshold = n
	}
	if v := env("CODEBLUR_FULL_STRINGS"); v != "" {
		c.FullStringObfuscation = v == "1" || strings.EqualFold(v, "true")
	}
	if v := env("CODEBLUR_DICTIONARY"); v != "" {
		c.Dictionary = v
	}
	if v := env("CODEBLUR_STATE"); v != "" {
		c.StatePath = v
	}
	if v := env("CODEBLUR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := env("CODEBLUR_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := env("CODEBLUR_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if port := env("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	return nil
}

// Validate checks values that have a fixed domain.
func (c *Cfg) Validate() error {
	if _, ok := registry.LookupStyle(c.Style); !ok {
		return fmt.Errorf("config: unknown style %q (have %s)", c.Style, strings.Join(registry.StyleNames(), ", "))
	}
	if c.NumberThreshold < 0 {
		return fmt.Errorf("config: number threshold must be >= 0, got %d", c.NumberThreshold)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
