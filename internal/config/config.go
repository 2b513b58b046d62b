package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Engine    EngineConfig    `yaml:"engine" toml:"engine"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Scripting ScriptingConfig `yaml:"scripting" toml:"scripting"`
}

type EngineConfig struct {
	Name     string   `yaml:"name" toml:"name" validate:"required"`
	Services []string `yaml:"services" toml:"services" validate:"dive,required"`
	// Place is an optional place file loaded into the tree at startup.
	Place string `yaml:"place" toml:"place"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" validate:"oneof=trace debug info warn warning error silent off none"`
	Format string `yaml:"format" toml:"format" validate:"oneof=json console"` // "json" or "console"
}

type ScriptingConfig struct {
	Enabled       bool          `yaml:"enabled" toml:"enabled"`
	MaxConcurrent int           `yaml:"max_concurrent" toml:"max_concurrent" validate:"gte=1,lte=1024"`
	CallStackSize int           `yaml:"call_stack_size" toml:"call_stack_size" validate:"gte=64"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"` // per script, 0 = none
}

var validate = validator.New()

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over Defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse config %s: unknown key %s", path, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:     "scenecore",
			Services: []string{"Workspace", "Lighting", "Players"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripting: ScriptingConfig{
			Enabled:       true,
			MaxConcurrent: 64,
			CallStackSize: 256,
			Timeout:       30 * time.Second,
		},
	}
}
