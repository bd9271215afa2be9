// Package config loads the application configuration from defaults, an
// optional YAML file, GROUNDCHECK_* environment variables and --set overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/fetch"
	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "GROUNDCHECK"

// Config is the full application configuration. The verification sections
// sit at the top level next to the ambient ones.
type Config struct {
	model.Config `yaml:",inline" mapstructure:",squash"`

	Log   LogConfig    `yaml:"log" mapstructure:"log"`
	LLM   llm.Config   `yaml:"llm" mapstructure:"llm"`
	Cache cache.Config `yaml:"cache" mapstructure:"cache"`
	Fetch fetch.Config `yaml:"fetch" mapstructure:"fetch"`
	Store StoreConfig  `yaml:"store" mapstructure:"store"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// StoreConfig configures the document store
type StoreConfig struct {
	DB                string        `yaml:"db,omitempty" mapstructure:"db"` // SQLite file; empty keeps chunks in memory
	CandidateCacheTTL time.Duration `yaml:"candidate_cache_ttl" mapstructure:"candidate_cache_ttl"`
}

// Options selects the sources Load reads
type Options struct {
	File      string   // Explicit config file; must exist when set
	Overrides []string // section.key=value
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Config: model.DefaultConfig(),
		Log:    LogConfig{Level: "warn", Format: "console"},
		LLM:    llm.DefaultConfig(),
		Cache: cache.Config{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Fetch: fetch.DefaultConfig(),
		Store: StoreConfig{CandidateCacheTTL: 10 * time.Minute},
	}
}

// keys that carry no default value but still accept environment overrides
var envOnlyKeys = []string{
	"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy", "llm.no_proxy",
	"cache.disk_dir",
	"fetch.http_proxy", "fetch.https_proxy", "fetch.no_proxy",
	"store.db",
}

// Load reads configuration with precedence overrides > env > file > defaults.
// Unknown keys in any layer are rejected.
func Load(opts Options) (*Config, string, error) {
	v := viper.New()

	// Defaults
	if err := setDefaults(v, Default()); err != nil {
		return nil, "", err
	}

	// Environment
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, "", model.E(model.KindConfig, "config.env", eris.Wrapf(err, "config: bind %s", key))
		}
	}

	// Config file (optional unless named)
	file := opts.File
	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", model.E(model.KindConfig, "config.read", eris.Wrapf(err, "config: read %s", file))
		}
	}

	// Overrides
	for _, o := range opts.Overrides {
		key, value, ok := strings.Cut(o, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, "", model.Configf("config.set", "override %q must look like section.key=value", o)
		}
		v.Set(key, strings.TrimSpace(value))
	}

	cfg := Config{}
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, "", model.E(model.KindConfig, "config.unmarshal", eris.Wrap(err, "config: unmarshal"))
	}
	llm.ApplyEnv(&cfg.LLM)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, file, nil
}

// findConfigFile returns ./groundcheck.yaml or $HOME/.groundcheck/config.yaml,
// whichever exists first
func findConfigFile() string {
	candidates := []string{"groundcheck.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, DefaultPath(home))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// DefaultPath is where config init writes the file
func DefaultPath(home string) string {
	return filepath.Join(home, ".groundcheck", "config.yaml")
}

// setDefaults registers every leaf of cfg as a viper default
func setDefaults(v *viper.Viper, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return model.E(model.KindConfig, "config.defaults", eris.Wrap(err, "config: marshal defaults"))
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return model.E(model.KindConfig, "config.defaults", eris.Wrap(err, "config: decode defaults"))
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, tree map[string]any, set func(string, any)) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}

// Validate checks the verification sections and the ambient ones
func (c Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	var problems []string
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, fmt.Sprintf("log.level %q is not a log level", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		problems = append(problems, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}
	if !llm.Known(c.LLM.Provider) {
		problems = append(problems, fmt.Sprintf("llm.provider %q not in (%s)", c.LLM.Provider, strings.Join(llm.Providers(), ", ")))
	}
	if c.Fetch.MaxBytes <= 0 {
		problems = append(problems, "fetch.max_bytes must be positive")
	}
	if c.Fetch.RequestsPerSecond < 0 || c.Fetch.Burst < 0 {
		problems = append(problems, "fetch.requests_per_second and fetch.burst must be non-negative")
	}
	if c.Store.CandidateCacheTTL < 0 {
		problems = append(problems, "store.candidate_cache_ttl must be non-negative")
	}
	if len(problems) > 0 {
		return model.Configf("config.validate", "%s", strings.Join(problems, "; "))
	}
	return nil
}

// Marshal renders cfg as YAML
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "config: marshal")
	}
	return data, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
