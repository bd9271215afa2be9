package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/groundcheck/internal/model"
)

// isolate keeps the user's real config files out of the test
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, file, err := Load(Options{})
	require.NoError(t, err)
	assert.Empty(t, file)

	assert.Equal(t, model.DefaultConfig(), cfg.Config)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.MemoryTTL)
	assert.Equal(t, 10*time.Minute, cfg.Store.CandidateCacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Mapper.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
	assert.True(t, cfg.Fetch.RespectRobots)
}

func TestLoadFromYAML(t *testing.T) {
	dir := isolate(t)
	content := `
mapper:
  min_alignment_score: 0.7
  query_timeout: 2s
intervention:
  strategy: aggressive
  profiles:
    aggressive:
      pass: 0.9
      flag: 0.5
scorer:
  platt:
    numeric: {a: 4, b: -2}
log:
  level: debug
  format: json
store:
  db: chunks.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "groundcheck.yaml"), []byte(content), 0o644))

	cfg, file, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "groundcheck.yaml", file)
	assert.Equal(t, 0.7, cfg.Mapper.MinAlignmentScore)
	assert.Equal(t, 2*time.Second, cfg.Mapper.QueryTimeout)
	assert.Equal(t, 10, cfg.Mapper.MaxCandidates, "untouched keys keep defaults")
	assert.Equal(t, "aggressive", cfg.Intervention.Strategy)
	assert.Equal(t, model.ProfileThresholds{Pass: model.Threshold(0.9), Flag: model.Threshold(0.5)}, cfg.Intervention.Profiles["aggressive"])
	assert.Equal(t, model.PlattParams{A: 4, B: -2}, cfg.Scorer.Platt["numeric"])
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "chunks.db", cfg.Store.DB)
}

func TestLoad_HomeConfig(t *testing.T) {
	dir := isolate(t)
	path := DefaultPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("extractor:\n  min_claim_length: 12\n"), 0o644))

	cfg, file, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, path, file)
	assert.Equal(t, 12, cfg.Extractor.MinClaimLength)
}

func TestLoad_UnknownKey(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mapper:\n  min_alignment: 0.7\n"), 0o644))

	_, _, err := Load(Options{File: path})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConfig))

	_, _, err = Load(Options{Overrides: []string{"bogus.key=1"}})
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, _, err := Load(Options{File: filepath.Join(dir, "nope.yaml")})
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestLoad_EnvAndOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("GROUNDCHECK_MAPPER_MAX_CANDIDATES", "25")
	t.Setenv("GROUNDCHECK_LLM_API_KEY", "from-env")
	t.Setenv("GROUNDCHECK_INTERVENTION_STRATEGY", "conservative")

	cfg, _, err := Load(Options{Overrides: []string{
		"intervention.strategy=aggressive",
		"extractor.split_clauses=false",
		"scorer.calibration_threshold = 0.8",
	}})
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Mapper.MaxCandidates)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, "aggressive", cfg.Intervention.Strategy, "overrides beat env")
	assert.False(t, cfg.Extractor.SplitClauses)
	assert.Equal(t, 0.8, cfg.Scorer.CalibrationThreshold)

	_, _, err = Load(Options{Overrides: []string{"no-equals-sign"}})
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestLoad_ProviderEnvFallback(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, _, err := Load(Options{Overrides: []string{"llm.provider=openai"}})
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"strategy", func(c *Config) { c.Intervention.Strategy = "reckless" }},
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
		{"provider", func(c *Config) { c.LLM.Provider = "mystery" }},
		{"max bytes", func(c *Config) { c.Fetch.MaxBytes = 0 }},
		{"cache ttl", func(c *Config) { c.Store.CandidateCacheTTL = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.True(t, model.IsKind(cfg.Validate(), model.KindConfig))
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "query_timeout: 5s")

	var tree map[string]any
	require.NoError(t, yaml.Unmarshal(data, &tree))
	for _, section := range []string{"extractor", "mapper", "scorer", "intervention", "log", "llm", "cache", "fetch", "store"} {
		assert.Contains(t, tree, section)
	}

	dir := isolate(t)
	path := filepath.Join(dir, "written.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	cfg, _, err := Load(Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, Default().Config, cfg.Config)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "nope"}))
}
