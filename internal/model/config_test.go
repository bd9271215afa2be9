package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigFromMap_Overrides(t *testing.T) {
	cfg, err := ConfigFromMap(map[string]any{
		"mapper": map[string]any{
			"min_alignment_score": 0.7,
			"query_timeout":       "250ms",
		},
		"scorer": map[string]any{
			"steepness": map[string]any{"numeric": 3},
			"platt":     map[string]any{"numeric": map[string]any{"a": 6, "b": -3}},
		},
		"intervention": map[string]any{"strategy": "aggressive"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.Mapper.MinAlignmentScore)
	assert.Equal(t, 250*time.Millisecond, cfg.Mapper.QueryTimeout)
	assert.Equal(t, 3.0, cfg.Scorer.Steepness.Numeric)
	assert.Equal(t, 1.5, cfg.Scorer.Steepness.Temporal, "untouched keys keep defaults")
	assert.Equal(t, PlattParams{A: 6, B: -3}, cfg.Scorer.Platt["numeric"])
	assert.Equal(t, "aggressive", cfg.Intervention.Strategy)
	assert.Equal(t, 3, cfg.Mapper.MaxSourcesPerClaim)
}

func TestConfigFromMap_RejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"unknown section", map[string]any{"retriever": map[string]any{"k": 1}}},
		{"unknown option", map[string]any{"mapper": map[string]any{"min_alignment": 0.5}}},
		{"unknown nested option", map[string]any{"scorer": map[string]any{"steepness": map[string]any{"opinion": 2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFromMap(tt.in)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfig), "got %v", err)
		})
	}
}

func TestConfigValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min alignment", func(c *Config) { c.Mapper.MinAlignmentScore = -0.1 }},
		{"zero sources", func(c *Config) { c.Mapper.MaxSourcesPerClaim = 0 }},
		{"zero concurrency", func(c *Config) { c.Mapper.Concurrency = 0 }},
		{"zero timeout", func(c *Config) { c.Mapper.QueryTimeout = 0 }},
		{"unsupported score of one", func(c *Config) { c.Scorer.UnsupportedClaimScore = 1 }},
		{"flattening steepness", func(c *Config) { c.Scorer.Steepness.Quotation = 0.5 }},
		{"decreasing platt", func(c *Config) { c.Scorer.Platt = map[string]PlattParams{"numeric": {A: -1}} }},
		{"platt unknown type", func(c *Config) { c.Scorer.Platt = map[string]PlattParams{"opinion": {A: 1}} }},
		{"unknown strategy", func(c *Config) { c.Intervention.Strategy = "yolo" }},
		{"inverted profile", func(c *Config) {
			c.Intervention.Profiles = map[string]ProfileThresholds{"balanced": {Pass: Threshold(0.3), Flag: Threshold(0.6)}}
		}},
		{"profile pass above one", func(c *Config) {
			c.Intervention.Profiles = map[string]ProfileThresholds{"aggressive": {Pass: Threshold(1.5)}}
		}},
		{"empty marker", func(c *Config) { c.Intervention.UncertaintyMarker = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, IsKind(err, KindConfig))
		})
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("conservative")
	require.NoError(t, err)
	assert.Equal(t, StrategyConservative, s)

	_, err = ParseStrategy("Balanced")
	assert.True(t, IsKind(err, KindConfig))
}
