package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Strategy names a correction profile
type Strategy string

const (
	StrategyConservative Strategy = "conservative" // Annotate in place, never rewrite
	StrategyBalanced     Strategy = "balanced"     // Flag mid-confidence, rewrite low-confidence
	StrategyAggressive   Strategy = "aggressive"   // Rewrite anything not clearly supported
)

// Strategies lists the recognized correction profiles
var Strategies = []Strategy{StrategyConservative, StrategyBalanced, StrategyAggressive}

// ParseStrategy returns the named strategy or a config error
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Configf("strategy.parse", "unknown strategy %q (supported: conservative, balanced, aggressive)", s)
}

// Config is the verification configuration with its four recognized sections
type Config struct {
	Extractor    ExtractorConfig    `json:"extractor" yaml:"extractor" mapstructure:"extractor"`
	Mapper       MapperConfig       `json:"mapper" yaml:"mapper" mapstructure:"mapper"`
	Scorer       ScorerConfig       `json:"scorer" yaml:"scorer" mapstructure:"scorer"`
	Intervention InterventionConfig `json:"intervention" yaml:"intervention" mapstructure:"intervention"`
}

// ExtractorConfig controls segmentation and claim filtering
type ExtractorConfig struct {
	MinClaimLength  int  `json:"min_claim_length" yaml:"min_claim_length" mapstructure:"min_claim_length"`    // Runes
	MaxClaimLength  int  `json:"max_claim_length" yaml:"max_claim_length" mapstructure:"max_claim_length"`    // Runes
	SplitClauses    bool `json:"split_clauses" yaml:"split_clauses" mapstructure:"split_clauses"`             // Split on ";" and contrastive connectives
	MinClauseWords  int  `json:"min_clause_words" yaml:"min_clause_words" mapstructure:"min_clause_words"`    // Words each side needs to split
	SkipFirstPerson bool `json:"skip_first_person" yaml:"skip_first_person" mapstructure:"skip_first_person"` // Drop "I think..." opinions
}

// MapperConfig controls candidate retrieval and alignment scoring
type MapperConfig struct {
	MinAlignmentScore   float64       `json:"min_alignment_score" yaml:"min_alignment_score" mapstructure:"min_alignment_score"`
	MaxSourcesPerClaim  int           `json:"max_sources_per_claim" yaml:"max_sources_per_claim" mapstructure:"max_sources_per_claim"`
	MaxCandidates       int           `json:"max_candidates" yaml:"max_candidates" mapstructure:"max_candidates"`
	LexicalWeight       float64       `json:"lexical_weight" yaml:"lexical_weight" mapstructure:"lexical_weight"`
	EntityWeight        float64       `json:"entity_weight" yaml:"entity_weight" mapstructure:"entity_weight"`
	NumericWeight       float64       `json:"numeric_weight" yaml:"numeric_weight" mapstructure:"numeric_weight"`
	NumericTolerance    float64       `json:"numeric_tolerance" yaml:"numeric_tolerance" mapstructure:"numeric_tolerance"` // Relative
	QuoteMismatchFactor float64       `json:"quote_mismatch_factor" yaml:"quote_mismatch_factor" mapstructure:"quote_mismatch_factor"`
	MaxExcerptLength    int           `json:"max_excerpt_length" yaml:"max_excerpt_length" mapstructure:"max_excerpt_length"` // Bytes
	GateTemporal        bool          `json:"gate_temporal" yaml:"gate_temporal" mapstructure:"gate_temporal"`                // Require matching years for temporal claims
	Concurrency         int           `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
	QueryTimeout        time.Duration `json:"query_timeout" yaml:"query_timeout" mapstructure:"query_timeout"`
}

// TypeSteepness is the calibration exponent per claim type
type TypeSteepness struct {
	Numeric        float64 `json:"numeric" yaml:"numeric" mapstructure:"numeric"`
	EntityRelation float64 `json:"entity_relation" yaml:"entity_relation" mapstructure:"entity_relation"`
	Temporal       float64 `json:"temporal" yaml:"temporal" mapstructure:"temporal"`
	Quotation      float64 `json:"quotation" yaml:"quotation" mapstructure:"quotation"`
	General        float64 `json:"general_assertion" yaml:"general_assertion" mapstructure:"general_assertion"`
}

// For returns the exponent for the claim type
func (s TypeSteepness) For(t ClaimType) float64 {
	switch t {
	case ClaimNumeric:
		return s.Numeric
	case ClaimEntityRelation:
		return s.EntityRelation
	case ClaimTemporal:
		return s.Temporal
	case ClaimQuotation:
		return s.Quotation
	default:
		return s.General
	}
}

// PlattParams are logistic calibration coefficients: 1/(1+exp(-(A*s+B)))
type PlattParams struct {
	A float64 `json:"a" yaml:"a" mapstructure:"a"`
	B float64 `json:"b" yaml:"b" mapstructure:"b"`
}

// ScorerConfig controls confidence calibration
type ScorerConfig struct {
	UnsupportedClaimScore float64                `json:"unsupported_claim_score" yaml:"unsupported_claim_score" mapstructure:"unsupported_claim_score"`
	CalibrationThreshold  float64                `json:"calibration_threshold" yaml:"calibration_threshold" mapstructure:"calibration_threshold"`
	Steepness             TypeSteepness          `json:"steepness" yaml:"steepness" mapstructure:"steepness"`
	CorroborationBonus    float64                `json:"corroboration_bonus" yaml:"corroboration_bonus" mapstructure:"corroboration_bonus"` // Max share of the remaining gap to 1
	CorroborationRate     float64                `json:"corroboration_rate" yaml:"corroboration_rate" mapstructure:"corroboration_rate"`
	CorroborationDecay    float64                `json:"corroboration_decay" yaml:"corroboration_decay" mapstructure:"corroboration_decay"` // Weight ratio between successive sources
	Platt                 map[string]PlattParams `json:"platt,omitempty" yaml:"platt,omitempty" mapstructure:"platt"`                        // Optional, keyed by claim type
}

// ProfileThresholds overrides the pass and flag bands for one strategy.
// A nil field keeps the strategy's default.
type ProfileThresholds struct {
	Pass *float64 `json:"pass,omitempty" yaml:"pass,omitempty" mapstructure:"pass"`
	Flag *float64 `json:"flag,omitempty" yaml:"flag,omitempty" mapstructure:"flag"`
}

// Threshold returns a pointer to v for ProfileThresholds literals
func Threshold(v float64) *float64 {
	return &v
}

// InterventionConfig controls strategy selection and correction text
type InterventionConfig struct {
	Strategy               string                       `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	HallucinationThreshold float64                      `json:"hallucination_threshold" yaml:"hallucination_threshold" mapstructure:"hallucination_threshold"`
	UncertaintyMarker      string                       `json:"uncertainty_marker" yaml:"uncertainty_marker" mapstructure:"uncertainty_marker"`
	HedgePhrase            string                       `json:"hedge_phrase" yaml:"hedge_phrase" mapstructure:"hedge_phrase"`
	ExciseUnsupported      bool                         `json:"excise_unsupported" yaml:"excise_unsupported" mapstructure:"excise_unsupported"`
	Profiles               map[string]ProfileThresholds `json:"profiles,omitempty" yaml:"profiles,omitempty" mapstructure:"profiles"` // Threshold overrides
}

// DefaultConfig returns the tuned defaults
func DefaultConfig() Config {
	return Config{
		Extractor: ExtractorConfig{
			MinClaimLength:  8,
			MaxClaimLength:  1000,
			SplitClauses:    true,
			MinClauseWords:  3,
			SkipFirstPerson: true,
		},
		Mapper: MapperConfig{
			MinAlignmentScore:   0.6,
			MaxSourcesPerClaim:  3,
			MaxCandidates:       10,
			LexicalWeight:       0.4,
			EntityWeight:        0.6,
			NumericWeight:       0.3,
			NumericTolerance:    0.01,
			QuoteMismatchFactor: 0.5,
			MaxExcerptLength:    400,
			GateTemporal:        true,
			Concurrency:         4,
			QueryTimeout:        5 * time.Second,
		},
		Scorer: ScorerConfig{
			UnsupportedClaimScore: 0.05,
			CalibrationThreshold:  0.75,
			Steepness: TypeSteepness{
				Numeric:        2.0,
				EntityRelation: 1.25,
				Temporal:       1.5,
				Quotation:      2.0,
				General:        1.0,
			},
			CorroborationBonus: 0.5,
			CorroborationRate:  1.0,
			CorroborationDecay: 0.5,
		},
		Intervention: InterventionConfig{
			Strategy:               string(StrategyBalanced),
			HallucinationThreshold: 0.5,
			UncertaintyMarker:      "[unverified]",
			HedgePhrase:            "This statement could not be verified against the provided sources.",
		},
	}
}

// ConfigFromMap decodes a generic mapping over the defaults.
// Unknown keys in any section are rejected.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, E(KindConfig, "config.decode", err)
	}
	if err := dec.Decode(m); err != nil {
		return Config{}, E(KindConfig, "config.decode", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every option range. All problems are reported together.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	unit := func(v float64) bool { return v >= 0 && v <= 1 }

	e := c.Extractor
	check(e.MinClaimLength >= 1, "extractor.min_claim_length must be >= 1, got %d", e.MinClaimLength)
	check(e.MaxClaimLength > e.MinClaimLength, "extractor.max_claim_length must exceed min_claim_length, got %d", e.MaxClaimLength)
	check(e.MinClauseWords >= 1, "extractor.min_clause_words must be >= 1, got %d", e.MinClauseWords)

	m := c.Mapper
	check(m.MinAlignmentScore > 0 && m.MinAlignmentScore <= 1, "mapper.min_alignment_score must be in (0,1], got %v", m.MinAlignmentScore)
	check(m.MaxSourcesPerClaim >= 1, "mapper.max_sources_per_claim must be >= 1, got %d", m.MaxSourcesPerClaim)
	check(m.MaxCandidates >= 1, "mapper.max_candidates must be >= 1, got %d", m.MaxCandidates)
	check(m.LexicalWeight >= 0 && m.EntityWeight >= 0 && m.NumericWeight >= 0, "mapper weights must be non-negative")
	check(m.LexicalWeight+m.EntityWeight > 0, "mapper.lexical_weight + mapper.entity_weight must be positive")
	check(m.NumericTolerance >= 0 && m.NumericTolerance < 1, "mapper.numeric_tolerance must be in [0,1), got %v", m.NumericTolerance)
	check(unit(m.QuoteMismatchFactor), "mapper.quote_mismatch_factor must be in [0,1], got %v", m.QuoteMismatchFactor)
	check(m.MaxExcerptLength >= 1, "mapper.max_excerpt_length must be >= 1, got %d", m.MaxExcerptLength)
	check(m.Concurrency >= 1, "mapper.concurrency must be >= 1, got %d", m.Concurrency)
	check(m.QueryTimeout > 0, "mapper.query_timeout must be positive, got %v", m.QueryTimeout)

	s := c.Scorer
	check(s.UnsupportedClaimScore >= 0 && s.UnsupportedClaimScore < 1, "scorer.unsupported_claim_score must be in [0,1), got %v", s.UnsupportedClaimScore)
	check(s.CalibrationThreshold > 0 && s.CalibrationThreshold <= 1, "scorer.calibration_threshold must be in (0,1], got %v", s.CalibrationThreshold)
	for _, t := range ClaimTypes {
		check(s.Steepness.For(t) >= 1, "scorer.steepness.%s must be >= 1, got %v", t, s.Steepness.For(t))
	}
	check(unit(s.CorroborationBonus), "scorer.corroboration_bonus must be in [0,1], got %v", s.CorroborationBonus)
	check(s.CorroborationRate > 0, "scorer.corroboration_rate must be positive, got %v", s.CorroborationRate)
	check(s.CorroborationDecay > 0 && s.CorroborationDecay <= 1, "scorer.corroboration_decay must be in (0,1], got %v", s.CorroborationDecay)
	for name, p := range s.Platt {
		_, err := ParseClaimType(name)
		check(err == nil, "scorer.platt: unknown claim type %q", name)
		check(p.A > 0, "scorer.platt.%s.a must be positive to keep calibration monotonic, got %v", name, p.A)
	}

	iv := c.Intervention
	_, err := ParseStrategy(iv.Strategy)
	check(err == nil, "intervention.strategy %q not in (conservative, balanced, aggressive)", iv.Strategy)
	check(unit(iv.HallucinationThreshold), "intervention.hallucination_threshold must be in [0,1], got %v", iv.HallucinationThreshold)
	check(strings.TrimSpace(iv.UncertaintyMarker) != "", "intervention.uncertainty_marker must not be empty")
	check(strings.TrimSpace(iv.HedgePhrase) != "", "intervention.hedge_phrase must not be empty")
	for name, p := range iv.Profiles {
		_, err := ParseStrategy(name)
		check(err == nil, "intervention.profiles: unknown strategy %q", name)
		check(p.Pass == nil || unit(*p.Pass), "intervention.profiles.%s.pass must be in [0,1]", name)
		check(p.Flag == nil || unit(*p.Flag), "intervention.profiles.%s.flag must be in [0,1]", name)
		check(p.Pass == nil || p.Flag == nil || *p.Flag <= *p.Pass, "intervention.profiles.%s needs flag <= pass", name)
	}

	if len(problems) > 0 {
		return Configf("config.validate", "%s", strings.Join(problems, "; "))
	}
	return nil
}
