// Package pipeline runs the verification stages end to end.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/extract"
	"github.com/ppiankov/groundcheck/internal/intervene"
	"github.com/ppiankov/groundcheck/internal/mapping"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/score"
)

// Processor orchestrates extraction, source mapping, scoring and
// intervention selection for one response at a time
type Processor struct {
	cfg       model.Config
	analyzer  analysis.Analyzer
	extractor *extract.ClaimExtractor
	mapper    *mapping.SourceMapper
	scorer    *score.Scorer
	selector  *intervene.Selector
	corrector *intervene.Corrector
}

// Option configures a Processor
type Option func(*Processor)

// WithAnalyzer replaces the rule-based analyzer
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(p *Processor) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// NewProcessor validates cfg and builds the stages. Configuration
// problems, including an unknown strategy, fail here.
func NewProcessor(cfg model.Config, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Processor{cfg: cfg, analyzer: analysis.NewPattern()}
	for _, opt := range opts {
		opt(p)
	}

	selector, err := intervene.NewSelector(cfg.Intervention)
	if err != nil {
		return nil, err
	}
	p.extractor = extract.NewClaimExtractor(cfg.Extractor, p.analyzer)
	p.mapper = mapping.NewSourceMapper(cfg.Mapper, p.analyzer)
	p.scorer = score.NewScorer(cfg.Scorer)
	p.selector = selector
	p.corrector = intervene.NewCorrector(cfg.Intervention)
	return p, nil
}

// Config returns the configuration in effect
func (p *Processor) Config() model.Config {
	return p.cfg
}

// Verify checks every claim in text against store. Stages run in order
// over the full claim set. Evidence gaps are reported in the result, never
// as errors.
func (p *Processor) Verify(ctx context.Context, text string, store model.DocumentStore) (*model.VerificationResult, error) {
	if store == nil {
		return nil, model.Inputf("verify", "nil document store")
	}
	if !utf8.ValidString(text) {
		return nil, model.Inputf("verify", "response is not valid UTF-8")
	}
	if strings.IndexByte(text, 0) >= 0 {
		return nil, model.Inputf("verify", "response contains NUL bytes")
	}

	start := time.Now()
	profile := p.selector.Profile()

	// 1. Extract claims
	claims, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	zap.L().Debug("verify: claims extracted", zap.Int("claims", len(claims)))

	// 2. Map claims to sources
	if len(claims) > 0 {
		claims, err = p.mapper.Map(ctx, claims, store)
		if err != nil {
			return nil, fmt.Errorf("map sources: %w", err)
		}
	}

	// 3. Score claims and aggregate
	claims = p.scorer.ScoreClaims(claims)
	confidence, hallucination := p.scorer.Aggregate(claims)

	// 4. Decide interventions
	result := &model.VerificationResult{
		Claims:             claims,
		ConfidenceScore:    confidence,
		HallucinationScore: hallucination,
		ResponseText:       text,
		DocumentStoreRef:   model.StoreRef(store),
		Strategy:           string(profile.Strategy),
		Flagged:            hallucination > p.cfg.Intervention.HallucinationThreshold,
		Interventions:      p.selector.SelectAll(claims),
		Signals:            p.scorer.Signals(claims, confidence, profile.Pass),
	}

	zap.L().Info("verify: done",
		zap.Int("claims", len(claims)),
		zap.Int("supported", result.Supported()),
		zap.Float64("confidence", confidence),
		zap.Float64("hallucination", hallucination),
		zap.Bool("flagged", result.Flagged),
		zap.String("store", result.DocumentStoreRef),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Correct rewrites the response of result under strategy. An empty
// strategy uses the one the result was verified with.
func (p *Processor) Correct(result *model.VerificationResult, strategy string) (string, error) {
	if strategy == "" && result != nil {
		strategy = result.Strategy
	}
	if strategy == "" {
		strategy = p.cfg.Intervention.Strategy
	}
	return p.corrector.Correct(result, strategy)
}

// Analyze summarizes patterns across many results
func (p *Processor) Analyze(results []*model.VerificationResult) score.Summary {
	return score.Analyze(results)
}
