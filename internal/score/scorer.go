package score

import (
	"math"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Scorer turns alignment evidence into calibrated claim confidence and rolls
// claims up into response-level scores
type Scorer struct {
	cfg model.ScorerConfig
}

// NewScorer creates a new scorer
func NewScorer(cfg model.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// ScoreClaims returns a copy of claims with ConfidenceScore recomputed
// from each claim's sources
func (s *Scorer) ScoreClaims(claims []model.Claim) []model.Claim {
	out := make([]model.Claim, len(claims))
	for i, c := range claims {
		c.ConfidenceScore = s.Confidence(c)
		out[i] = c
	}
	return out
}

// Confidence scores one claim. Claims without sources get the unsupported
// floor; supported claims never score below it.
func (s *Scorer) Confidence(claim model.Claim) float64 {
	if len(claim.Sources) == 0 {
		return clamp(s.cfg.UnsupportedClaimScore)
	}

	best := 0
	for i, src := range claim.Sources {
		if src.AlignmentScore > claim.Sources[best].AlignmentScore {
			best = i
		}
	}
	base := s.calibrate(clamp(claim.Sources[best].AlignmentScore), claim.Type)

	conf := base + (1-base)*s.corroboration(claim.Sources, best)

	if p, ok := s.cfg.Platt[string(claim.Type)]; ok {
		conf = sigmoid(p.A*conf + p.B)
	}
	return clamp(math.Max(conf, s.cfg.UnsupportedClaimScore))
}

// calibrate bends scores below the threshold down with a type-specific
// exponent. The curve meets the identity at the threshold, so it is
// continuous and monotone.
func (s *Scorer) calibrate(score float64, t model.ClaimType) float64 {
	thr := s.cfg.CalibrationThreshold
	if thr <= 0 || score >= thr {
		return score
	}
	gamma := s.cfg.Steepness.For(t)
	if gamma <= 0 {
		gamma = 1
	}
	return thr * math.Pow(score/thr, gamma)
}

// corroboration is the saturating bonus from sources in other documents.
// Each further document counts decay times the one before it.
func (s *Scorer) corroboration(sources []model.SourceMatch, best int) float64 {
	if s.cfg.CorroborationBonus <= 0 {
		return 0
	}
	seen := map[string]bool{sources[best].DocumentID: true}
	weight, sum := 1.0, 0.0
	for i, src := range sources {
		if i == best || seen[src.DocumentID] {
			continue
		}
		seen[src.DocumentID] = true
		sum += clamp(src.AlignmentScore) * weight
		weight *= s.cfg.CorroborationDecay
	}
	return s.cfg.CorroborationBonus * (1 - math.Exp(-s.cfg.CorroborationRate*sum))
}

// Aggregate returns the length-weighted mean confidence and the weighted
// share of claims without support. No claims means nothing to contradict.
func (s *Scorer) Aggregate(claims []model.Claim) (confidence, hallucination float64) {
	var total, conf, supported float64
	for i := range claims {
		w := claims[i].Weight()
		total += w
		conf += w * claims[i].ConfidenceScore
		if claims[i].HasSource {
			supported += w
		}
	}
	if total == 0 {
		return 1, 0
	}
	return clamp(conf / total), clamp(1 - supported/total)
}

// sigmoid is 1/(1+e^-z) without overflow for large |z|
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
