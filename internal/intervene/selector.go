package intervene

import (
	"fmt"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Selector maps claims to interventions under one profile
type Selector struct {
	cfg     model.InterventionConfig
	profile Profile
}

// NewSelector resolves the strategy named in cfg; unknown names fail here
func NewSelector(cfg model.InterventionConfig) (*Selector, error) {
	for name := range cfg.Profiles {
		if _, err := ProfileFor(cfg, name); err != nil {
			return nil, err
		}
	}
	return NewSelectorFor(cfg, cfg.Strategy)
}

// NewSelectorFor resolves an explicit strategy name against cfg
func NewSelectorFor(cfg model.InterventionConfig, strategy string) (*Selector, error) {
	p, err := ProfileFor(cfg, strategy)
	if err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg, profile: p}, nil
}

// Profile returns the profile in effect
func (s *Selector) Profile() Profile {
	return s.profile
}

// Select decides the intervention for one scored claim
func (s *Selector) Select(claim model.Claim) model.Intervention {
	iv := model.Intervention{
		ClaimID: claim.ID,
		Action:  s.profile.Band(claim.ConfidenceScore),
	}

	best := claim.BestSource()
	switch iv.Action {
	case model.ActionPass:
		iv.Confidence = clamp(claim.ConfidenceScore + 0.1)
		iv.Explanation = fmt.Sprintf("Supported by %d sources (confidence %.2f)", len(claim.Sources), claim.ConfidenceScore)

	case model.ActionFlag:
		iv.Confidence = 0.7
		if claim.ConfidenceScore > 0.2 && claim.ConfidenceScore < 0.6 {
			iv.Confidence = 0.9
		}
		iv.Explanation = fmt.Sprintf("Borderline confidence %.2f with %d partial sources", claim.ConfidenceScore, len(claim.Sources))

	case model.ActionRewrite:
		switch {
		case best != nil:
			iv.Replacement = best.TextExcerpt
			iv.Confidence = 0.6
			if best.AlignmentScore > 0.7 {
				iv.Confidence = 0.9
			}
			iv.Explanation = fmt.Sprintf("Low confidence %.2f; replaced with source excerpt from %s (alignment %.2f)", claim.ConfidenceScore, best.ChunkID, best.AlignmentScore)
		case s.cfg.ExciseUnsupported:
			iv.Confidence = 0.9
			iv.Explanation = fmt.Sprintf("Low confidence %.2f and no supporting sources; removed", claim.ConfidenceScore)
		default:
			iv.Replacement = s.cfg.HedgePhrase
			iv.Confidence = 0.7
			iv.Explanation = fmt.Sprintf("Low confidence %.2f and no supporting sources; hedged", claim.ConfidenceScore)
		}
	}
	return iv
}

// SelectAll returns one intervention per claim, in claim order
func (s *Selector) SelectAll(claims []model.Claim) []model.Intervention {
	out := make([]model.Intervention, len(claims))
	for i, c := range claims {
		out[i] = s.Select(c)
	}
	return out
}

func clamp(v float64) float64 {
	return min(1, max(0, v))
}
