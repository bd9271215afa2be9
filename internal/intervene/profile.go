// Package intervene decides what to do with each scored claim and rewrites
// the response accordingly.
package intervene

import (
	"github.com/ppiankov/groundcheck/internal/model"
)

// Profile places the confidence bands for one strategy.
// Claims at or above Pass are left alone, claims at or above Flag are
// flagged, the rest are rewritten.
type Profile struct {
	Strategy       model.Strategy `json:"strategy" yaml:"strategy"`
	Pass           float64        `json:"pass" yaml:"pass"`
	Flag           float64        `json:"flag" yaml:"flag"`
	RewriteFlagged bool           `json:"rewrite_flagged" yaml:"rewrite_flagged"` // Flag band is rewritten instead of annotated
	AnnotateOnly   bool           `json:"annotate_only" yaml:"annotate_only"`     // Never rewrite; annotate everything below Pass
}

var defaultProfiles = map[model.Strategy]Profile{
	model.StrategyConservative: {Strategy: model.StrategyConservative, Pass: 0.6, Flag: 0, AnnotateOnly: true},
	model.StrategyBalanced:     {Strategy: model.StrategyBalanced, Pass: 0.7, Flag: 0.3},
	model.StrategyAggressive:   {Strategy: model.StrategyAggressive, Pass: 0.8, Flag: 0.4, RewriteFlagged: true},
}

// ProfileFor resolves a strategy name with any threshold overrides from cfg.
// Only the thresholds an override sets replace the defaults. An unknown name
// is a configuration error.
func ProfileFor(cfg model.InterventionConfig, name string) (Profile, error) {
	st, err := model.ParseStrategy(name)
	if err != nil {
		return Profile{}, err
	}
	p := defaultProfiles[st]
	if o, ok := cfg.Profiles[name]; ok {
		if o.Pass != nil {
			p.Pass = *o.Pass
		}
		if o.Flag != nil {
			p.Flag = *o.Flag
		}
	}
	if p.Flag < 0 || p.Flag > p.Pass || p.Pass > 1 {
		return Profile{}, model.Configf("intervention.profile", "profile %s: need 0 <= flag <= pass <= 1, got flag=%.2f pass=%.2f", name, p.Flag, p.Pass)
	}
	return p, nil
}

// Band returns the action for a confidence value
func (p Profile) Band(confidence float64) model.Action {
	switch {
	case confidence >= p.Pass:
		return model.ActionPass
	case p.AnnotateOnly:
		return model.ActionFlag
	case confidence >= p.Flag && !p.RewriteFlagged:
		return model.ActionFlag
	default:
		return model.ActionRewrite
	}
}
