package score

import "github.com/ppiankov/groundcheck/internal/model"

// Summary describes patterns across many verification results
type Summary struct {
	Results              int                     `json:"results" yaml:"results"`
	Claims               int                     `json:"claims" yaml:"claims"`
	Supported            int                     `json:"supported" yaml:"supported"`
	Flagged              int                     `json:"flagged" yaml:"flagged"` // Results above the hallucination threshold
	AverageConfidence    float64                 `json:"average_confidence" yaml:"average_confidence"`
	AverageHallucination float64                 `json:"average_hallucination" yaml:"average_hallucination"`
	HallucinationRate    float64                 `json:"hallucination_rate" yaml:"hallucination_rate"` // Share of claims scoring below 0.5
	ByType               map[model.ClaimType]int `json:"by_type" yaml:"by_type"`
	ByAction             map[model.Action]int    `json:"by_action" yaml:"by_action"`
	UnsupportedByType    map[model.ClaimType]int `json:"unsupported_by_type" yaml:"unsupported_by_type"`
}

// Analyze summarizes a set of results. An empty set yields zero averages.
func Analyze(results []*model.VerificationResult) Summary {
	sum := Summary{
		ByType:            map[model.ClaimType]int{},
		ByAction:          map[model.Action]int{},
		UnsupportedByType: map[model.ClaimType]int{},
	}
	low := 0
	for _, r := range results {
		if r == nil {
			continue
		}
		sum.Results++
		sum.AverageConfidence += r.ConfidenceScore
		sum.AverageHallucination += r.HallucinationScore
		if r.Flagged {
			sum.Flagged++
		}
		for _, c := range r.Claims {
			sum.Claims++
			sum.ByType[c.Type]++
			if c.HasSource {
				sum.Supported++
			} else {
				sum.UnsupportedByType[c.Type]++
			}
			if c.ConfidenceScore < 0.5 {
				low++
			}
		}
		for _, iv := range r.Interventions {
			sum.ByAction[iv.Action]++
		}
	}
	if sum.Results > 0 {
		sum.AverageConfidence /= float64(sum.Results)
		sum.AverageHallucination /= float64(sum.Results)
	}
	if sum.Claims > 0 {
		sum.HallucinationRate = float64(low) / float64(sum.Claims)
	}
	return sum
}
