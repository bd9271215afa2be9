package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Signals explains a scored claim set. passThreshold is the pass band of the
// strategy in effect; confidence below it raises a low-confidence signal.
func (s *Scorer) Signals(claims []model.Claim, confidence, passThreshold float64) []model.Signal {
	signals := []model.Signal{s.coverage(claims)}

	if sig, ok := numericMismatch(claims); ok {
		signals = append(signals, sig)
	}
	if sig, ok := singleSource(claims); ok {
		signals = append(signals, sig)
	}
	if sig, ok := queryTimeouts(claims); ok {
		signals = append(signals, sig)
	}
	if len(claims) > 0 && confidence < passThreshold {
		signals = append(signals, model.Signal{
			Type:        model.SignalLowConfidenceRun,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Response confidence %.2f is below the pass band %.2f", confidence, passThreshold),
			Data: map[string]any{
				"confidence": confidence,
				"pass":       passThreshold,
			},
		})
	}
	return signals
}

// coverage reports the share of claims with a qualifying source
func (s *Scorer) coverage(claims []model.Claim) model.Signal {
	if len(claims) == 0 {
		return model.Signal{
			Type:        model.SignalCoverage,
			Severity:    model.SeverityInfo,
			Description: "No claims extracted",
			Data:        map[string]any{"claims": 0, "supported": 0},
		}
	}

	supported := 0
	for _, c := range claims {
		if c.HasSource {
			supported++
		}
	}
	ratio := float64(supported) / float64(len(claims))

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 1.0 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("%d of %d claims have supporting sources", supported, len(claims)),
		Data: map[string]any{
			"claims":    len(claims),
			"supported": supported,
			"ratio":     ratio,
			"formula":   "supported_claims / claims",
		},
	}
}

// numericMismatch flags numeric claims that had candidates but no source;
// usually the documents state a different figure
func numericMismatch(claims []model.Claim) (model.Signal, bool) {
	var ids []string
	for _, c := range claims {
		if c.Type == model.ClaimNumeric && !c.HasSource && c.Candidates > 0 {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalNumericMismatch,
		Severity:    model.SeverityCritical,
		Description: fmt.Sprintf("%d numeric claims have candidate chunks but no matching figures", len(ids)),
		Data:        map[string]any{"claim_ids": ids},
	}, true
}

// singleSource flags supported claims that rest on one document only
func singleSource(claims []model.Claim) (model.Signal, bool) {
	supported, single := 0, 0
	for _, c := range claims {
		if !c.HasSource {
			continue
		}
		supported++
		docs := map[string]bool{}
		for _, src := range c.Sources {
			docs[src.DocumentID] = true
		}
		if len(docs) == 1 {
			single++
		}
	}
	if single == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalSingleSource,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d of %d supported claims rest on a single document", single, supported),
		Data:        map[string]any{"single": single, "supported": supported},
	}, true
}

func queryTimeouts(claims []model.Claim) (model.Signal, bool) {
	var ids []string
	for _, c := range claims {
		if strings.Contains(c.Notes, "timed out") {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalQueryTimeout,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d document store queries timed out; those claims were scored without sources", len(ids)),
		Data:        map[string]any{"claim_ids": ids},
	}, true
}
