package model

// Action is what the corrector does with a claim
type Action string

const (
	ActionPass    Action = "pass"    // Leave the claim as written
	ActionFlag    Action = "flag"    // Mark the claim as uncertain
	ActionRewrite Action = "rewrite" // Replace or excise the claim
)

// Intervention is the decision taken for one claim
type Intervention struct {
	ClaimID     string  `json:"claim_id" yaml:"claim_id"`
	Action      Action  `json:"action" yaml:"action"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Replacement string  `json:"replacement,omitempty" yaml:"replacement,omitempty"`
	Explanation string  `json:"explanation" yaml:"explanation"`
}

// VerificationResult is the output of one verify call
type VerificationResult struct {
	Claims             []Claim        `json:"claims" yaml:"claims"` // Response order
	ConfidenceScore    float64        `json:"confidence_score" yaml:"confidence_score"`
	HallucinationScore float64        `json:"hallucination_score" yaml:"hallucination_score"`
	ResponseText       string         `json:"response_text" yaml:"response_text"`
	DocumentStoreRef   string         `json:"document_store_ref" yaml:"document_store_ref"`
	Strategy           string         `json:"strategy" yaml:"strategy"`
	Flagged            bool           `json:"flagged" yaml:"flagged"` // Hallucination above the intervention threshold
	Interventions      []Intervention `json:"interventions,omitempty" yaml:"interventions,omitempty"`
	Signals            []Signal       `json:"signals,omitempty" yaml:"signals,omitempty"`
}

// Supported counts claims with a qualifying source
func (r *VerificationResult) Supported() int {
	n := 0
	for _, c := range r.Claims {
		if c.HasSource {
			n++
		}
	}
	return n
}

// Claim returns the claim with the given ID or nil
func (r *VerificationResult) Claim(id string) *Claim {
	for i := range r.Claims {
		if r.Claims[i].ID == id {
			return &r.Claims[i]
		}
	}
	return nil
}

// Signal is a diagnostic finding with the data that produced it
type Signal struct {
	Type        SignalType     `json:"type" yaml:"type"`
	Severity    SignalSeverity `json:"severity" yaml:"severity"`
	Description string         `json:"description" yaml:"description"`
	Data        map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCoverage         SignalType = "coverage"          // Share of claims with sources
	SignalNumericMismatch  SignalType = "numeric_mismatch"  // Numeric claims with candidates but no source
	SignalSingleSource     SignalType = "single_source"     // Supported claims resting on one document
	SignalQueryTimeout     SignalType = "query_timeout"     // Store queries that hit the deadline
	SignalLowConfidenceRun SignalType = "low_confidence"    // Aggregate confidence below the pass band
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
