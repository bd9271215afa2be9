package model

import "unicode/utf8"

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimNumeric        ClaimType = "numeric"           // Percentages, currency, counts
	ClaimEntityRelation ClaimType = "entity_relation"   // Named entity tied to a relation verb
	ClaimTemporal       ClaimType = "temporal"          // Dates, years, periods
	ClaimQuotation      ClaimType = "quotation"         // Quoted speech or text
	ClaimGeneral        ClaimType = "general_assertion" // Everything else
)

// ClaimTypes lists every recognized claim type in classification order
var ClaimTypes = []ClaimType{ClaimNumeric, ClaimEntityRelation, ClaimTemporal, ClaimQuotation, ClaimGeneral}

// ParseClaimType returns the claim type for s or a config error
func ParseClaimType(s string) (ClaimType, error) {
	for _, t := range ClaimTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", Configf("claim_type.parse", "unknown claim type %q", s)
}

// SourceMatch is a scored link between one claim and one chunk.
// Chunks are referenced by ID only; resolve them through the document store.
type SourceMatch struct {
	DocumentID     string  `json:"document_id" yaml:"document_id"`
	ChunkID        string  `json:"chunk_id" yaml:"chunk_id"`
	AlignmentScore float64 `json:"alignment_score" yaml:"alignment_score"`
	TextExcerpt    string  `json:"text_excerpt" yaml:"text_excerpt"`
}

// Claim is an atomic factual assertion extracted from generated text
type Claim struct {
	ID              string        `json:"id" yaml:"id"`
	Text            string        `json:"text" yaml:"text"` // Verbatim response span
	Type            ClaimType     `json:"type" yaml:"type"`
	Span            Span          `json:"span" yaml:"span"` // Byte offsets into the response
	Entities        []Entity      `json:"entities,omitempty" yaml:"entities,omitempty"`
	Sources         []SourceMatch `json:"sources" yaml:"sources"` // Best first
	ConfidenceScore float64       `json:"confidence_score" yaml:"confidence_score"`
	HasSource       bool          `json:"has_source" yaml:"has_source"`
	Candidates      int           `json:"candidates" yaml:"candidates"`             // Chunks considered during mapping
	Notes           string        `json:"notes,omitempty" yaml:"notes,omitempty"` // Degradation notes (timeouts)
}

// BestSource returns the top-ranked source or nil
func (c *Claim) BestSource() *SourceMatch {
	if len(c.Sources) == 0 {
		return nil
	}
	return &c.Sources[0]
}

// Weight is the claim's share of the response's factual payload
func (c *Claim) Weight() float64 {
	return float64(utf8.RuneCountInString(c.Text))
}

// NamedEntities returns the entity mentions that name something
func (c *Claim) NamedEntities() []Entity {
	var named []Entity
	for _, e := range c.Entities {
		if e.Named() {
			named = append(named, e)
		}
	}
	return named
}

// EntityTexts returns the text of each named entity, in order
func EntityTexts(entities []Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		if e.Named() {
			out = append(out, e.Text)
		}
	}
	return out
}
