package model

import "strings"

// Span is a half-open [Start, End) range of byte offsets into a UTF-8 string.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the span width in bytes
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the two spans share at least one byte
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether o lies entirely inside s
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End
}

// Within reports whether the span is a valid range inside a text of length n
func (s Span) Within(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}

// EntityLabel classifies an entity mention
type EntityLabel string

const (
	LabelPerson   EntityLabel = "PERSON"   // People
	LabelOrg      EntityLabel = "ORG"      // Companies, agencies, institutions
	LabelGPE      EntityLabel = "GPE"      // Countries, cities, states
	LabelLoc      EntityLabel = "LOC"      // Non-political locations
	LabelProduct  EntityLabel = "PRODUCT"  // Products and artifacts
	LabelEntity   EntityLabel = "ENTITY"   // Named entity of unknown kind
	LabelDate     EntityLabel = "DATE"     // Dates, years, periods
	LabelMoney    EntityLabel = "MONEY"    // Monetary amounts
	LabelPercent  EntityLabel = "PERCENT"  // Percentages
	LabelQuantity EntityLabel = "QUANTITY" // Measurements with units
	LabelCardinal EntityLabel = "CARDINAL" // Plain counts
)

// Numeric reports whether the label describes a numeric value
func (l EntityLabel) Numeric() bool {
	switch l {
	case LabelMoney, LabelPercent, LabelQuantity, LabelCardinal:
		return true
	}
	return false
}

// Entity is a mention found in a claim or a chunk
type Entity struct {
	Text  string      `json:"text" yaml:"text"`
	Label EntityLabel `json:"label" yaml:"label"`
	Span  Span        `json:"span" yaml:"span"`
}

// Named reports whether the entity names something (as opposed to a number or date)
func (e Entity) Named() bool {
	return !e.Label.Numeric() && e.Label != LabelDate
}

// DocumentChunk is a fragment of a source document with a stable identifier.
// Chunks are owned by the document store and are never mutated by the pipeline.
type DocumentChunk struct {
	ID             string         `json:"id" yaml:"id"`
	Text           string         `json:"text" yaml:"text"`
	SourceDocument string         `json:"source_document" yaml:"source_document"`
	Metadata       map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Entities       []Entity       `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// Validate reports chunks missing a required field
func (c DocumentChunk) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(c.Text) == "" {
		missing = append(missing, "text")
	}
	if strings.TrimSpace(c.SourceDocument) == "" {
		missing = append(missing, "source_document")
	}
	if len(missing) > 0 {
		return Malformedf("chunk.validate", "chunk %q missing %s", c.ID, strings.Join(missing, ", "))
	}
	for _, e := range c.Entities {
		if !e.Span.Within(len(c.Text)) {
			return Malformedf("chunk.validate", "chunk %q entity %q span %d:%d out of range", c.ID, e.Text, e.Span.Start, e.Span.End)
		}
	}
	return nil
}
