package intervene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/groundcheck/internal/model"
)

func cfg() model.InterventionConfig {
	return model.DefaultConfig().Intervention
}

func TestProfileFor(t *testing.T) {
	p, err := ProfileFor(cfg(), "balanced")
	require.NoError(t, err)
	assert.Equal(t, 0.7, p.Pass)
	assert.Equal(t, 0.3, p.Flag)

	_, err = ProfileFor(cfg(), "reckless")
	assert.True(t, model.IsKind(err, model.KindConfig))

	c := cfg()
	c.Profiles = map[string]model.ProfileThresholds{"aggressive": {Pass: model.Threshold(0.9), Flag: model.Threshold(0.5)}}
	p, err = ProfileFor(c, "aggressive")
	require.NoError(t, err)
	assert.Equal(t, 0.9, p.Pass)
	assert.True(t, p.RewriteFlagged)

	c.Profiles = map[string]model.ProfileThresholds{"balanced": {Pass: model.Threshold(0.2), Flag: model.Threshold(0.5)}}
	_, err = ProfileFor(c, "balanced")
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestProfileFor_PartialOverride(t *testing.T) {
	c := cfg()
	c.Profiles = map[string]model.ProfileThresholds{"balanced": {Pass: model.Threshold(0.8)}}
	p, err := ProfileFor(c, "balanced")
	require.NoError(t, err)
	assert.Equal(t, 0.8, p.Pass)
	assert.Equal(t, 0.3, p.Flag, "unset flag keeps the default")
	assert.Equal(t, model.ActionRewrite, p.Band(0.1))

	c.Profiles = map[string]model.ProfileThresholds{"aggressive": {Flag: model.Threshold(0.5)}}
	p, err = ProfileFor(c, "aggressive")
	require.NoError(t, err)
	assert.Equal(t, 0.8, p.Pass)
	assert.Equal(t, 0.5, p.Flag)

	c.Profiles = map[string]model.ProfileThresholds{"conservative": {Flag: model.Threshold(0.7)}}
	_, err = NewSelector(c)
	assert.True(t, model.IsKind(err, model.KindConfig), "overrides of unused profiles are checked at construction")
}

func TestProfile_Band(t *testing.T) {
	tests := []struct {
		strategy   string
		confidence float64
		want       model.Action
	}{
		{"conservative", 0.65, model.ActionPass},
		{"conservative", 0.4, model.ActionFlag},
		{"conservative", 0.01, model.ActionFlag},
		{"balanced", 0.95, model.ActionPass},
		{"balanced", 0.5, model.ActionFlag},
		{"balanced", 0.05, model.ActionRewrite},
		{"aggressive", 0.75, model.ActionRewrite},
		{"aggressive", 0.85, model.ActionPass},
	}
	for _, tt := range tests {
		p, err := ProfileFor(cfg(), tt.strategy)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Band(tt.confidence), "%s at %.2f", tt.strategy, tt.confidence)
	}
}

func TestNewSelector_UnknownStrategy(t *testing.T) {
	c := cfg()
	c.Strategy = "yolo"
	_, err := NewSelector(c)
	assert.True(t, model.IsKind(err, model.KindConfig))
}

func TestSelect_Rewrite(t *testing.T) {
	sel, err := NewSelectorFor(cfg(), "balanced")
	require.NoError(t, err)

	unsupported := model.Claim{ID: "a", ConfidenceScore: 0.05}
	iv := sel.Select(unsupported)
	assert.Equal(t, model.ActionRewrite, iv.Action)
	assert.Equal(t, cfg().HedgePhrase, iv.Replacement)

	c := cfg()
	c.ExciseUnsupported = true
	sel, err = NewSelectorFor(c, "balanced")
	require.NoError(t, err)
	iv = sel.Select(unsupported)
	assert.Empty(t, iv.Replacement)

	withSource := model.Claim{ID: "b", ConfidenceScore: 0.2, Sources: []model.SourceMatch{{ChunkID: "c1", AlignmentScore: 0.65, TextExcerpt: "Acme was founded in 2001."}}}
	iv = sel.Select(withSource)
	assert.Equal(t, "Acme was founded in 2001.", iv.Replacement)
	assert.Contains(t, iv.Explanation, "c1")

	all := sel.SelectAll([]model.Claim{unsupported, withSource})
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ClaimID)
	assert.Equal(t, "b", all[1].ClaimID)
}

// result builds a verification result whose claims are the given sentences
// of text with the given confidences
func result(text string, confidences map[string]float64, sources map[string]string) *model.VerificationResult {
	r := &model.VerificationResult{ResponseText: text}
	for sent, conf := range confidences {
		start := strings.Index(text, sent)
		c := model.Claim{ID: sent, Text: sent, Span: model.Span{Start: start, End: start + len(sent)}, ConfidenceScore: conf}
		if ex, ok := sources[sent]; ok {
			c.Sources = []model.SourceMatch{{ChunkID: "c", DocumentID: "d", AlignmentScore: 0.65, TextExcerpt: ex}}
			c.HasSource = true
		}
		r.Claims = append(r.Claims, c)
	}
	return r
}

const response = "Paris is the capital of France. Atlantis sank in 9600 BC. Acme was founded in 1999."

func TestCorrect_Strategies(t *testing.T) {
	confidences := map[string]float64{
		"Paris is the capital of France.": 0.95,
		"Atlantis sank in 9600 BC.":       0.05,
		"Acme was founded in 1999.":       0.5,
	}
	sources := map[string]string{"Acme was founded in 1999.": "acme was founded in 2001"}

	tests := []struct {
		strategy string
		excise   bool
		want     string
	}{
		{"conservative", false, "Paris is the capital of France. Atlantis sank in 9600 BC [unverified]. Acme was founded in 1999 [unverified]."},
		{"balanced", false, "Paris is the capital of France. This statement could not be verified against the provided sources. Acme was founded in 1999 [unverified]."},
		{"aggressive", false, "Paris is the capital of France. This statement could not be verified against the provided sources. Acme was founded in 2001."},
		{"balanced", true, "Paris is the capital of France. Acme was founded in 1999 [unverified]."},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			c := cfg()
			c.ExciseUnsupported = tt.excise
			got, err := NewCorrector(c).Correct(result(response, confidences, sources), tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCorrect_ExcisesClauses(t *testing.T) {
	c := cfg()
	c.ExciseUnsupported = true
	corrector := NewCorrector(c)

	tests := []struct {
		name        string
		text        string
		confidences map[string]float64
		want        string
	}{
		{
			name:        "both clauses",
			text:        "Lyon is a large city today, but Zorb is a tiny village now.",
			confidences: map[string]float64{"Lyon is a large city today": 0.05, "Zorb is a tiny village now.": 0.05},
			want:        "",
		},
		{
			name:        "both clauses after a kept sentence",
			text:        "Paris is in France. Lyon is a large city today, but Zorb is a tiny village now.",
			confidences: map[string]float64{"Paris is in France.": 0.95, "Lyon is a large city today": 0.05, "Zorb is a tiny village now.": 0.05},
			want:        "Paris is in France.",
		},
		{
			name:        "trailing clause",
			text:        "Lyon is a large city today, but Zorb is a tiny village now. Paris is in France.",
			confidences: map[string]float64{"Lyon is a large city today": 0.95, "Zorb is a tiny village now.": 0.05},
			want:        "Lyon is a large city today. Paris is in France.",
		},
		{
			name:        "leading clause",
			text:        "Zorb is a tiny village now; the river floods every spring.",
			confidences: map[string]float64{"Zorb is a tiny village now": 0.05, "the river floods every spring.": 0.95},
			want:        "The river floods every spring.",
		},
		{
			name:        "middle clause",
			text:        "Lyon is large; Zorb is a tiny village; Paris is bigger.",
			confidences: map[string]float64{"Lyon is large": 0.95, "Zorb is a tiny village": 0.05, "Paris is bigger.": 0.95},
			want:        "Lyon is large; Paris is bigger.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := corrector.Correct(result(tt.text, tt.confidences, nil), "balanced")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCorrect_LeavesSettledClaims(t *testing.T) {
	text := "Atlantis sank in 9600 BC [unverified]. This statement could not be verified against the provided sources."
	r := result(text, map[string]float64{
		"Atlantis sank in 9600 BC [unverified].": 0.05,
		"This statement could not be verified against the provided sources.": 0.05,
	}, nil)

	for _, strategy := range []string{"conservative", "balanced", "aggressive"} {
		got, err := NewCorrector(cfg()).Correct(r, strategy)
		require.NoError(t, err)
		assert.Equal(t, text, got, strategy)
	}
}

func TestCorrect_PassingResultUnchanged(t *testing.T) {
	r := result(response, map[string]float64{"Paris is the capital of France.": 1, "Acme was founded in 1999.": 0.99}, nil)
	got, err := NewCorrector(cfg()).Correct(r, "aggressive")
	require.NoError(t, err)
	assert.Equal(t, response, got)
}

func TestCorrect_Errors(t *testing.T) {
	_, err := NewCorrector(cfg()).Correct(result(response, nil, nil), "unknown")
	assert.True(t, model.IsKind(err, model.KindConfig))

	_, err = NewCorrector(cfg()).Correct(nil, "balanced")
	assert.True(t, model.IsKind(err, model.KindInput))
}

func TestCorrect_SkipsStaleSpans(t *testing.T) {
	r := result(response, map[string]float64{"Atlantis sank in 9600 BC.": 0.05}, nil)
	r.Claims[0].Text = "Something else entirely."
	got, err := NewCorrector(cfg()).Correct(r, "balanced")
	require.NoError(t, err)
	assert.Equal(t, response, got)
}

func TestAdapt(t *testing.T) {
	assert.Equal(t, "Acme was founded in 2001.", adapt("Acme was founded in 1999.", "acme was founded in 2001"))
	assert.Equal(t, "its lift came later", adapt("its lift was installed", "Its lift came later."))
	assert.Equal(t, "NASA launched it!", adapt("nasa did it!", "NASA launched it."))
}
