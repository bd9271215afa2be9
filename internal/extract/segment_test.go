package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/groundcheck/internal/model"
)

func spanTexts(text string, spans []model.Span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, text[s.Start:s.End])
	}
	return out
}

func TestSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "abbreviations",
			text: "Dr. Smith joined Acme Inc. in 2010. He left in 2015.",
			want: []string{"Dr. Smith joined Acme Inc. in 2010.", "He left in 2015."},
		},
		{
			name: "decimals",
			text: "Growth was 3.5 percent. Costs fell!",
			want: []string{"Growth was 3.5 percent.", "Costs fell!"},
		},
		{
			name: "quotes",
			text: `She said "It works. Really." Then she left.`,
			want: []string{`She said "It works. Really."`, "Then she left."},
		},
		{
			name: "curly quotes",
			text: "He wrote “Stop. Now.” Nobody listened.",
			want: []string{"He wrote “Stop. Now.”", "Nobody listened."},
		},
		{
			name: "initials",
			text: "J. K. Rowling wrote the books. They sold well.",
			want: []string{"J. K. Rowling wrote the books.", "They sold well."},
		},
		{
			name: "single letter name",
			text: "The company is called X. It was founded in 1999.",
			want: []string{"The company is called X.", "It was founded in 1999."},
		},
		{
			name: "list items",
			text: "Facts:\n- Paris is in France\n- Berlin is in Germany",
			want: []string{"Facts:", "Paris is in France", "Berlin is in Germany"},
		},
		{
			name: "blank line",
			text: "First paragraph without stop\n\nSecond paragraph.",
			want: []string{"First paragraph without stop", "Second paragraph."},
		},
		{
			name: "inch mark",
			text: `Smith is 6'2" tall. Smith plays basketball for Acme. Smith won three titles in Boston. Smith was born in Ohio.`,
			want: []string{`Smith is 6'2" tall.`, "Smith plays basketball for Acme.", "Smith won three titles in Boston.", "Smith was born in Ohio."},
		},
		{
			name: "unmatched quote",
			text: `The sign read "Closed. Nobody came back. The shop stayed shut.`,
			want: []string{`The sign read "Closed.`, "Nobody came back.", "The shop stayed shut."},
		},
		{
			name: "quote closed in a later paragraph",
			text: "He said \"Wait. Stop.\n\nThen\" nothing happened.",
			want: []string{`He said "Wait.`, "Stop.", `Then" nothing happened.`},
		},
		{
			name: "whitespace only",
			text: "  \n\t ",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spanTexts(tt.text, sentences(tt.text)))
		})
	}
}

func TestSentences_SpansInBoundsAndDisjoint(t *testing.T) {
	text := "Acme Corp. earned $4.5 billion. Its CEO, Mr. Lee, said \"growth is strong.\" Sales rose 12%."
	spans := sentences(text)
	for i, s := range spans {
		assert.True(t, s.Within(len(text)))
		if i > 0 {
			assert.LessOrEqual(t, spans[i-1].End, s.Start)
		}
	}
}

func TestClauses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"connective", "Acme grew fast in Europe, but its US sales declined sharply.", []string{"Acme grew fast in Europe", "its US sales declined sharply."}},
		{"semicolon", "Paris is very large; Lyon is much smaller.", []string{"Paris is very large", "Lyon is much smaller."}},
		{"short side kept whole", "It rained, but not much at all.", []string{"It rained, but not much at all."}},
		{"inside quotes", `He said "prices rose; wages did not" on Monday.`, []string{`He said "prices rose; wages did not" on Monday.`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := sentences(tt.text)
			if !assert.Len(t, sent, 1) {
				return
			}
			assert.Equal(t, tt.want, spanTexts(tt.text, clauses(tt.text, sent[0], 3)))
		})
	}
}
