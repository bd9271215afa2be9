package analysis

import "strings"

var stopwords = toSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from further
had has have having he her here hers herself him himself his how i if in into is it its itself just me more
most my myself no nor not now of off on once only or other our ours ourselves out over own same she should
so some such than that the their theirs them themselves then there these they this those through to too
under until up very was we were what when where which while who whom why will with would you your yours
yourself yourselves s t it's that's there's`)

// Capitalized words that open sentences without naming anything
var sentenceOpeners = toSet(`however also yes no today meanwhile overall according additionally furthermore
moreover hello hi thanks thank sure okay ok well so first second third finally instead still yet indeed
unfortunately fortunately interestingly notably generally typically currently recently historically`)

var monthNames = toSet(`january february march april may june july august september october november december
jan feb mar apr jun jul aug sep sept oct nov dec`)

var dayNames = toSet(`monday tuesday wednesday thursday friday saturday sunday`)

var orgSuffixes = toSet(`inc inc. corp corp. corporation company co co. ltd ltd. llc plc gmbh ag university
institute bank group association agency foundation council committee administration department ministry`)

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

// IsStopword reports whether the lowercased token carries no content
func IsStopword(token string) bool {
	return stopwords[strings.ToLower(token)]
}

// IsMonth reports whether the word names a month
func IsMonth(word string) bool {
	return monthNames[strings.ToLower(strings.TrimSuffix(word, "."))]
}

// ContentTokens drops stopwords and de-duplicates, keeping first-seen order
func ContentTokens(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(t)
		if stopwords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
