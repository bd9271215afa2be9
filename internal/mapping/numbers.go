package mapping

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// quantity is one numeric value mentioned in text
type quantity struct {
	value float64
	unit  string // "%", a currency code, or "" for plain numbers
	year  bool   // Bare four-digit year; matches only exactly
}

var (
	quantityPattern = regexp.MustCompile(`(?i)([$€£¥])?\s?(\d[\d,]*(?:\.\d+)?)(?:\s?(k|m|mn|mm|b|bn|thousand|million|billion|trillion)\b)?\s?(%|percent\b|per cent\b|percentage points?\b|dollars\b|usd\b|euros?\b|eur\b|pounds\b|gbp\b)?`)

	numberWordPattern = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty|thirty|forty|fifty|sixty|seventy|eighty|ninety|hundred|dozen)\b(?:\s(thousand|million|billion|trillion)\b)?`)

	yearValue = regexp.MustCompile(`^(?:1[0-9]|20)\d{2}$`)
)

var numberWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16,
	"seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90, "hundred": 100, "dozen": 12,
}

var magnitudes = map[string]float64{
	"k": 1e3, "thousand": 1e3,
	"m": 1e6, "mn": 1e6, "mm": 1e6, "million": 1e6,
	"b": 1e9, "bn": 1e9, "billion": 1e9,
	"trillion": 1e12,
}

var currencies = map[string]string{
	"$": "usd", "dollars": "usd", "usd": "usd",
	"€": "eur", "euro": "eur", "euros": "eur", "eur": "eur",
	"£": "gbp", "pounds": "gbp", "gbp": "gbp",
	"¥": "jpy",
}

// quantities extracts numeric values with their unit and magnitude applied.
// "1.2 billion" and "$1,200 million" both yield 1.2e9.
func quantities(text string) []quantity {
	var out []quantity
	for _, m := range quantityPattern.FindAllStringSubmatch(text, -1) {
		digits := strings.TrimRight(m[2], ",")
		raw := strings.ReplaceAll(digits, ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		q := quantity{value: v}
		mag := strings.ToLower(m[3])
		if f, ok := magnitudes[mag]; ok {
			q.value *= f
		}
		suffix := strings.ToLower(m[4])
		switch {
		case strings.HasPrefix(suffix, "%"), strings.HasPrefix(suffix, "per"):
			q.unit = "%"
		case m[1] != "":
			q.unit = currencies[m[1]]
		case suffix != "":
			q.unit = currencies[suffix]
		}
		q.year = q.unit == "" && mag == "" && yearValue.MatchString(digits)
		out = append(out, q)
	}
	for _, m := range numberWordPattern.FindAllStringSubmatch(text, -1) {
		v := numberWords[strings.ToLower(m[1])]
		if f, ok := magnitudes[strings.ToLower(m[2])]; ok {
			v *= f
		}
		out = append(out, quantity{value: v})
	}
	return out
}

// matches reports whether two quantities state the same value.
// Percentages never match plain numbers; years must be equal.
func (q quantity) matches(o quantity, tolerance float64) bool {
	if q.unit != o.unit {
		if q.unit == "%" || o.unit == "%" || (q.unit != "" && o.unit != "") {
			return false
		}
	}
	if q.year || o.year {
		return q.value == o.value
	}
	if q.value == o.value {
		return true
	}
	scale := math.Max(math.Abs(q.value), math.Abs(o.value))
	return math.Abs(q.value-o.value) <= tolerance*scale
}

// numericCoverage is the fraction of claim quantities found in the segment
func numericCoverage(claim, segment []quantity, tolerance float64) float64 {
	if len(claim) == 0 {
		return 0
	}
	matched := 0
	for _, c := range claim {
		for _, s := range segment {
			if c.matches(s, tolerance) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(claim))
}
