// internal/nutrition/multiplier.go
package nutrition

import (
	"strings"
	"unicode"
)

type multiplierRule struct {
	tokens []string
	value  float64
}

// Checked top to bottom; the first rule with a matching token wins.
var multiplierRules = []multiplierRule{
	{tokens: []string{"2", "two"}, value: 2},
	{tokens: []string{"3", "three"}, value: 3},
	{tokens: []string{"4", "four"}, value: 4},
	{tokens: []string{"5", "five"}, value: 5},
	{tokens: []string{"1/2", "0.5"}, value: 0.5},
	{tokens: []string{"1/4", "0.25"}, value: 0.25},
}

// ParseMultiplier turns a free-text quantity into a serving multiplier. The
// quantity is split into number tokens ("2", "1/2", "0.25") and word tokens
// ("two", "cups"), and the rules are tried in fixed order against them. Anything
// else, including gram amounts like "100g" or "250g", is one serving. This is a
// heuristic and does not understand units, ranges or arbitrary fractions.
func ParseMultiplier(quantity string) float64 {
	tokens := quantityTokens(strings.ToLower(quantity))
	if len(tokens) == 0 {
		return 1
	}
	for _, rule := range multiplierRules {
		for _, want := range rule.tokens {
			if _, ok := tokens[want]; ok {
				return rule.value
			}
		}
	}
	return 1
}

// quantityTokens splits q into runs of number characters (digits, '.', '/') and
// runs of letters. Everything else separates tokens.
func quantityTokens(q string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var cur strings.Builder
	kind := 0 // 0 none, 1 number, 2 word

	flush := func() {
		if cur.Len() > 0 {
			tokens[cur.String()] = struct{}{}
			cur.Reset()
		}
		kind = 0
	}

	for _, r := range q {
		next := 0
		switch {
		case unicode.IsDigit(r) || r == '.' || r == '/':
			next = 1
		case unicode.IsLetter(r):
			next = 2
		}
		if next != kind {
			flush()
		}
		if next != 0 {
			cur.WriteRune(r)
			kind = next
		}
	}
	flush()

	return tokens
}
