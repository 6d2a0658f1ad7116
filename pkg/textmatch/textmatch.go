// Package textmatch normalizes and fuzzily compares business names and free text.
//
// Matching is a bidirectional substring test over normalized forms. Short or
// common names can match unrelated text; callers that need precision should
// compare against extracted candidate names rather than whole responses.
package textmatch

import (
	"strings"
	"unicode"
)

// stopTokens are filler tokens dropped before comparison so that
// "Charcoal N Chill" and "Charcoal and Chill" normalize identically.
var stopTokens = map[string]struct{}{
	"and": {}, "the": {}, "of": {}, "n": {}, "a": {}, "an": {},
}

// Tokens lowercases s, splits it on any non-alphanumeric rune and drops stop tokens.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopTokens[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Normalize returns the comparison form of s: lowercase, stop tokens removed,
// non-alphanumeric characters stripped.
func Normalize(s string) string {
	return strings.Join(Tokens(s), "")
}

// Match reports whether either normalized string contains the other.
// Empty inputs never match.
func Match(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// MentionedIn reports whether the normalized name occurs inside the normalized text.
func MentionedIn(name, text string) bool {
	nn := Normalize(name)
	if nn == "" {
		return false
	}
	return strings.Contains(Normalize(text), nn)
}

// Count returns how many times the normalized phrase occurs in text, matched on
// whole token boundaries.
func Count(phrase, text string) int {
	needle := Tokens(phrase)
	if len(needle) == 0 {
		return 0
	}
	hay := Tokens(text)
	count := 0
	for i := 0; i+len(needle) <= len(hay); i++ {
		matched := true
		for j, tok := range needle {
			if hay[i+j] != tok {
				matched = false
				break
			}
		}
		if matched {
			count++
			i += len(needle) - 1
		}
	}
	return count
}

// Coverage returns the fraction of needle's content tokens (three or more
// characters, or containing a digit) that appear anywhere in haystack, and the
// number of content tokens considered.
func Coverage(needle, haystack string) (float64, int) {
	present := make(map[string]struct{})
	for _, tok := range Tokens(haystack) {
		present[tok] = struct{}{}
	}

	seen := make(map[string]struct{})
	total, found := 0, 0
	for _, tok := range Tokens(needle) {
		if !isContentToken(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		total++
		if _, ok := present[tok]; ok {
			found++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(found) / float64(total), total
}

func isContentToken(tok string) bool {
	if len(tok) >= 3 {
		return true
	}
	for _, r := range tok {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
