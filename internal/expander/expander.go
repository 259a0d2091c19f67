package expander

import (
	"strings"
	"unicode"
)

// minSubstringLen is the shortest term that takes part in substring
// matching. Shorter inputs only match keys and variants exactly.
const minSubstringLen = 3

// Expand returns the normalized term followed by every term of each synonym
// group it matches. A group matches when the term equals its key, when the
// term and key contain one another, or when the term and any variant contain
// one another. An empty term expands to nothing.
func Expand(term string, dict Dictionary) []string {
	term = normalize(term)
	if term == "" {
		return nil
	}

	out := []string{term}
	seen := map[string]bool{matchForm(term): true}
	add := func(terms []string) {
		for _, t := range terms {
			c := matchForm(t)
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, t)
		}
	}

	cmp := matchForm(term)
	for _, g := range dict.groups {
		if groupMatches(g, cmp) {
			add(g.terms())
		}
	}
	return out
}

func groupMatches(g group, cmp string) bool {
	// Tier 1: exact key
	if g.cmpKey == cmp {
		return true
	}
	// Tier 2: key substring in either direction
	if overlaps(cmp, g.cmpKey) {
		return true
	}
	// Tier 3: variant equality or substring
	for _, v := range g.cmpVariants {
		if v == cmp || overlaps(cmp, v) {
			return true
		}
	}
	return false
}

// overlaps reports whether a contains b or b contains a, ignoring the side
// shorter than minSubstringLen
func overlaps(a, b string) bool {
	if len(b) >= minSubstringLen && strings.Contains(a, b) {
		return true
	}
	return len(a) >= minSubstringLen && strings.Contains(b, a)
}

// ExpandForFTS renders Expand(term) as a full-text query: quoted terms
// joined by OR, underscores read as spaces, duplicates removed. A single
// surviving term is returned bare.
func ExpandForFTS(term string, dict Dictionary) string {
	return RenderFTS(Expand(term, dict))
}

// ExpandQueryForFTS expands a whole query for keyword search. The query as a
// phrase and each of its content words are expanded and the union rendered
// as for ExpandForFTS.
func ExpandQueryForFTS(query string, dict Dictionary) string {
	return RenderFTS(ExpandQuery(query, dict))
}

// ExpandQuery is the unrendered form of ExpandQueryForFTS
func ExpandQuery(query string, dict Dictionary) []string {
	terms := Expand(query, dict)
	words := contentWords(query)
	if len(words) <= 1 {
		return terms
	}
	for _, w := range words {
		terms = append(terms, Expand(w, dict)...)
	}
	return dedupe(terms)
}

// RenderFTS formats terms as an OR of quoted phrases
func RenderFTS(terms []string) string {
	rendered := make([]string, 0, len(terms))
	for _, t := range dedupe(terms) {
		rendered = append(rendered, matchForm(t))
	}
	switch len(rendered) {
	case 0:
		return ""
	case 1:
		return rendered[0]
	}

	var b strings.Builder
	for i, t := range rendered {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteByte('"')
		b.WriteString(t)
		b.WriteByte('"')
	}
	return b.String()
}

// dedupe keeps the first occurrence of each term by match form
func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = normalize(t)
		c := matchForm(t)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, t)
	}
	return out
}

// contentWords splits query into lowercase words, dropping stopwords
func contentWords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f == "" || stopwords[f] {
			continue
		}
		words = append(words, f)
	}
	return words
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "for": true,
	"from": true, "get": true, "have": true, "how": true, "i": true, "i'm": true,
	"if": true, "in": true, "into": true, "is": true, "it": true, "me": true,
	"my": true, "no": true, "not": true, "of": true, "on": true, "or": true,
	"so": true, "that": true, "the": true, "this": true, "to": true, "was": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "will": true, "with": true, "you": true, "your": true,
	"am": true, "about": true, "been": true, "should": true, "would": true,
	"could": true, "want": true, "need": true, "just": true, "really": true,
}
