package expander

import (
	"sort"
	"strings"
)

// Dictionary names used by Set, config overlays and the MCP expand tool
const (
	NamePopulation = "population"
	NameBusiness   = "business"
	NameBehavioral = "behavioral"
)

// group is one synonym group with its comparison forms precomputed
type group struct {
	key         string
	variants    []string
	cmpKey      string
	cmpVariants []string
}

// terms returns the canonical key followed by every variant
func (g group) terms() []string {
	out := make([]string, 0, len(g.variants)+1)
	out = append(out, g.key)
	return append(out, g.variants...)
}

// Dictionary is an immutable collection of synonym groups. Keys are
// canonical snake_case terms; variants are free-form phrases. The zero
// value is an empty dictionary.
type Dictionary struct {
	name   string
	groups []group
}

// NewDictionary builds a dictionary from canonical term -> variants.
// The input map is copied; later changes to it are not observed.
func NewDictionary(name string, entries map[string][]string) Dictionary {
	d := Dictionary{name: name, groups: make([]group, 0, len(entries))}
	for key, variants := range entries {
		key = normalize(key)
		if key == "" {
			continue
		}
		d.groups = append(d.groups, newGroup(key, variants))
	}
	sort.Slice(d.groups, func(i, j int) bool { return d.groups[i].key < d.groups[j].key })
	return d
}

func newGroup(key string, variants []string) group {
	g := group{key: key, cmpKey: matchForm(key)}
	seen := map[string]bool{g.cmpKey: true}
	for _, v := range variants {
		v = normalize(v)
		c := matchForm(v)
		if v == "" || seen[c] {
			continue
		}
		seen[c] = true
		g.variants = append(g.variants, v)
		g.cmpVariants = append(g.cmpVariants, c)
	}
	return g
}

// Name returns the dictionary name; unions join their parts with "+"
func (d Dictionary) Name() string {
	return d.name
}

// Len returns the number of synonym groups
func (d Dictionary) Len() int {
	return len(d.groups)
}

// Keys returns the canonical terms in sorted order
func (d Dictionary) Keys() []string {
	keys := make([]string, len(d.groups))
	for i, g := range d.groups {
		keys[i] = g.key
	}
	return keys
}

// Variants returns the variants of the group with canonical term key
func (d Dictionary) Variants(key string) ([]string, bool) {
	key = normalize(key)
	for _, g := range d.groups {
		if g.key == key {
			return append([]string(nil), g.variants...), true
		}
	}
	return nil, false
}

// Entries returns a copy of the dictionary as canonical term -> variants
func (d Dictionary) Entries() map[string][]string {
	out := make(map[string][]string, len(d.groups))
	for _, g := range d.groups {
		out[g.key] = append([]string(nil), g.variants...)
	}
	return out
}

// Union merges dictionaries into a new one. Groups sharing a canonical term
// have their variants combined.
func Union(dicts ...Dictionary) Dictionary {
	merged := make(map[string][]string)
	names := make([]string, 0, len(dicts))
	for _, d := range dicts {
		if d.name != "" {
			names = append(names, d.name)
		}
		for _, g := range d.groups {
			merged[g.key] = append(merged[g.key], g.variants...)
		}
	}
	return NewDictionary(strings.Join(names, "+"), merged)
}

// Set holds the three domain dictionaries
type Set struct {
	Population Dictionary
	Business   Dictionary
	Behavioral Dictionary
}

// Defaults returns the built-in dictionaries
func Defaults() Set {
	return Set{
		Population: NewDictionary(NamePopulation, populationTerms),
		Business:   NewDictionary(NameBusiness, businessTerms),
		Behavioral: NewDictionary(NameBehavioral, behavioralTerms),
	}
}

// Lookup returns a dictionary by name. "all" returns the union of the three.
func (s Set) Lookup(name string) (Dictionary, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NamePopulation:
		return s.Population, true
	case NameBusiness:
		return s.Business, true
	case NameBehavioral:
		return s.Behavioral, true
	case "all", "":
		return Union(s.Population, s.Business, s.Behavioral), true
	}
	return Dictionary{}, false
}

// normalize lowercases, trims, strips double quotes and collapses whitespace
func normalize(term string) string {
	term = strings.ReplaceAll(term, `"`, "")
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// matchForm is the form used for matching: underscores read as spaces
func matchForm(term string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(term, "_", " ")), " ")
}
