// Package links attaches safety reference links to classified pairs.
package links

import (
	_ "embed"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"unicode"

	"mixsafe-gateway/internal/chem"

	"gopkg.in/yaml.v3"
)

//go:embed data/links.yaml
var defaultTables []byte

const msdsSearchURL = "https://msds.kosha.or.kr/MSDSInfo/kcic/msdsSearch.do?menuId=13&msdsEname="

type tables struct {
	Aliases map[string]string `yaml:"aliases"`
	Pairs   []struct {
		A     string      `yaml:"a"`
		B     string      `yaml:"b"`
		Links []chem.Link `yaml:"links"`
	} `yaml:"pairs"`
	General []chem.Resource `yaml:"general"`
}

type alias struct {
	tokens []string
	target string
}

// Aggregator is read-only after construction and safe for concurrent use.
type Aggregator struct {
	aliases []alias // longest first
	pairs   map[string][]chem.Link
	general []chem.Resource
}

// New loads the embedded reference tables.
func New() (*Aggregator, error) {
	return Parse(defaultTables)
}

// Parse builds an Aggregator from YAML tables.
func Parse(data []byte) (*Aggregator, error) {
	var t tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse link tables: %w", err)
	}

	a := &Aggregator{pairs: make(map[string][]chem.Link), general: t.General}
	for key, target := range t.Aliases {
		tokens := tokenize(key)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("link tables: empty alias for %q", target)
		}
		a.aliases = append(a.aliases, alias{tokens: tokens, target: target})
	}
	sort.Slice(a.aliases, func(i, j int) bool {
		ti, tj := a.aliases[i].tokens, a.aliases[j].tokens
		if len(ti) != len(tj) {
			return len(ti) > len(tj)
		}
		return strings.Join(ti, " ") < strings.Join(tj, " ")
	})

	for _, p := range t.Pairs {
		k := pairKey(p.A, p.B)
		a.pairs[k] = append(a.pairs[k], p.Links...)
	}
	return a, nil
}

// Normalize maps a substance name to its link-table alias. Names without
// a matching alias come back lowercased with punctuation collapsed.
func (a *Aggregator) Normalize(name string) string {
	tokens := tokenize(name)
	for _, al := range a.aliases {
		if containsRun(tokens, al.tokens) {
			return al.target
		}
	}
	return strings.Join(tokens, " ")
}

// PairLinks returns the links registered for the unordered pair.
func (a *Aggregator) PairLinks(chemical1, chemical2 string) []chem.Link {
	return a.pairs[pairKey(a.Normalize(chemical1), a.Normalize(chemical2))]
}

// Aggregate collects links for dangerous then caution pairs. Pair links are
// deduplicated by (title, url) and MSDS links by substance, both keeping
// first-seen order. General resources are always included.
func (a *Aggregator) Aggregate(dangerous, caution []chem.Pair) chem.LinkBundle {
	bundle := chem.LinkBundle{
		SpecificLinks:    []chem.Link{},
		MSDSLinks:        []chem.SubstanceLink{},
		GeneralResources: append([]chem.Resource{}, a.general...),
	}

	type linkKey struct{ title, url string }
	seenLinks := map[linkKey]bool{}
	seenChemicals := map[string]bool{}

	all := make([]chem.Pair, 0, len(dangerous)+len(caution))
	all = append(all, dangerous...)
	all = append(all, caution...)

	for _, p := range all {
		for _, l := range a.PairLinks(p.Chemical1, p.Chemical2) {
			k := linkKey{l.Title, l.URL}
			if seenLinks[k] {
				continue
			}
			seenLinks[k] = true
			bundle.SpecificLinks = append(bundle.SpecificLinks, l)
		}

		for _, name := range []string{p.Chemical1, p.Chemical2} {
			name = strings.TrimSpace(name)
			k := strings.ToLower(name)
			if name == "" || seenChemicals[k] {
				continue
			}
			seenChemicals[k] = true
			bundle.MSDSLinks = append(bundle.MSDSLinks, chem.SubstanceLink{
				Chemical: name,
				URL:      MSDSSearchURL(name),
				Title:    name + " 물질안전보건자료(MSDS)",
			})
		}
	}
	return bundle
}

// MSDSSearchURL builds the KOSHA MSDS search link for a substance name.
func MSDSSearchURL(name string) string {
	return msdsSearchURL + url.QueryEscape(strings.TrimSpace(name))
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// tokenize splits on anything that is not a letter, digit or hyphen.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func containsRun(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
