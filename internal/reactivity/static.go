package reactivity

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"mixsafe-gateway/internal/chem"

	"gopkg.in/yaml.v3"
)

//go:embed data/household.yaml
var householdYAML []byte

type staticFile struct {
	Substances []struct {
		Name string   `yaml:"name"`
		IDs  []string `yaml:"ids"`
	} `yaml:"substances"`
	Pairs []struct {
		A       string   `yaml:"a"`
		B       string   `yaml:"b"`
		Status  string   `yaml:"status"`
		Hazards []string `yaml:"hazards"`
	} `yaml:"pairs"`
}

// StaticFetcher answers from a built-in table of household substances.
// Identifiers it does not know are ignored.
type StaticFetcher struct {
	names map[string]string      // identifier -> canonical name
	order map[string]int         // canonical name -> table position
	pairs map[string]chem.Record // PairKey -> record
}

// NewStaticFetcher loads the embedded household table.
func NewStaticFetcher() (*StaticFetcher, error) {
	return ParseStatic(householdYAML)
}

// ParseStatic builds a StaticFetcher from YAML data.
func ParseStatic(data []byte) (*StaticFetcher, error) {
	var f staticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse reactivity table: %w", err)
	}

	s := &StaticFetcher{
		names: make(map[string]string),
		order: make(map[string]int),
		pairs: make(map[string]chem.Record),
	}
	for i, sub := range f.Substances {
		s.order[sub.Name] = i
		s.names[normalizeID(sub.Name)] = sub.Name
		for _, id := range sub.IDs {
			s.names[normalizeID(id)] = sub.Name
		}
	}
	for _, p := range f.Pairs {
		if _, ok := s.order[p.A]; !ok {
			return nil, fmt.Errorf("reactivity table: unknown substance %q", p.A)
		}
		if _, ok := s.order[p.B]; !ok {
			return nil, fmt.Errorf("reactivity table: unknown substance %q", p.B)
		}
		status := chem.ParseCompatibility(p.Status)
		if status == chem.Unknown {
			return nil, fmt.Errorf("reactivity table: pair %s/%s has invalid status %q", p.A, p.B, p.Status)
		}
		rec := chem.Record{Chemical1: p.A, Chemical2: p.B, Status: status, Hazards: p.Hazards}
		s.pairs[rec.PairKey()] = rec
	}
	return s, nil
}

// Resolve maps an identifier to its canonical name.
func (s *StaticFetcher) Resolve(id string) (string, bool) {
	name, ok := s.names[normalizeID(id)]
	return name, ok
}

func (s *StaticFetcher) Fetch(_ context.Context, ids []string) ([]chem.Record, error) {
	var resolved []string
	seen := make(map[string]bool)
	for _, id := range ids {
		name, ok := s.Resolve(id)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		resolved = append(resolved, name)
	}

	var records []chem.Record
	for i := 0; i < len(resolved); i++ {
		for j := i + 1; j < len(resolved); j++ {
			a, b := resolved[i], resolved[j]
			if s.order[b] < s.order[a] {
				a, b = b, a
			}
			probe := chem.Record{Chemical1: a, Chemical2: b}
			if rec, ok := s.pairs[probe.PairKey()]; ok {
				records = append(records, copyRecord(rec))
				continue
			}
			records = append(records, chem.Record{
				Chemical1: a,
				Chemical2: b,
				Status:    chem.Unknown,
				Hazards:   []string{"No reactivity data in the built-in table"},
			})
		}
	}
	return records, nil
}

func copyRecord(r chem.Record) chem.Record {
	r.Hazards = append([]string(nil), r.Hazards...)
	return r
}

func normalizeID(id string) string {
	return strings.Join(strings.Fields(strings.ToLower(id)), " ")
}
