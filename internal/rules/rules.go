// Package rules holds the fixed, versioned list of manual rating fixes applied
// to archive posts: identifiers to remove and identifiers whose rating is
// overwritten with a known correct value.
package rules

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed ratings.yaml
var defaultRules []byte

// Action is what a rule does to a matching post.
type Action int

const (
	Remove Action = iota + 1
	Correct
)

func (a Action) String() string {
	switch a {
	case Remove:
		return "remove"
	case Correct:
		return "correct"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Rule is the action for one post identifier. Numerator and Denominator are
// only meaningful for Correct.
type Rule struct {
	Action      Action
	Numerator   int
	Denominator int
}

// Set is an immutable, validated rule set keyed by canonical identifier.
type Set struct {
	version int
	rules   map[string]Rule
}

type file struct {
	Version int      `yaml:"version"`
	Remove  []string `yaml:"remove"`
	Correct []struct {
		ID          string `yaml:"id"`
		Numerator   int    `yaml:"numerator"`
		Denominator int    `yaml:"denominator"`
	} `yaml:"correct"`
}

// Default returns the rule set shipped with the binary.
func Default() *Set {
	s, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rating rules: %v", err))
	}
	return s
}

// Parse decodes and validates a YAML rule file.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("rules version must be positive, got %d", f.Version)
	}

	s := &Set{version: f.Version, rules: make(map[string]Rule, len(f.Remove)+len(f.Correct))}
	for _, id := range f.Remove {
		if err := s.add(id, Rule{Action: Remove}); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Correct {
		if c.Denominator <= 0 {
			return nil, fmt.Errorf("rule %s: denominator must be positive", c.ID)
		}
		if c.Numerator < 0 {
			return nil, fmt.Errorf("rule %s: numerator must not be negative", c.ID)
		}
		if err := s.add(c.ID, Rule{Action: Correct, Numerator: c.Numerator, Denominator: c.Denominator}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) add(id string, r Rule) error {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || strconv.FormatUint(n, 10) != id {
		return fmt.Errorf("rule id %q is not a canonical identifier", id)
	}
	if prev, ok := s.rules[id]; ok {
		return fmt.Errorf("rule id %s listed twice (%s and %s)", id, prev.Action, r.Action)
	}
	s.rules[id] = r
	return nil
}

// Version returns the rule file version.
func (s *Set) Version() int { return s.version }

// Lookup returns the rule for id, if any.
func (s *Set) Lookup(id string) (Rule, bool) {
	r, ok := s.rules[id]
	return r, ok
}

// IDs returns the identifiers with the given action, sorted.
func (s *Set) IDs(a Action) []string {
	var ids []string
	for id, r := range s.rules {
		if r.Action == a {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
