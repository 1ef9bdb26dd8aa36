package router

import (
	"fmt"
	"sort"
	"strings"
)

// Candidate is one selectable label: Name is returned to callers, Description
// is the text shown to the classifier.
type Candidate struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// CandidateSet is an ordered set of candidates with unique names and unique
// descriptions. Order is the tie-break order used when ranking.
type CandidateSet struct {
	items  []Candidate
	byDesc map[string]int
}

// NewCandidateSet builds a set, rejecting blank fields and duplicates.
// Descriptions must be unique because classifier labels are mapped back to
// candidates by description.
func NewCandidateSet(candidates ...Candidate) (CandidateSet, error) {
	set := CandidateSet{
		items:  make([]Candidate, 0, len(candidates)),
		byDesc: make(map[string]int, len(candidates)),
	}
	names := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		if c.Name == "" {
			return CandidateSet{}, &ConfigurationError{Field: "candidates", Err: fmt.Errorf("candidate with empty name")}
		}
		if c.Description == "" {
			return CandidateSet{}, &ConfigurationError{Field: "candidates", Err: fmt.Errorf("candidate %q has empty description", c.Name)}
		}
		if _, dup := names[c.Name]; dup {
			return CandidateSet{}, &ConfigurationError{Field: "candidates", Err: fmt.Errorf("duplicate candidate name %q", c.Name)}
		}
		if idx, dup := set.byDesc[c.Description]; dup {
			return CandidateSet{}, &ConfigurationError{
				Field: "candidates",
				Err:   fmt.Errorf("candidates %q and %q share description %q", set.items[idx].Name, c.Name, c.Description),
			}
		}
		names[c.Name] = struct{}{}
		set.byDesc[c.Description] = len(set.items)
		set.items = append(set.items, c)
	}
	return set, nil
}

// CandidatesFromMap builds a set from name -> description, ordered by name.
func CandidatesFromMap(m map[string]string) (CandidateSet, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make([]Candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, Candidate{Name: name, Description: m[name]})
	}
	return NewCandidateSet(candidates...)
}

// Len returns the number of candidates.
func (s CandidateSet) Len() int { return len(s.items) }

// Items returns a copy of the candidates in order.
func (s CandidateSet) Items() []Candidate {
	return append([]Candidate(nil), s.items...)
}

// Names returns candidate names in order.
func (s CandidateSet) Names() []string {
	out := make([]string, len(s.items))
	for i, c := range s.items {
		out[i] = c.Name
	}
	return out
}

// Descriptions returns candidate descriptions in order.
func (s CandidateSet) Descriptions() []string {
	out := make([]string, len(s.items))
	for i, c := range s.items {
		out[i] = c.Description
	}
	return out
}

// lookup maps a description back to its candidate position.
func (s CandidateSet) lookup(description string) (int, bool) {
	idx, ok := s.byDesc[description]
	return idx, ok
}
