package fuzzyinfer

import (
	"fmt"
	"sort"
	"strings"
)

// Fact is a (predicate, args, degree) triple. Identity is (predicate,
// args); the degree is the only mutable component.
type Fact struct {
	Predicate string
	Args      []string
	Degree    float64
}

// NewFact constructs a Fact, validating the degree bound.
func NewFact(predicate string, args []string, degree float64) (*Fact, error) {
	f := &Fact{Predicate: predicate, Args: append([]string(nil), args...), Degree: degree}
	if err := validateFact(f); err != nil {
		return nil, err
	}
	return f, nil
}

// validateFact checks the bounds every fact must satisfy before it can
// enter a FactStore (§7, §8 invariant 1): a non-empty predicate and a
// degree within [0,1].
func validateFact(f *Fact) error {
	if f.Predicate == "" {
		return newValidationError("predicate cannot be empty")
	}
	if f.Degree < 0.0 || f.Degree > 1.0 {
		return newValidationError("degree must be between 0 and 1, got %v", f.Degree)
	}
	return nil
}

// String renders the fact as "predicate(arg1, arg2) [deg=0.80]".
func (f *Fact) String() string {
	return fmt.Sprintf("%s(%s) [deg=%.2f]", f.Predicate, strings.Join(f.Args, ", "), f.Degree)
}

func (f *Fact) key() factKey {
	return factKey{Predicate: f.Predicate, Args: strings.Join(f.Args, "\x1f")}
}

// factKey is the map key for a fact's identity (predicate, args).
type factKey struct {
	Predicate string
	Args      string
}

// FactStore is a keyed container from (predicate, args) to degree. Facts
// are value-typed: an insert replaces the stored record rather than
// mutating it in place.
type FactStore struct {
	facts map[factKey]*Fact
	order []factKey
}

// NewFactStore returns an empty fact store.
func NewFactStore() *FactStore {
	return &FactStore{facts: make(map[factKey]*Fact)}
}

// InsertOrCombine inserts fact if its key is absent, or replaces the
// stored degree with max(stored, fact.Degree) if present. This realises
// fuzzy-OR semantics and is idempotent and monotonic (§8 invariant 3).
// Returns true if the store changed (new key, or degree increased).
func (s *FactStore) InsertOrCombine(fact *Fact) bool {
	k := fact.key()
	existing, ok := s.facts[k]
	if !ok {
		s.facts[k] = &Fact{Predicate: fact.Predicate, Args: append([]string(nil), fact.Args...), Degree: fact.Degree}
		s.order = append(s.order, k)
		return true
	}
	if fact.Degree > existing.Degree {
		s.facts[k] = &Fact{Predicate: fact.Predicate, Args: append([]string(nil), fact.Args...), Degree: fact.Degree}
		return true
	}
	return false
}

// Set unconditionally replaces the stored fact (used by Modify), or
// inserts it if absent (Modify on an absent key behaves as Add per §3).
// Returns true if the store changed (new key, or degree differs).
func (s *FactStore) Set(fact *Fact) bool {
	k := fact.key()
	existing, ok := s.facts[k]
	if !ok {
		s.facts[k] = &Fact{Predicate: fact.Predicate, Args: append([]string(nil), fact.Args...), Degree: fact.Degree}
		s.order = append(s.order, k)
		return true
	}
	if existing.Degree != fact.Degree {
		s.facts[k] = &Fact{Predicate: fact.Predicate, Args: append([]string(nil), fact.Args...), Degree: fact.Degree}
		return true
	}
	return false
}

// Remove idempotently deletes the fact with the given identity. Returns
// true if a fact was present and removed.
func (s *FactStore) Remove(predicate string, args []string) bool {
	k := factKey{Predicate: predicate, Args: strings.Join(args, "\x1f")}
	if _, ok := s.facts[k]; !ok {
		return false
	}
	delete(s.facts, k)
	for i, ok := range s.order {
		if ok == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Lookup returns the stored fact with the given identity, if any.
func (s *FactStore) Lookup(predicate string, args []string) (*Fact, bool) {
	k := factKey{Predicate: predicate, Args: strings.Join(args, "\x1f")}
	f, ok := s.facts[k]
	return f, ok
}

// Scan returns every stored fact with the given predicate, in a stable
// order determined by insertion sequence (§4.3: "unspecified but
// deterministic for a given insertion sequence").
func (s *FactStore) Scan(predicate string) []*Fact {
	var out []*Fact
	for _, k := range s.order {
		if k.Predicate == predicate {
			out = append(out, s.facts[k])
		}
	}
	return out
}

// All returns every stored fact, in insertion order.
func (s *FactStore) All() []*Fact {
	out := make([]*Fact, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.facts[k])
	}
	return out
}

// Len returns the number of stored facts.
func (s *FactStore) Len() int { return len(s.facts) }

// Clear removes every stored fact.
func (s *FactStore) Clear() {
	s.facts = make(map[factKey]*Fact)
	s.order = nil
}

// Clone returns a deep copy of the store that shares no mutable state
// with the original.
func (s *FactStore) Clone() *FactStore {
	c := NewFactStore()
	for _, f := range s.All() {
		c.InsertOrCombine(f)
	}
	return c
}

// sortedPredicates returns the set of distinct predicates present,
// sorted, used only for deterministic reporting (e.g. ToDict ordering
// is insertion order, not this — this helper backs diagnostics only).
func (s *FactStore) sortedPredicates() []string {
	seen := make(map[string]struct{})
	for k := range s.facts {
		seen[k.Predicate] = struct{}{}
	}
	preds := make([]string, 0, len(seen))
	for p := range seen {
		preds = append(preds, p)
	}
	sort.Strings(preds)
	return preds
}
