package fuzzyinfer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// KnowledgeBase bundles a FactStore and a RuleSet behind the single
// façade an application actually drives (§6). Construct with NewKnowledgeBase.
type KnowledgeBase struct {
	facts  *FactStore
	rules  *RuleSet
	logger *zap.Logger
}

// NewKnowledgeBase returns an empty knowledge base. A nil logger defaults
// to a no-op logger, so callers that do not care about structured
// diagnostics can pass nil.
func NewKnowledgeBase(logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{facts: NewFactStore(), rules: NewRuleSet(), logger: logger}
}

// AddFact validates fact's degree bound, then inserts it, combining by
// fuzzy-OR with any existing fact of the same identity. Returns whether
// the store changed; an invalid fact is rejected with an error and never
// reaches the store (§7, §8 invariant 1).
func (kb *KnowledgeBase) AddFact(fact *Fact) (bool, error) {
	if err := validateFact(fact); err != nil {
		return false, err
	}
	return kb.facts.InsertOrCombine(fact), nil
}

// AddFacts inserts every fact in facts, stopping at the first validation
// failure.
func (kb *KnowledgeBase) AddFacts(facts []*Fact) error {
	for _, f := range facts {
		if _, err := kb.AddFact(f); err != nil {
			return err
		}
	}
	return nil
}

// AddRule validates and inserts rule, keeping the rule set sorted by
// descending priority.
func (kb *KnowledgeBase) AddRule(rule *Rule) error { return kb.rules.Add(rule) }

// AddRules validates and inserts every rule in rules, stopping at the
// first validation failure.
func (kb *KnowledgeBase) AddRules(rules []*Rule) error {
	for _, r := range rules {
		if err := kb.rules.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every fact and rule.
func (kb *KnowledgeBase) Clear() {
	kb.facts.Clear()
	kb.rules.Clear()
}

// GetFacts returns every stored fact in insertion order.
func (kb *KnowledgeBase) GetFacts() []*Fact { return kb.facts.All() }

// GetRules returns every rule in descending-priority order.
func (kb *KnowledgeBase) GetRules() []*Rule { return kb.rules.All() }

// Query returns every fact matching predicate and pattern (§4.6).
func (kb *KnowledgeBase) Query(predicate string, pattern []string) []QueryResult {
	return Query(kb.facts, predicate, pattern)
}

// Degree returns the degree of belief in predicate(args...), and false if
// no such fact is stored. This is the single-fact convenience lookup;
// Ask runs inference and matches an ad-hoc multi-atom condition list.
func (kb *KnowledgeBase) Degree(predicate string, args []string) (float64, bool) {
	return Ask(kb.facts, predicate, args)
}

// Ask runs inference to a fixed point, then returns every binding
// extension that satisfies conditions taken together as one implicit AND
// (matching the reference implementation's ask()). A caller wanting a
// single-fact lookup without triggering inference should use Degree or
// Query.
func (kb *KnowledgeBase) Ask(conditions []Condition) ([]Bindings, error) {
	if _, err := kb.Run(0); err != nil {
		return nil, err
	}
	results, err := matchConjunction(conditions, kb.facts)
	if err != nil {
		return nil, err
	}
	out := make([]Bindings, len(results))
	for i, r := range results {
		out[i] = r.Bindings
	}
	return out, nil
}

// Explain reports whether predicate(args...) is currently stored and at
// what degree, mirroring the reference implementation's explain(fact).
func (kb *KnowledgeBase) Explain(predicate string, args []string) string {
	fact, ok := kb.facts.Lookup(predicate, args)
	if !ok {
		return fmt.Sprintf("fact %s(%s) not found in knowledge base", predicate, strings.Join(args, ", "))
	}
	return fmt.Sprintf("fact %s(%s) exists with degree %.2f", predicate, strings.Join(args, ", "), fact.Degree)
}
