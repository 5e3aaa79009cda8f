package fuzzyinfer

import (
	"fmt"
	"sort"
	"strings"
)

// Rule pairs a sequence of Conditions with a sequence of Actions, fired
// once per distinct binding extension of its conditions (§3).
type Rule struct {
	Name        string
	Description string
	Conditions  []Condition
	Actions     []Action
	Priority    int

	seq int // insertion sequence, used to break priority ties
}

// String renders the rule as "name: cond1, cond2 -> action1, action2",
// falling back to "<anonymous>" for an unnamed rule.
func (r *Rule) String() string {
	name := r.Name
	if name == "" {
		name = "<anonymous>"
	}
	conds := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		conds[i] = c.String()
	}
	actions := make([]string, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = fmt.Sprintf("%s %s", a.Kind(), a.Template().Predicate)
	}
	return fmt.Sprintf("%s: %s -> %s", name, strings.Join(conds, ", "), strings.Join(actions, ", "))
}

// identity returns the rule's identity for conflict detection: its Name
// if present, else a structural hash of conditions+actions (§3).
func (r *Rule) identity() string {
	if r.Name != "" {
		return r.Name
	}
	return structuralHash(r)
}

func structuralHash(r *Rule) string {
	h := "#"
	for _, c := range r.Conditions {
		h += c.String() + "|"
	}
	h += ">"
	for _, a := range r.Actions {
		t := a.Template()
		h += string(a.Kind()) + ":" + t.Predicate + "|"
	}
	return h
}

// Validate checks that the rule has at least one action and that every
// variable referenced in any action of the rule is bound somewhere in the
// rule's conditions. Variables referenced in a condition's degree
// constraint are not checked; a constraint whose variable is unbound
// fails at match time instead. A rule with zero conditions
// is valid: its (vacuously true) empty AND matches once per pass with no
// bindings (§8), so it fires unconditionally as long as its actions need
// no variable.
func (r *Rule) Validate() error {
	if len(r.Actions) == 0 {
		return newValidationError("rule %q must have at least one action", r.Name)
	}
	bound := make(map[string]struct{})
	for _, c := range r.Conditions {
		collectBindableVars(c, bound)
	}
	for _, a := range r.Actions {
		needed := make(map[string]struct{})
		a.Template().collectVars(needed)
		for v := range needed {
			if _, ok := bound[v]; !ok {
				return newValidationError("rule %q: variable %q in action is never bound by a condition", r.Name, "?"+v)
			}
		}
	}
	return nil
}

// collectBindableVars collects variables that a condition can actually
// bind, which excludes a Not condition's child (Not never extends
// bindings, per §4.2) but includes And/Or/Atom bindings.
func collectBindableVars(c Condition, out map[string]struct{}) {
	switch cond := c.(type) {
	case *AtomCondition:
		for _, arg := range cond.Args {
			if v, ok := arg.(VarRef); ok {
				out[string(v)] = struct{}{}
			}
		}
		if cond.DegreeVar != "" {
			out[cond.DegreeVar] = struct{}{}
		}
	case *AndCondition:
		for _, ch := range cond.Children {
			collectBindableVars(ch, out)
		}
	case *OrCondition:
		for _, ch := range cond.Children {
			collectBindableVars(ch, out)
		}
	case *NotCondition:
		// intentionally not collected: Not never extends bindings.
	}
}

// RuleSet keeps rules sorted by descending priority, insertion order
// breaking ties (§3 invariant 3).
type RuleSet struct {
	rules   []*Rule
	nextSeq int
}

// NewRuleSet returns an empty rule set.
func NewRuleSet() *RuleSet { return &RuleSet{} }

// Add inserts a rule, re-sorting to maintain descending-priority order
// with insertion-order tie-break.
func (rs *RuleSet) Add(r *Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	stored := *r
	stored.seq = rs.nextSeq
	rs.nextSeq++
	rs.rules = append(rs.rules, &stored)
	sort.SliceStable(rs.rules, func(i, j int) bool {
		if rs.rules[i].Priority != rs.rules[j].Priority {
			return rs.rules[i].Priority > rs.rules[j].Priority
		}
		return rs.rules[i].seq < rs.rules[j].seq
	})
	return nil
}

// All returns the rules in descending-priority, insertion-tie-break
// order.
func (rs *RuleSet) All() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Clear removes every rule.
func (rs *RuleSet) Clear() {
	rs.rules = nil
	rs.nextSeq = 0
}

// Remove deletes the rule with the given identity, if present, and
// reports whether anything was removed.
func (rs *RuleSet) Remove(identity string) bool {
	for i, r := range rs.rules {
		if r.identity() == identity {
			rs.rules = append(rs.rules[:i], rs.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Replace substitutes the rule with r's identity for r, preserving r's
// place in priority order by re-adding it. No-op if no rule with that
// identity is present.
func (rs *RuleSet) Replace(r *Rule) {
	if !rs.Remove(r.identity()) {
		return
	}
	_ = rs.Add(r)
}

// Clone returns a copy of the rule set backed by the same *Rule pointers
// (rules are never mutated in place after Validate, so sharing them is
// safe) but with an independent slice, so merge results never share
// mutable state with their inputs.
func (rs *RuleSet) Clone() *RuleSet {
	c := &RuleSet{rules: append([]*Rule(nil), rs.rules...), nextSeq: rs.nextSeq}
	return c
}

// RuleBuilder is a fluent convenience constructor for Rule, provided as
// an ergonomic alternative to the text schema (§9 "Fluent/builder
// surface"). A rule built here is indistinguishable from one parsed from
// the JSON/YAML schema.
type RuleBuilder struct {
	rule          Rule
	lastCondition *AtomCondition
	lastAction    *FactTemplate
	autoDegreeVar string
}

// NewRuleBuilder starts a new rule builder.
func NewRuleBuilder() *RuleBuilder { return &RuleBuilder{} }

// Named sets the rule's name.
func (b *RuleBuilder) Named(name string) *RuleBuilder {
	b.rule.Name = name
	return b
}

// WithPriority sets the rule's priority.
func (b *RuleBuilder) WithPriority(p int) *RuleBuilder {
	b.rule.Priority = p
	return b
}

// When adds a positive condition matching predicate(args...).
func (b *RuleBuilder) When(predicate string, args ...string) *RuleBuilder {
	cond := &AtomCondition{Predicate: predicate, Args: parseTerms(args)}
	b.rule.Conditions = append(b.rule.Conditions, cond)
	b.lastCondition = cond
	return b
}

// WhenNot adds a negated condition: the rule requires predicate(args...)
// to have no match.
func (b *RuleBuilder) WhenNot(predicate string, args ...string) *RuleBuilder {
	inner := &AtomCondition{Predicate: predicate, Args: parseTerms(args)}
	b.rule.Conditions = append(b.rule.Conditions, &NotCondition{Child: inner})
	b.lastCondition = nil
	return b
}

// WithDegreeAbove adds a ">" degree constraint to the most recently added
// atom condition, binding its matched degree to a fresh degree variable.
func (b *RuleBuilder) WithDegreeAbove(threshold float64) *RuleBuilder {
	return b.withDegreeConstraint(OpGreater, threshold)
}

// WithDegreeBelow adds a "<" degree constraint to the most recently added
// atom condition, binding its matched degree to a fresh degree variable.
func (b *RuleBuilder) WithDegreeBelow(threshold float64) *RuleBuilder {
	return b.withDegreeConstraint(OpLess, threshold)
}

func (b *RuleBuilder) withDegreeConstraint(op DegreeConstraintOp, threshold float64) *RuleBuilder {
	if b.lastCondition == nil {
		panic("fuzzyinfer: no atom condition to attach a degree constraint to")
	}
	varName := fmt.Sprintf("_d%d", len(b.rule.Conditions))
	b.lastCondition.DegreeVar = varName
	b.lastCondition.DegreeConstraint = &DegreeConstraint{
		Op:  op,
		Lhs: DegreeOperand{IsVar: true, Var: varName},
		Rhs: DegreeOperand{Value: threshold},
	}
	b.autoDegreeVar = varName
	return b
}

// ThenAdd adds an Add action instantiating predicate(args...) at the
// given fixed degree.
func (b *RuleBuilder) ThenAdd(predicate string, degree float64, args ...string) *RuleBuilder {
	tmpl := &FactTemplate{Predicate: predicate, Args: parseTerms(args), Degree: NumberExpr(degree)}
	b.rule.Actions = append(b.rule.Actions, &AddAction{Fact: tmpl})
	b.lastAction = tmpl
	return b
}

// WithDegreeMultipliedBy rewrites the most recently added action's
// degree expression to factor * (the degree bound by the preceding
// WithDegreeAbove/WithDegreeBelow call, or the first condition's degree
// if none was set).
func (b *RuleBuilder) WithDegreeMultipliedBy(factor float64) *RuleBuilder {
	if b.lastAction == nil {
		panic("fuzzyinfer: no add action to attach a degree multiplier to")
	}
	varName := b.autoDegreeVar
	if varName == "" {
		if len(b.rule.Conditions) == 0 {
			panic("fuzzyinfer: no condition to bind an implicit degree variable to")
		}
		atom, ok := b.rule.Conditions[0].(*AtomCondition)
		if !ok {
			panic("fuzzyinfer: first condition is not an atom, cannot bind an implicit degree variable")
		}
		varName = "_deg"
		atom.DegreeVar = varName
		b.autoDegreeVar = varName
	}
	b.lastAction.Degree = &OpExpr{Op: DegreeMul, Args: []DegreeExpr{NumberExpr(factor), VarExpr(varName)}}
	return b
}

// ThenRetract adds a Retract action for predicate(args...).
func (b *RuleBuilder) ThenRetract(predicate string, args ...string) *RuleBuilder {
	tmpl := &FactTemplate{Predicate: predicate, Args: parseTerms(args)}
	b.rule.Actions = append(b.rule.Actions, &RetractAction{Fact: tmpl})
	b.lastAction = nil
	return b
}

// Build returns the constructed Rule.
func (b *RuleBuilder) Build() *Rule {
	r := b.rule
	return &r
}

func parseTerms(args []string) []Term {
	out := make([]Term, len(args))
	for i, a := range args {
		out[i] = ParseTerm(a)
	}
	return out
}
