package fuzzyinfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuleSetOrdersByPriorityThenInsertion(t *testing.T) {
	require := require.New(t)
	rs := NewRuleSet()

	low := NewRuleBuilder().Named("low").When("a", "?x").ThenAdd("b", 0.5, "?x").WithPriority(1).Build()
	high := NewRuleBuilder().Named("high").When("a", "?x").ThenAdd("b", 0.5, "?x").WithPriority(10).Build()
	firstMid := NewRuleBuilder().Named("first-mid").When("a", "?x").ThenAdd("b", 0.5, "?x").WithPriority(5).Build()
	secondMid := NewRuleBuilder().Named("second-mid").When("a", "?x").ThenAdd("b", 0.5, "?x").WithPriority(5).Build()

	require.NoError(rs.Add(low))
	require.NoError(rs.Add(high))
	require.NoError(rs.Add(firstMid))
	require.NoError(rs.Add(secondMid))

	names := make([]string, rs.Len())
	for i, r := range rs.All() {
		names[i] = r.Name
	}
	require.Equal([]string{"high", "first-mid", "second-mid", "low"}, names)
}

func TestRuleValidateRejectsUnboundActionVariable(t *testing.T) {
	require := require.New(t)
	r := &Rule{
		Name:       "bad",
		Conditions: []Condition{&AtomCondition{Predicate: "a", Args: []Term{VarRef("x")}}},
		Actions: []Action{&AddAction{Fact: &FactTemplate{
			Predicate: "b",
			Args:      []Term{VarRef("y")},
		}}},
	}
	err := r.Validate()
	require.Error(err)
	require.ErrorIs(err, ErrValidation)
}

func TestRuleValidateAllowsBoundActionVariable(t *testing.T) {
	require := require.New(t)
	r := &Rule{
		Name:       "good",
		Conditions: []Condition{&AtomCondition{Predicate: "a", Args: []Term{VarRef("x")}}},
		Actions: []Action{&AddAction{Fact: &FactTemplate{
			Predicate: "b",
			Args:      []Term{VarRef("x")},
		}}},
	}
	require.NoError(r.Validate())
}

func TestRuleValidateRejectsNotBoundVariableUse(t *testing.T) {
	require := require.New(t)
	r := &Rule{
		Name: "not-leak",
		Conditions: []Condition{
			&NotCondition{Child: &AtomCondition{Predicate: "a", Args: []Term{VarRef("x")}}},
		},
		Actions: []Action{&AddAction{Fact: &FactTemplate{
			Predicate: "b",
			Args:      []Term{VarRef("x")},
		}}},
	}
	err := r.Validate()
	require.Error(err)
}

func TestRuleValidateAllowsEmptyConditions(t *testing.T) {
	require := require.New(t)
	r := &Rule{
		Name:       "unconditional",
		Conditions: nil,
		Actions:    []Action{&AddAction{Fact: &FactTemplate{Predicate: "started", Degree: NumberExpr(1.0)}}},
	}
	require.NoError(r.Validate())
}

func TestRunFiresEmptyConditionRuleOncePerPass(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	rule := &Rule{
		Name:       "unconditional",
		Conditions: nil,
		Actions:    []Action{&AddAction{Fact: &FactTemplate{Predicate: "started", Degree: NumberExpr(1.0)}}},
	}
	require.NoError(kb.AddRule(rule))

	_, err := kb.Run(0)
	require.NoError(err)

	facts := kb.GetFacts()
	require.Len(facts, 1)
	require.Equal("started", facts[0].Predicate)
	require.Equal(1.0, facts[0].Degree)
}

func TestRuleStringRendersNameConditionsAndActions(t *testing.T) {
	require := require.New(t)
	rule := NewRuleBuilder().Named("stripes").When("is-zebra", "?x").ThenAdd("has-stripes", 1.0, "?x").Build()
	s := rule.String()
	require.Contains(s, "stripes")
	require.Contains(s, "is-zebra")
	require.Contains(s, "has-stripes")

	anon := NewRuleBuilder().When("a", "?x").ThenAdd("b", 1.0, "?x").Build()
	require.Contains(anon.String(), "<anonymous>")
}

func TestRuleBuilderWithDegreeMultipliedBy(t *testing.T) {
	require := require.New(t)
	rule := NewRuleBuilder().
		Named("scaled").
		When("has_stripes", "?x").
		WithDegreeAbove(0.5).
		ThenAdd("striped_animal", 0, "?x").
		WithDegreeMultipliedBy(0.8).
		Build()

	require.NoError(rule.Validate())

	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"zebra"}, 0.9))
	results, err := Match(rule.Conditions[0], Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)

	fact, err := rule.Actions[0].Template().instantiate(results[0].Bindings, results[0].Degree)
	require.NoError(err)
	require.InDelta(0.72, fact.Degree, 1e-9)
}
