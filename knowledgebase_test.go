package fuzzyinfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// mustAddFact adds fact and fails the test immediately if it is rejected,
// used throughout the test suite to keep fact setup terse now that
// AddFact validates its argument.
func mustAddFact(t *testing.T, kb *KnowledgeBase, fact *Fact) bool {
	t.Helper()
	ok, err := kb.AddFact(fact)
	require.NoError(t, err)
	return ok
}

func TestKnowledgeBaseClear(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	mustAddFact(t, kb, &Fact{Predicate: "a", Args: []string{"x"}, Degree: 0.5})
	require.NoError(kb.AddRule(NewRuleBuilder().Named("r").When("a", "?x").ThenAdd("b", 0.5, "?x").Build()))

	require.Equal(1, len(kb.GetFacts()))
	require.Equal(1, len(kb.GetRules()))

	kb.Clear()
	require.Equal(0, len(kb.GetFacts()))
	require.Equal(0, len(kb.GetRules()))
}

func TestKnowledgeBaseAddFactRejectsOutOfBoundDegree(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	_, err := kb.AddFact(&Fact{Predicate: "a", Args: []string{"x"}, Degree: 5.0})
	require.Error(err)
	require.ErrorIs(err, ErrValidation)
	require.Empty(kb.GetFacts())
}

func TestKnowledgeBaseExplainReportsStoredFactAndDegree(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	mustAddFact(t, kb, &Fact{Predicate: "a", Args: []string{"x"}, Degree: 0.9})

	require.Contains(kb.Explain("a", []string{"x"}), "0.90")
	require.Contains(kb.Explain("a", []string{"missing"}), "not found")
}

func TestKnowledgeBaseAskRunsInferenceAndCollectsBindings(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	mustAddFact(t, kb, &Fact{Predicate: "is-person", Args: []string{"alice"}, Degree: 1.0})
	mustAddFact(t, kb, &Fact{Predicate: "is-person", Args: []string{"bob"}, Degree: 1.0})
	require.NoError(kb.AddRule(NewRuleBuilder().Named("tall").When("is-person", "?x").ThenAdd("is-tall", 1.0, "?x").Build()))

	bindings, err := kb.Ask([]Condition{
		&AtomCondition{Predicate: "is-person", Args: []Term{VarRef("x")}},
		&AtomCondition{Predicate: "is-tall", Args: []Term{VarRef("x")}},
	})
	require.NoError(err)
	require.Len(bindings, 2)

	var names []string
	for _, b := range bindings {
		x, ok := b.Symbol("x")
		require.True(ok)
		names = append(names, x)
	}
	require.ElementsMatch([]string{"alice", "bob"}, names)
}

func TestKnowledgeBaseAddRulesStopsAtFirstValidationError(t *testing.T) {
	require := require.New(t)
	kb := NewKnowledgeBase(nil)
	good := NewRuleBuilder().Named("good").When("a", "?x").ThenAdd("b", 0.5, "?x").Build()
	bad := &Rule{Name: "bad"}

	err := kb.AddRules([]*Rule{good, bad})
	require.Error(err)
	require.Equal(1, len(kb.GetRules()))
}
