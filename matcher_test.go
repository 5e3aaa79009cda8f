package fuzzyinfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustFact(t *testing.T, predicate string, args []string, degree float64) *Fact {
	t.Helper()
	f, err := NewFact(predicate, args, degree)
	require.NoError(t, err)
	return f
}

func TestMatchAtomBindsVariablesAndDegree(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"zebra"}, 0.9))
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"tiger"}, 0.7))

	cond := &AtomCondition{
		Predicate: "has_stripes",
		Args:      []Term{VarRef("x")},
		DegreeVar: "d",
	}
	results, err := Match(cond, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 2)

	byX := map[string]float64{}
	for _, r := range results {
		x, _ := r.Bindings.Symbol("x")
		d, _ := r.Bindings.Degree("d")
		byX[x] = d
	}
	require.Equal(0.9, byX["zebra"])
	require.Equal(0.7, byX["tiger"])
}

func TestMatchAtomRepeatedVariableConsistency(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "likes", []string{"zebra", "zebra"}, 0.5))
	store.InsertOrCombine(mustFact(t, "likes", []string{"zebra", "lion"}, 0.4))

	cond := &AtomCondition{Predicate: "likes", Args: []Term{VarRef("x"), VarRef("x")}}
	results, err := Match(cond, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	x, _ := results[0].Bindings.Symbol("x")
	require.Equal("zebra", x)
}

func TestMatchAtomDegreeConstraintFilters(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"zebra"}, 0.9))
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"donkey"}, 0.1))

	cond := &AtomCondition{
		Predicate: "has_stripes",
		Args:      []Term{VarRef("x")},
		DegreeVar: "d",
		DegreeConstraint: &DegreeConstraint{
			Op:  OpGreaterEqual,
			Lhs: DegreeOperand{IsVar: true, Var: "d"},
			Rhs: DegreeOperand{Value: 0.5},
		},
	}
	results, err := Match(cond, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	x, _ := results[0].Bindings.Symbol("x")
	require.Equal("zebra", x)
}

func TestMatchAndFoldsMinDegree(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "has_stripes", []string{"zebra"}, 0.9))
	store.InsertOrCombine(mustFact(t, "is_mammal", []string{"zebra"}, 0.6))

	and := &AndCondition{Children: []Condition{
		&AtomCondition{Predicate: "has_stripes", Args: []Term{VarRef("x")}},
		&AtomCondition{Predicate: "is_mammal", Args: []Term{VarRef("x")}},
	}}
	results, err := Match(and, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(0.6, results[0].Degree)
}

func TestMatchAndEmptyChildrenVacuouslyTrue(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	and := &AndCondition{}
	results, err := Match(and, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(1.0, results[0].Degree)
}

func TestMatchOrUnionsAndDedupsByMaxDegree(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "striped", []string{"zebra"}, 0.9))
	store.InsertOrCombine(mustFact(t, "spotted", []string{"zebra"}, 0.4))

	or := &OrCondition{Children: []Condition{
		&AtomCondition{Predicate: "striped", Args: []Term{VarRef("x")}},
		&AtomCondition{Predicate: "spotted", Args: []Term{VarRef("x")}},
	}}
	results, err := Match(or, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(0.9, results[0].Degree)
}

func TestMatchNotSucceedsOnlyWhenChildEmpty(t *testing.T) {
	require := require.New(t)
	store := NewFactStore()
	store.InsertOrCombine(mustFact(t, "is_bird", []string{"penguin"}, 0.8))

	not := &NotCondition{Child: &AtomCondition{Predicate: "can_fly", Args: []Term{Literal("penguin")}}}
	results, err := Match(not, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 1)
	require.Equal(1.0, results[0].Degree)

	store.InsertOrCombine(mustFact(t, "can_fly", []string{"penguin"}, 0.9))
	results, err = Match(not, Bindings{}, store)
	require.NoError(err)
	require.Len(results, 0)
}
