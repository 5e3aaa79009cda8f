package fuzzyinfer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func buildSampleKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb := NewKnowledgeBase(nil)
	mustAddFact(t, kb, &Fact{Predicate: "is-zebra", Args: []string{"sam"}, Degree: 0.8})
	rule := &Rule{
		Name:     "stripes",
		Priority: 3,
		Conditions: []Condition{&AtomCondition{
			Predicate: "is-zebra",
			Args:      []Term{VarRef("x")},
			DegreeVar: "d",
			DegreeConstraint: &DegreeConstraint{
				Op:  OpGreater,
				Lhs: DegreeOperand{IsVar: true, Var: "d"},
				Rhs: DegreeOperand{Value: 0.5},
			},
		}},
		Actions: []Action{&AddAction{Fact: &FactTemplate{
			Predicate: "has-stripes",
			Args:      []Term{VarRef("x")},
			Degree:    &OpExpr{Op: DegreeMul, Args: []DegreeExpr{NumberExpr(0.9), VarExpr("d")}},
		}}},
	}
	require.NoError(t, kb.AddRule(rule))
	return kb
}

func TestToDictFromDictRoundTripsViaJSON(t *testing.T) {
	require := require.New(t)
	kb := buildSampleKB(t)

	dict, err := kb.ToDict()
	require.NoError(err)

	raw, err := json.Marshal(dict)
	require.NoError(err)

	var decoded map[string]any
	require.NoError(json.Unmarshal(raw, &decoded))

	kb2, err := FromDict(decoded, nil)
	require.NoError(err)

	require.Equal(kb.GetFacts()[0].Degree, kb2.GetFacts()[0].Degree)
	require.Len(kb2.GetRules(), 1)
	require.Equal("stripes", kb2.GetRules()[0].Name)

	_, err = kb2.Run(0)
	require.NoError(err)
	d, ok := kb2.Degree("has-stripes", []string{"sam"})
	require.True(ok)
	require.InDelta(0.72, d, 1e-9)
}

func TestToDictFromDictRoundTripsViaYAML(t *testing.T) {
	require := require.New(t)
	kb := buildSampleKB(t)

	dict, err := kb.ToDict()
	require.NoError(err)

	raw, err := yaml.Marshal(dict)
	require.NoError(err)

	var decoded map[string]any
	require.NoError(yaml.Unmarshal(raw, &decoded))

	kb2, err := FromDict(normalizeYAMLMap(decoded), nil)
	require.NoError(err)
	require.Len(kb2.GetFacts(), 1)
	require.Len(kb2.GetRules(), 1)
}

func TestToDictFromDictComposeDirectlyWithoutMarshal(t *testing.T) {
	require := require.New(t)
	kb := buildSampleKB(t)

	dict, err := kb.ToDict()
	require.NoError(err)

	kb2, err := FromDict(dict, nil)
	require.NoError(err)

	require.Len(kb2.GetFacts(), 1)
	require.Equal(kb.GetFacts()[0].Degree, kb2.GetFacts()[0].Degree)
	require.Len(kb2.GetRules(), 1)
	require.Equal("stripes", kb2.GetRules()[0].Name)
}

func TestSaveLoadFileRoundTrip(t *testing.T) {
	require := require.New(t)
	kb := buildSampleKB(t)

	dir := t.TempDir()
	jsonPath := dir + "/kb.json"
	require.NoError(kb.SaveToFile(jsonPath))

	loaded, err := LoadFromFile(jsonPath, nil)
	require.NoError(err)
	require.Len(loaded.GetFacts(), 1)
	require.Len(loaded.GetRules(), 1)

	yamlPath := dir + "/kb.yaml"
	require.NoError(kb.SaveToFile(yamlPath))
	loadedYAML, err := LoadFromFile(yamlPath, nil)
	require.NoError(err)
	require.Len(loadedYAML.GetFacts(), 1)
	require.Len(loadedYAML.GetRules(), 1)
}
