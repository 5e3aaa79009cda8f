package fuzzyinfer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mailstepcz/slice"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// The conversions in this file mirror the JSON/YAML wire schema in §6
// exactly: a knowledge base is {"facts": [...], "rules": [...]}, a fact
// is {"pred", "args", "deg"} (deg defaults to 1.0 when absent), a
// condition variant is distinguished by which key is present ("pred" for
// an atom, "and"/"or"/"not" for a combinator) rather than by a "type"
// discriminator, and a degree expression is a number, a "?var" string,
// or an [op, ...args] array.

// ToDict renders the knowledge base into the wire schema described in
// §6, as plain map[string]any/[]any values so the result both
// marshals directly with json.Marshal/yaml.Marshal and round-trips
// straight back through FromDict with no marshal step in between.
func (kb *KnowledgeBase) ToDict() (map[string]any, error) {
	facts := make([]any, 0, kb.facts.Len())
	for _, f := range kb.facts.All() {
		facts = append(facts, factToDict(f))
	}
	rules := make([]any, 0, kb.rules.Len())
	for _, r := range kb.rules.All() {
		rules = append(rules, ruleToDict(r))
	}
	return map[string]any{"facts": facts, "rules": rules}, nil
}

func factToDict(f *Fact) map[string]any {
	return map[string]any{
		"pred": f.Predicate,
		"args": slice.Fmap(func(a string) any { return a }, f.Args),
		"deg":  f.Degree,
	}
}

func ruleToDict(r *Rule) map[string]any {
	conds := make([]any, len(r.Conditions))
	for i, c := range r.Conditions {
		conds[i] = conditionToDict(c)
	}
	actions := make([]any, len(r.Actions))
	for i, a := range r.Actions {
		actions[i] = actionToDict(a)
	}
	m := map[string]any{"cond": conds, "actions": actions}
	if r.Name != "" {
		m["name"] = r.Name
	}
	if r.Description != "" {
		m["description"] = r.Description
	}
	if r.Priority != 0 {
		m["priority"] = r.Priority
	}
	return m
}

func conditionToDict(c Condition) any {
	switch cond := c.(type) {
	case *AtomCondition:
		m := map[string]any{
			"pred": cond.Predicate,
			"args": slice.Fmap(func(t Term) any { return t.String() }, cond.Args),
		}
		if cond.DegreeVar != "" {
			m["deg"] = "?" + cond.DegreeVar
		}
		if cond.DegreeConstraint != nil {
			m["deg-pred"] = []any{
				string(cond.DegreeConstraint.Op),
				operandToDict(cond.DegreeConstraint.Lhs),
				operandToDict(cond.DegreeConstraint.Rhs),
			}
		}
		return m
	case *AndCondition:
		return map[string]any{"and": slice.Fmap(conditionToDict, cond.Children)}
	case *OrCondition:
		return map[string]any{"or": slice.Fmap(conditionToDict, cond.Children)}
	case *NotCondition:
		return map[string]any{"not": conditionToDict(cond.Child)}
	default:
		return nil
	}
}

func operandToDict(o DegreeOperand) any {
	if o.IsVar {
		return "?" + o.Var
	}
	return o.Value
}

func actionToDict(a Action) map[string]any {
	t := a.Template()
	fact := map[string]any{
		"pred": t.Predicate,
		"args": slice.Fmap(func(term Term) any { return term.String() }, t.Args),
	}
	if t.Degree != nil {
		fact["deg"] = degreeExprToDict(t.Degree)
	}
	return map[string]any{"action": string(a.Kind()), "fact": fact}
}

func degreeExprToDict(e DegreeExpr) any {
	switch d := e.(type) {
	case NumberExpr:
		return float64(d)
	case VarExpr:
		return "?" + string(d)
	case *OpExpr:
		out := make([]any, 0, len(d.Args)+1)
		out = append(out, string(d.Op))
		for _, a := range d.Args {
			out = append(out, degreeExprToDict(a))
		}
		return out
	default:
		return nil
	}
}

// FromDict reconstructs a KnowledgeBase from the wire schema produced by
// ToDict/json.Unmarshal/yaml.Unmarshal.
func FromDict(m map[string]any, logger *zap.Logger) (*KnowledgeBase, error) {
	kb := NewKnowledgeBase(logger)
	rawFacts, _ := m["facts"].([]any)
	for _, rf := range rawFacts {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "fact entry is not an object")
		}
		fact, err := factFromDict(fm)
		if err != nil {
			return nil, err
		}
		if _, err := kb.AddFact(fact); err != nil {
			return nil, err
		}
	}
	rawRules, _ := m["rules"].([]any)
	for _, rr := range rawRules {
		rm, ok := rr.(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "rule entry is not an object")
		}
		rule, err := ruleFromDict(rm)
		if err != nil {
			return nil, err
		}
		if err := kb.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return kb, nil
}

func factFromDict(m map[string]any) (*Fact, error) {
	predicate, _ := m["pred"].(string)
	degree, ok := toFloat(m["deg"])
	if !ok {
		degree = 1.0
	}
	args, err := stringSlice(m["args"])
	if err != nil {
		return nil, newSerializationError(err, "fact args")
	}
	return NewFact(predicate, args, degree)
}

func ruleFromDict(m map[string]any) (*Rule, error) {
	r := &Rule{}
	r.Name, _ = m["name"].(string)
	r.Description, _ = m["description"].(string)
	if p, ok := toFloat(m["priority"]); ok {
		r.Priority = int(p)
	}
	rawConds, _ := m["cond"].([]any)
	for _, rc := range rawConds {
		cm, ok := rc.(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "condition entry is not an object")
		}
		cond, err := conditionFromDict(cm)
		if err != nil {
			return nil, err
		}
		r.Conditions = append(r.Conditions, cond)
	}
	rawActions, _ := m["actions"].([]any)
	for _, ra := range rawActions {
		am, ok := ra.(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "action entry is not an object")
		}
		action, err := actionFromDict(am)
		if err != nil {
			return nil, err
		}
		r.Actions = append(r.Actions, action)
	}
	return r, nil
}

// conditionFromDict dispatches on which key is present, per §6: an
// "and"/"or"/"not" key identifies a combinator, and a "pred" key
// identifies an atom. There is no "type" discriminator.
func conditionFromDict(m map[string]any) (Condition, error) {
	switch {
	case m["and"] != nil:
		children, err := conditionsFromDict(m["and"])
		if err != nil {
			return nil, err
		}
		return &AndCondition{Children: children}, nil
	case m["or"] != nil:
		children, err := conditionsFromDict(m["or"])
		if err != nil {
			return nil, err
		}
		return &OrCondition{Children: children}, nil
	case m["not"] != nil:
		cm, ok := m["not"].(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "\"not\" condition must be an object")
		}
		child, err := conditionFromDict(cm)
		if err != nil {
			return nil, err
		}
		return &NotCondition{Child: child}, nil
	case m["pred"] != nil:
		predicate, _ := m["pred"].(string)
		argStrs, err := stringSlice(m["args"])
		if err != nil {
			return nil, newSerializationError(err, "atom condition args")
		}
		atom := &AtomCondition{Predicate: predicate, Args: slice.Fmap(ParseTerm, argStrs)}
		if dv, ok := m["deg"].(string); ok {
			atom.DegreeVar = strings.TrimPrefix(dv, "?")
		}
		if dc, ok := m["deg-pred"].([]any); ok {
			constraint, err := degreeConstraintFromDict(dc)
			if err != nil {
				return nil, err
			}
			atom.DegreeConstraint = constraint
		}
		return atom, nil
	default:
		return nil, newSerializationError(nil, "condition object has none of \"pred\", \"and\", \"or\", \"not\"")
	}
}

func conditionsFromDict(raw any) ([]Condition, error) {
	items, _ := raw.([]any)
	out := make([]Condition, 0, len(items))
	for _, it := range items {
		cm, ok := it.(map[string]any)
		if !ok {
			return nil, newSerializationError(nil, "condition entry is not an object")
		}
		c, err := conditionFromDict(cm)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func degreeConstraintFromDict(raw []any) (*DegreeConstraint, error) {
	if len(raw) != 3 {
		return nil, newSerializationError(nil, "deg-pred must have exactly 3 elements")
	}
	op, _ := raw[0].(string)
	lhs, err := operandFromDict(raw[1])
	if err != nil {
		return nil, err
	}
	rhs, err := operandFromDict(raw[2])
	if err != nil {
		return nil, err
	}
	return &DegreeConstraint{Op: DegreeConstraintOp(op), Lhs: lhs, Rhs: rhs}, nil
}

func operandFromDict(raw any) (DegreeOperand, error) {
	if s, ok := raw.(string); ok && IsVariableName(s) {
		return DegreeOperand{IsVar: true, Var: strings.TrimPrefix(s, "?")}, nil
	}
	v, ok := toFloat(raw)
	if !ok {
		return DegreeOperand{}, newSerializationError(nil, "degree operand is neither a number nor a \"?var\"")
	}
	return DegreeOperand{Value: v}, nil
}

func actionFromDict(m map[string]any) (Action, error) {
	kind, _ := m["action"].(string)
	fm, ok := m["fact"].(map[string]any)
	if !ok {
		return nil, newSerializationError(nil, "action missing \"fact\"")
	}
	predicate, _ := fm["pred"].(string)
	argStrs, err := stringSlice(fm["args"])
	if err != nil {
		return nil, newSerializationError(err, "action fact args")
	}
	tmpl := &FactTemplate{Predicate: predicate, Args: slice.Fmap(ParseTerm, argStrs)}
	if raw, present := fm["deg"]; present {
		expr, err := degreeExprFromDict(raw)
		if err != nil {
			return nil, err
		}
		tmpl.Degree = expr
	}
	switch ActionKind(kind) {
	case ActionAdd:
		return &AddAction{Fact: tmpl}, nil
	case ActionRetract:
		return &RetractAction{Fact: tmpl}, nil
	case ActionModify:
		return &ModifyAction{Fact: tmpl}, nil
	default:
		return nil, newSerializationError(nil, "unknown action kind %q", kind)
	}
}

func degreeExprFromDict(raw any) (DegreeExpr, error) {
	switch v := raw.(type) {
	case float64:
		return NumberExpr(v), nil
	case int:
		return NumberExpr(float64(v)), nil
	case string:
		if IsVariableName(v) {
			return VarExpr(strings.TrimPrefix(v, "?")), nil
		}
		return nil, newSerializationError(nil, "degree expression string %q is not a \"?var\"", v)
	case []any:
		if len(v) == 0 {
			return nil, newSerializationError(nil, "degree expression array is empty")
		}
		op, _ := v[0].(string)
		args := make([]DegreeExpr, 0, len(v)-1)
		for _, a := range v[1:] {
			expr, err := degreeExprFromDict(a)
			if err != nil {
				return nil, err
			}
			args = append(args, expr)
		}
		return &OpExpr{Op: DegreeOp(op), Args: args}, nil
	default:
		return nil, newSerializationError(nil, "unrecognised degree expression shape")
	}
}

func stringSlice(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		out[i] = s
	}
	return out, nil
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// SaveToFile serializes the knowledge base to path, choosing YAML for a
// ".yaml"/".yml" suffix and JSON otherwise (§6).
func (kb *KnowledgeBase) SaveToFile(path string) error {
	dict, err := kb.ToDict()
	if err != nil {
		return err
	}
	var data []byte
	if isYAMLPath(path) {
		data, err = yaml.Marshal(dict)
	} else {
		data, err = json.MarshalIndent(dict, "", "  ")
	}
	if err != nil {
		return newSerializationError(err, "marshal knowledge base")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newSerializationError(err, "write %s", path)
	}
	return nil
}

// LoadFromFile deserializes a knowledge base from path, dispatching on
// the same suffix rule as SaveToFile.
func LoadFromFile(path string, logger *zap.Logger) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newSerializationError(err, "read %s", path)
	}
	var dict map[string]any
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &dict)
	} else {
		err = json.Unmarshal(data, &dict)
	}
	if err != nil {
		return nil, newSerializationError(err, "unmarshal %s", path)
	}
	return FromDict(normalizeYAMLMap(dict), logger)
}

func isYAMLPath(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// normalizeYAMLMap recursively converts the map[any]any / map[string]any
// mix that yaml.v3 can produce into the map[string]any / []any shape
// FromDict expects, which is otherwise guaranteed by encoding/json.
func normalizeYAMLMap(v any) map[string]any {
	out, _ := normalizeYAMLValue(v).(map[string]any)
	return out
}

func normalizeYAMLValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeYAMLValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	case int:
		return float64(x)
	default:
		return v
	}
}
