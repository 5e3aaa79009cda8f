package fuzzyinfer

// MatchResult is one binding-extension produced by matching a Condition
// against the fact store, paired with the degree that extension
// contributes (§4.2).
type MatchResult struct {
	Bindings Bindings
	Degree   float64
}

// Match evaluates cond against store starting from bindings, returning
// every distinct binding-extension that satisfies it together with its
// contributed degree. This mirrors the completeness-preserving matcher
// in the reference implementation's _match_all_conditions: every
// satisfying fact is explored, not just the first.
func Match(cond Condition, bindings Bindings, store *FactStore) ([]MatchResult, error) {
	switch c := cond.(type) {
	case *AtomCondition:
		return matchAtom(c, bindings, store)
	case *AndCondition:
		return matchAnd(c, bindings, store)
	case *OrCondition:
		return matchOr(c, bindings, store)
	case *NotCondition:
		return matchNot(c, bindings, store)
	default:
		return nil, newValidationError("unrecognised condition type")
	}
}

func matchAtom(c *AtomCondition, bindings Bindings, store *FactStore) ([]MatchResult, error) {
	var results []MatchResult
	for _, fact := range store.Scan(c.Predicate) {
		if len(fact.Args) != len(c.Args) {
			continue
		}
		extended, ok := unifyArgs(c.Args, fact.Args, bindings)
		if !ok {
			continue
		}
		if c.DegreeVar != "" {
			if existing, bound := extended.Degree(c.DegreeVar); bound && existing != fact.Degree {
				continue
			}
			extended = extended.Clone()
			extended[c.DegreeVar] = fact.Degree
		}
		if c.DegreeConstraint != nil {
			ok, err := c.DegreeConstraint.Eval(extended)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		results = append(results, MatchResult{Bindings: extended, Degree: fact.Degree})
	}
	return results, nil
}

// unifyArgs attempts to extend bindings so that each pattern arg is
// consistent with the corresponding fact argument. A Literal must equal
// the fact argument exactly; a VarRef either adopts the fact argument (if
// unbound) or must already be bound to the same value (repeated-variable
// consistency).
func unifyArgs(pattern []Term, factArgs []string, bindings Bindings) (Bindings, bool) {
	extended := bindings.Clone()
	for i, p := range pattern {
		switch t := p.(type) {
		case Literal:
			if string(t) != factArgs[i] {
				return nil, false
			}
		case VarRef:
			if existing, ok := extended.Symbol(string(t)); ok {
				if existing != factArgs[i] {
					return nil, false
				}
				continue
			}
			extended[string(t)] = factArgs[i]
		default:
			return nil, false
		}
	}
	return extended, true
}

// matchAnd folds children left-to-right: each child is matched under
// every binding-extension produced so far, and the contributed degree is
// the min T-norm across children (empty AND is vacuously true at degree
// 1.0, per §4.1/§4.2).
func matchAnd(c *AndCondition, bindings Bindings, store *FactStore) ([]MatchResult, error) {
	frontier := []MatchResult{{Bindings: bindings, Degree: 1.0}}
	for _, child := range c.Children {
		var next []MatchResult
		for _, mr := range frontier {
			childResults, err := Match(child, mr.Bindings, store)
			if err != nil {
				return nil, err
			}
			for _, cr := range childResults {
				next = append(next, MatchResult{
					Bindings: cr.Bindings,
					Degree:   MinTNorm(mr.Degree, cr.Degree),
				})
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return nil, nil
		}
	}
	return frontier, nil
}

// matchOr unions the results of every child matched independently under
// the same starting bindings, deduplicating identical binding-extensions
// by keeping the max T-conorm degree (§4.1/§4.2).
func matchOr(c *OrCondition, bindings Bindings, store *FactStore) ([]MatchResult, error) {
	var merged []MatchResult
	for _, child := range c.Children {
		childResults, err := Match(child, bindings, store)
		if err != nil {
			return nil, err
		}
		for _, cr := range childResults {
			merged = mergeOrResult(merged, cr)
		}
	}
	return merged, nil
}

func mergeOrResult(merged []MatchResult, cr MatchResult) []MatchResult {
	for i, existing := range merged {
		if existing.Bindings.equal(cr.Bindings) {
			merged[i].Degree = MaxTConorm(existing.Degree, cr.Degree)
			return merged
		}
	}
	return append(merged, cr)
}

// matchNot succeeds, contributing no new bindings at degree 1.0, only
// when Child has no satisfying extension of the current bindings —
// negation as failure. It never itself extends bindings (§4.2).
func matchNot(c *NotCondition, bindings Bindings, store *FactStore) ([]MatchResult, error) {
	childResults, err := Match(c.Child, bindings, store)
	if err != nil {
		return nil, err
	}
	if len(childResults) > 0 {
		return nil, nil
	}
	return []MatchResult{{Bindings: bindings, Degree: 1.0}}, nil
}
