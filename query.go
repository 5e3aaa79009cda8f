package fuzzyinfer

// QueryResult is one fact returned by Query, paired with the bindings a
// wildcard/variable argument resolved to.
type QueryResult struct {
	Fact     *Fact
	Bindings Bindings
}

// Query returns every stored fact for predicate whose arguments are
// consistent with pattern, where a nil pattern matches every fact
// regardless of arity, and within a non-nil pattern a "_"-wildcard entry
// matches any argument value and a "?name" entry binds that value (§4.6).
func Query(store *FactStore, predicate string, pattern []string) []QueryResult {
	var out []QueryResult
	for _, fact := range store.Scan(predicate) {
		if pattern == nil {
			out = append(out, QueryResult{Fact: fact, Bindings: Bindings{}})
			continue
		}
		if len(fact.Args) != len(pattern) {
			continue
		}
		bindings := Bindings{}
		matched := true
		for i, p := range pattern {
			switch {
			case p == "" || p == "_":
				continue
			case IsVariableName(p):
				name := string(p[1:])
				if existing, ok := bindings.Symbol(name); ok && existing != fact.Args[i] {
					matched = false
				} else {
					bindings[name] = fact.Args[i]
				}
			default:
				if p != fact.Args[i] {
					matched = false
				}
			}
			if !matched {
				break
			}
		}
		if matched {
			out = append(out, QueryResult{Fact: fact, Bindings: bindings})
		}
	}
	return out
}

// Ask returns the degree of belief in predicate(args...), and false if no
// such fact is present. This is the single-fact convenience form of
// Query; it does not run inference (KnowledgeBase.Ask does).
func Ask(store *FactStore, predicate string, args []string) (float64, bool) {
	fact, ok := store.Lookup(predicate, args)
	if !ok {
		return 0, false
	}
	return fact.Degree, true
}
