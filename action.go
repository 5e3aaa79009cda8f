package fuzzyinfer

// ActionKind identifies the effect an Action has on the fact store.
type ActionKind string

// The three action kinds recognised by the core (§3).
const (
	ActionAdd     ActionKind = "add"
	ActionRetract ActionKind = "remove"
	ActionModify  ActionKind = "modify"
)

// FactTemplate is an uninstantiated fact: args may contain variables,
// and the degree is an expression evaluated at instantiation time.
type FactTemplate struct {
	Predicate string
	Args      []Term
	Degree    DegreeExpr // nil means "use the rule's match degree"
}

// collectVars appends every variable referenced by the template's args
// or degree expression.
func (t *FactTemplate) collectVars(out map[string]struct{}) {
	for _, arg := range t.Args {
		if v, ok := arg.(VarRef); ok {
			out[string(v)] = struct{}{}
		}
	}
	if t.Degree != nil {
		t.Degree.collectVars(out)
	}
}

// instantiate substitutes bound variables into the template's args and
// evaluates its degree expression, returning a concrete Fact. matchDegree
// is used when the template carries no explicit degree expression.
func (t *FactTemplate) instantiate(b Bindings, matchDegree float64) (*Fact, error) {
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		switch a := arg.(type) {
		case Literal:
			args[i] = string(a)
		case VarRef:
			v, ok := b.Symbol(string(a))
			if !ok {
				return nil, newValidationError("unbound variable %q in action arguments", a.String())
			}
			args[i] = v
		default:
			return nil, newValidationError("unrecognised term type in action arguments")
		}
	}
	degree := matchDegree
	if t.Degree != nil {
		d, err := t.Degree.Eval(b)
		if err != nil {
			return nil, err
		}
		degree = d
	}
	degree = clampDegree(degree)
	return &Fact{Predicate: t.Predicate, Args: args, Degree: degree}, nil
}

func clampDegree(d float64) float64 {
	if d < 0.0 {
		return 0.0
	}
	if d > 1.0 {
		return 1.0
	}
	return d
}

// Action is a tagged variant applied by the driver when a rule fires:
// Add, Retract, or Modify (§3).
type Action interface {
	Kind() ActionKind
	Template() *FactTemplate
}

// AddAction instantiates its template and combines it into the fact
// store by fuzzy-OR.
type AddAction struct{ Fact *FactTemplate }

// Kind reports the action kind.
func (a *AddAction) Kind() ActionKind { return ActionAdd }

// Template returns the action's fact template.
func (a *AddAction) Template() *FactTemplate { return a.Fact }

// RetractAction removes the fact whose identity matches the instantiated
// template.
type RetractAction struct{ Fact *FactTemplate }

// Kind reports the action kind.
func (a *RetractAction) Kind() ActionKind { return ActionRetract }

// Template returns the action's fact template.
func (a *RetractAction) Template() *FactTemplate { return a.Fact }

// ModifyAction sets the degree of the matching fact; if absent, behaves
// as Add (§3, §9 Open Question).
type ModifyAction struct{ Fact *FactTemplate }

// Kind reports the action kind.
func (a *ModifyAction) Kind() ActionKind { return ActionModify }

// Template returns the action's fact template.
func (a *ModifyAction) Template() *FactTemplate { return a.Fact }
