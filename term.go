package fuzzyinfer

import "strings"

// Term is either a ground symbol or a variable. Variables appear only in
// rule conditions, actions, and queries — never in stored facts.
type Term interface {
	// String renders the term in its human-readable printed form: bare
	// for a ground symbol, prefixed with "?" for a variable.
	String() string
	isVariable() bool
}

// Literal is a ground symbol term.
type Literal string

// String renders the literal.
func (l Literal) String() string { return string(l) }
func (l Literal) isVariable() bool { return false }

// VarRef is a variable term. Name excludes the leading "?".
type VarRef string

// String renders the variable in "?name" form.
func (v VarRef) String() string { return "?" + string(v) }
func (v VarRef) isVariable() bool { return true }

// IsVariableName reports whether a raw schema string denotes a variable,
// i.e. begins with "?".
func IsVariableName(s string) bool { return strings.HasPrefix(s, "?") }

// ParseTerm converts a raw schema string into a Term, recognising the
// "?"-prefixed variable convention.
func ParseTerm(s string) Term {
	if IsVariableName(s) {
		return VarRef(strings.TrimPrefix(s, "?"))
	}
	return Literal(s)
}

// Bindings maps variable names (without the leading "?") to either a
// ground symbol (string, for term variables bound by Atom matching) or a
// real number (float64, for degree variables bound via degree_var).
// Bindings grow monotonically during a single condition evaluation and do
// not persist across rules.
type Bindings map[string]any

// Clone returns a shallow copy of the bindings, used when a matcher needs
// to extend a binding set along more than one branch without the
// branches interfering with each other.
func (b Bindings) Clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Symbol looks up a term binding, returning ok=false if unbound or bound
// to a degree (non-string) value.
func (b Bindings) Symbol(name string) (string, bool) {
	v, ok := b[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Degree looks up a degree binding, returning ok=false if unbound or
// bound to a term (non-numeric) value.
func (b Bindings) Degree(name string) (float64, bool) {
	v, ok := b[name]
	if !ok {
		return 0, false
	}
	d, ok := v.(float64)
	return d, ok
}

// equal reports whether two binding sets are identical, used by Or
// matching to deduplicate extensions.
func (b Bindings) equal(o Bindings) bool {
	if len(b) != len(o) {
		return false
	}
	for k, v := range b {
		ov, ok := o[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
