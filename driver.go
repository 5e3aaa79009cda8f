package fuzzyinfer

import (
	"sort"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxIterations bounds a Run call in the absence of an explicit
// cap, guarding against a rule set that never reaches a fixed point
// (§4.4).
const DefaultMaxIterations = 1000

// firing identifies one (rule, binding-extension) pairing that has
// already fired during the current pass, used for within-pass dedup
// supplemented from the reference implementation's rule history. Scoped
// per pass, not per Run: a firing must be allowed to recur in a later
// pass, since that is exactly what makes a genuine Modify/Retract
// oscillation surface as ErrInference instead of silently freezing.
type firing struct {
	rule        string
	fingerprint string
}

// RunReport summarizes a completed Run call.
type RunReport struct {
	CorrelationID string
	Iterations    int
	FactsAdded    int
	FactsChanged  int
	FactsRemoved  int
}

// Run drives the fixed-point forward-chaining loop described in §4.4:
// on each pass, every rule is evaluated in descending-priority order
// against the current fact store, and every satisfying binding-extension
// fires its actions. Actions committed earlier in a pass are visible to
// rules evaluated later in the same pass (§9 Open Question, resolved).
// A pass that adds, changes, or removes no fact ends the run. Run
// returns an InferenceErr wrapping ErrInference if maxIterations passes
// complete without reaching a fixed point; maxIterations <= 0 selects
// DefaultMaxIterations.
func (kb *KnowledgeBase) Run(maxIterations int) (*RunReport, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	runID := uuid.NewString()
	log := kb.logger.With(zap.String("run_id", runID))
	log.Debug("inference run starting", zap.Int("rule_count", kb.rules.Len()), zap.Int("fact_count", kb.facts.Len()))

	report := &RunReport{CorrelationID: runID}

	for pass := 0; pass < maxIterations; pass++ {
		changed := false
		seen := make(map[firing]struct{})
		for _, rule := range kb.rules.All() {
			var results []MatchResult
			var err error
			if len(rule.Conditions) == 1 {
				results, err = Match(rule.Conditions[0], Bindings{}, kb.facts)
			} else {
				results, err = matchConjunction(rule.Conditions, kb.facts)
			}
			if err != nil {
				return report, err
			}
			for _, mr := range results {
				fp := firing{rule: rule.identity(), fingerprint: fingerprintBindings(mr.Bindings)}
				if _, fired := seen[fp]; fired {
					continue
				}
				seen[fp] = struct{}{}
				didChange, err := applyActions(rule, mr, kb.facts, log)
				if err != nil {
					return report, err
				}
				if didChange.added {
					report.FactsAdded++
					changed = true
				}
				if didChange.changed {
					report.FactsChanged++
					changed = true
				}
				if didChange.removed {
					report.FactsRemoved++
					changed = true
				}
			}
		}
		report.Iterations = pass + 1
		if !changed {
			log.Debug("inference run reached fixed point", zap.Int("iterations", report.Iterations))
			return report, nil
		}
	}
	log.Warn("inference run exceeded iteration cap", zap.Int("max_iterations", maxIterations))
	return report, newInferenceError("inference did not reach a fixed point within %d iterations", maxIterations)
}

// matchConjunction matches a rule's whole condition list as an implicit
// AND, so a rule may list several top-level conditions without wrapping
// them in an explicit AndCondition.
func matchConjunction(conditions []Condition, store *FactStore) ([]MatchResult, error) {
	and := &AndCondition{Children: conditions}
	return matchAnd(and, Bindings{}, store)
}

type storeDelta struct {
	added, changed, removed bool
}

func applyActions(rule *Rule, mr MatchResult, store *FactStore, log *zap.Logger) (storeDelta, error) {
	var delta storeDelta
	for _, action := range rule.Actions {
		fact, err := action.Template().instantiate(mr.Bindings, mr.Degree)
		if err != nil {
			return delta, err
		}
		switch action.Kind() {
		case ActionAdd:
			changed := store.InsertOrCombine(fact)
			if changed {
				delta.added = true
				log.Debug("fact added", zap.String("rule", rule.identity()), zap.String("fact", fact.String()))
			}
		case ActionRetract:
			if store.Remove(fact.Predicate, fact.Args) {
				delta.removed = true
				log.Debug("fact retracted", zap.String("rule", rule.identity()), zap.String("fact", fact.String()))
			}
		case ActionModify:
			if store.Set(fact) {
				delta.changed = true
				log.Debug("fact modified", zap.String("rule", rule.identity()), zap.String("fact", fact.String()))
			}
		default:
			return delta, newValidationError("unknown action kind %q", action.Kind())
		}
	}
	return delta, nil
}

// fingerprintBindings renders a stable string key for a binding set,
// used to dedup rule firings within a single pass of a Run call.
func fingerprintBindings(b Bindings) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += k + "=" + valueString(b[k]) + ";"
	}
	return s
}

func valueString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return ""
	}
}
