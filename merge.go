package fuzzyinfer

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// MergeStrategy selects how two knowledge bases are combined (§4.5).
type MergeStrategy string

// The merge strategies recognised by Merge (§4.5).
const (
	MergeUnion      MergeStrategy = "union"
	MergeOverride   MergeStrategy = "override"
	MergeComplement MergeStrategy = "complement"
	MergeWeighted   MergeStrategy = "weighted"
	MergeSmart      MergeStrategy = "smart"
)

// ConflictType classifies a detected disagreement between two knowledge
// bases (§4.5).
type ConflictType string

// The conflict types raised during a merge (§4.5).
const (
	ConflictFactContradiction ConflictType = "fact_contradiction"
	ConflictMutualExclusion   ConflictType = "mutual_exclusion"
	ConflictRuleConflict      ConflictType = "rule_conflict"
	ConflictSubsumption       ConflictType = "subsumption"
)

// Conflict records a disagreement discovered while merging two knowledge
// bases. Severity is a real in [0,1] (§4.5), not a bucketed label.
type Conflict struct {
	Type                ConflictType
	Severity            float64
	KB1Item             string
	KB2Item             string
	Description         string
	SuggestedResolution string
}

// Merger performs a Merge with configuration that persists across calls:
// the degree difference at or above which two facts are considered
// contradictory rather than merely divergent, and the mutual-exclusion
// families used by
// conflict detection. Exclusion families are configured externally rather
// than hardcoded, per the reference implementation's fixed
// EXCLUSIVE_PREDICATES/CONTRADICTORY_PAIRS being generalised to
// caller-supplied data (§9 Open Question, resolved).
type Merger struct {
	Threshold         float64
	ExclusionFamilies [][]string
	logger            *zap.Logger
}

// NewMerger returns a Merger with the given contradiction threshold and
// mutual-exclusion families. threshold <= 0 defaults to 0.5 per §4.5. A
// nil logger defaults to a no-op logger.
func NewMerger(threshold float64, exclusionFamilies [][]string, logger *zap.Logger) *Merger {
	if threshold <= 0 {
		threshold = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{Threshold: threshold, ExclusionFamilies: exclusionFamilies, logger: logger}
}

// MergeOptions configures a single Merge call.
type MergeOptions struct {
	// Weights holds [w1, w2] for MergeWeighted, applied to kb1 and kb2
	// respectively. Both must be non-negative and sum to more than 0.
	Weights [2]float64
	// AutoResolve, when true, lets MergeSmart apply each conflict's
	// suggested resolution instead of merely recording it (§4.5 SMART).
	AutoResolve bool
	// Strict, when true and AutoResolve is false, makes MergeSmart fail
	// with ErrMerge if any conflict was detected, instead of deferring
	// to UNION (§7 "requested strict mode").
	Strict bool
}

// Merge combines kb1 and kb2 under strategy, returning the merged
// knowledge base and every conflict detected along the way. Conflict
// detection always runs first and its result is returned regardless of
// strategy, so callers can inspect conflicts even for strategies that
// don't act on them.
func (m *Merger) Merge(kb1, kb2 *KnowledgeBase, strategy MergeStrategy, opts MergeOptions) (*KnowledgeBase, []Conflict, error) {
	conflicts := m.detectConflicts(kb1, kb2)
	for _, c := range conflicts {
		m.logger.Warn("merge conflict detected",
			zap.String("type", string(c.Type)),
			zap.Float64("severity", c.Severity),
			zap.String("description", c.Description))
	}

	switch strategy {
	case MergeUnion:
		return m.mergeUnion(kb1, kb2), conflicts, nil
	case MergeOverride:
		return m.mergeOverride(kb1, kb2), conflicts, nil
	case MergeComplement:
		return m.mergeComplement(kb1, kb2), conflicts, nil
	case MergeWeighted:
		kb, err := m.mergeWeighted(kb1, kb2, opts)
		return kb, conflicts, err
	case MergeSmart:
		return m.mergeSmart(kb1, kb2, conflicts, opts)
	default:
		return nil, conflicts, newValidationError("unknown merge strategy %q", strategy)
	}
}

func newMergedKB(logger *zap.Logger) *KnowledgeBase { return NewKnowledgeBase(logger) }

// mergeUnion combines every fact by fuzzy-OR and every rule by identity
// dedup, favoring neither input. This is the basis every other strategy
// composes with (§8 invariant 6, 7: pure and commutative).
func (m *Merger) mergeUnion(kb1, kb2 *KnowledgeBase) *KnowledgeBase {
	out := newMergedKB(m.logger)
	_ = out.AddFacts(kb1.GetFacts())
	_ = out.AddFacts(kb2.GetFacts())
	m.addRulesDeduped(out, kb1.GetRules())
	m.addRulesDeduped(out, kb2.GetRules())
	return out
}

// mergeOverride starts from kb1, then lets every kb2 fact/rule replace
// its kb1 counterpart outright (no fuzzy-OR combination).
func (m *Merger) mergeOverride(kb1, kb2 *KnowledgeBase) *KnowledgeBase {
	out := newMergedKB(m.logger)
	for _, f := range kb1.GetFacts() {
		out.facts.Set(f)
	}
	for _, f := range kb2.GetFacts() {
		out.facts.Set(f)
	}
	byIdentity := make(map[string]*Rule)
	var order []string
	for _, r := range kb1.GetRules() {
		if _, ok := byIdentity[r.identity()]; !ok {
			order = append(order, r.identity())
		}
		byIdentity[r.identity()] = r
	}
	for _, r := range kb2.GetRules() {
		if _, ok := byIdentity[r.identity()]; !ok {
			order = append(order, r.identity())
		}
		byIdentity[r.identity()] = r
	}
	for _, id := range order {
		_ = out.rules.Add(byIdentity[id])
	}
	return out
}

// mergeComplement keeps every kb1 fact/rule, and adds a kb2 item only
// where kb1 has no item of the same identity — kb1 wins ties silently.
func (m *Merger) mergeComplement(kb1, kb2 *KnowledgeBase) *KnowledgeBase {
	out := newMergedKB(m.logger)
	_ = out.AddFacts(kb1.GetFacts())
	for _, f := range kb2.GetFacts() {
		if _, ok := out.facts.Lookup(f.Predicate, f.Args); !ok {
			out.facts.InsertOrCombine(f)
		}
	}
	seen := make(map[string]struct{})
	for _, r := range kb1.GetRules() {
		seen[r.identity()] = struct{}{}
		_ = out.rules.Add(r)
	}
	for _, r := range kb2.GetRules() {
		if _, ok := seen[r.identity()]; !ok {
			_ = out.rules.Add(r)
		}
	}
	return out
}

// mergeWeighted blends the degree of every fact present in both inputs
// as (w1*d1 + w2*d2)/(w1+w2), and carries over facts unique to one input
// at their original, unscaled degree (§4.5 WEIGHTED).
func (m *Merger) mergeWeighted(kb1, kb2 *KnowledgeBase, opts MergeOptions) (*KnowledgeBase, error) {
	w1, w2 := opts.Weights[0], opts.Weights[1]
	if w1 < 0 || w2 < 0 || w1+w2 <= 0 {
		return nil, newMergeError("weighted merge requires non-negative weights summing to more than 0, got %v and %v", w1, w2)
	}
	out := newMergedKB(m.logger)
	kb2Facts := make(map[factKey]*Fact)
	for _, f := range kb2.GetFacts() {
		kb2Facts[f.key()] = f
	}
	seen := make(map[factKey]struct{})
	for _, f1 := range kb1.GetFacts() {
		seen[f1.key()] = struct{}{}
		degree := f1.Degree
		if f2, ok := kb2Facts[f1.key()]; ok {
			degree = (w1*f1.Degree + w2*f2.Degree) / (w1 + w2)
		}
		nf, err := NewFact(f1.Predicate, f1.Args, clampDegree(degree))
		if err != nil {
			return nil, err
		}
		if _, err := out.AddFact(nf); err != nil {
			return nil, err
		}
	}
	for _, f2 := range kb2.GetFacts() {
		if _, ok := seen[f2.key()]; ok {
			continue
		}
		nf, err := NewFact(f2.Predicate, f2.Args, clampDegree(f2.Degree))
		if err != nil {
			return nil, err
		}
		if _, err := out.AddFact(nf); err != nil {
			return nil, err
		}
	}
	m.addRulesDeduped(out, kb1.GetRules())
	m.addRulesDeduped(out, kb2.GetRules())
	return out, nil
}

// mergeSmart runs conflict detection, then either applies each
// conflict's suggested resolution (AutoResolve) or defers to plain UNION
// and returns the conflict list for inspection — unless Strict is also
// set, in which case an unresolved conflict set fails the merge (§4.5,
// §7).
func (m *Merger) mergeSmart(kb1, kb2 *KnowledgeBase, conflicts []Conflict, opts MergeOptions) (*KnowledgeBase, []Conflict, error) {
	if !opts.AutoResolve {
		if opts.Strict && len(conflicts) > 0 {
			return nil, conflicts, newMergeError("smart merge found %d unresolved conflicts under strict mode", len(conflicts))
		}
		return m.mergeUnion(kb1, kb2), conflicts, nil
	}

	out := m.mergeUnion(kb1, kb2)
	for _, c := range conflicts {
		switch c.Type {
		case ConflictFactContradiction:
			// mergeUnion's fuzzy-OR combine already kept the
			// higher-degree fact; nothing further to do.
		case ConflictMutualExclusion:
			m.resolveMutualExclusion(kb1, kb2, out, c)
		case ConflictRuleConflict:
			m.resolveRuleConflict(kb1, kb2, out, c)
		case ConflictSubsumption:
			m.resolveSubsumption(out, c)
		}
	}
	return out, conflicts, nil
}

// resolveMutualExclusion drops the lower-degree fact of the conflicting
// pair. The pair's identity (predicate, args) is recovered from the
// conflict's labels, but the degree used for comparison is looked up
// fresh from kb1/kb2 rather than trusted from the label, since
// Fact.String() rounds the degree for display.
func (m *Merger) resolveMutualExclusion(kb1, kb2 *KnowledgeBase, out *KnowledgeBase, c Conflict) {
	id1, id2, ok := parseConflictFacts(c)
	if !ok {
		return
	}
	f1 := lookupFact(kb1, kb2, id1.Predicate, id1.Args)
	f2 := lookupFact(kb1, kb2, id2.Predicate, id2.Args)
	if f1 == nil || f2 == nil {
		return
	}
	if f1.Degree >= f2.Degree {
		out.facts.Remove(f2.Predicate, f2.Args)
	} else {
		out.facts.Remove(f1.Predicate, f1.Args)
	}
}

// lookupFact returns the current fact with the given identity from
// whichever of kb1/kb2 holds it.
func lookupFact(kb1, kb2 *KnowledgeBase, predicate string, args []string) *Fact {
	if f, ok := kb1.facts.Lookup(predicate, args); ok {
		return f
	}
	if f, ok := kb2.facts.Lookup(predicate, args); ok {
		return f
	}
	return nil
}

func (m *Merger) resolveRuleConflict(kb1, kb2 *KnowledgeBase, out *KnowledgeBase, c Conflict) {
	var r1, r2 *Rule
	for _, r := range kb1.GetRules() {
		if r.identity() == c.KB1Item {
			r1 = r
		}
	}
	for _, r := range kb2.GetRules() {
		if r.identity() == c.KB2Item {
			r2 = r
		}
	}
	if r1 == nil || r2 == nil {
		return
	}
	winner := r1
	if r2.Priority > r1.Priority {
		winner = r2
	}
	out.rules.Replace(winner)
}

func (m *Merger) resolveSubsumption(out *KnowledgeBase, c Conflict) {
	// KB1Item names the more specific (larger condition set) rule per
	// detectSubsumptions; KB2Item names the general one to drop.
	out.rules.Remove(c.KB2Item)
}

func parseConflictFacts(c Conflict) (*Fact, *Fact, bool) {
	f1 := parseFactString(c.KB1Item)
	f2 := parseFactString(c.KB2Item)
	if f1 == nil || f2 == nil {
		return nil, nil, false
	}
	return f1, f2, true
}

func (m *Merger) addRulesDeduped(out *KnowledgeBase, rules []*Rule) {
	for _, r := range rules {
		found := false
		for _, existing := range out.GetRules() {
			if existing.identity() == r.identity() {
				found = true
				break
			}
		}
		if !found {
			_ = out.rules.Add(r)
		}
	}
}

// detectConflicts scans kb1 against kb2 for the four conflict types
// described in §4.5.
func (m *Merger) detectConflicts(kb1, kb2 *KnowledgeBase) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, m.detectFactContradictions(kb1, kb2)...)
	conflicts = append(conflicts, m.detectMutualExclusions(kb1, kb2)...)
	conflicts = append(conflicts, m.detectRuleConflicts(kb1, kb2)...)
	conflicts = append(conflicts, m.detectSubsumptions(kb1, kb2)...)
	return conflicts
}

// detectFactContradictions flags facts sharing an identity whose degrees
// differ by at least Threshold. Severity = |d1-d2| (§4.5 type 1).
func (m *Merger) detectFactContradictions(kb1, kb2 *KnowledgeBase) []Conflict {
	var out []Conflict
	for _, f1 := range kb1.GetFacts() {
		f2, ok := kb2.facts.Lookup(f1.Predicate, f1.Args)
		if !ok {
			continue
		}
		diff := f1.Degree - f2.Degree
		if diff < 0 {
			diff = -diff
		}
		if diff >= m.Threshold {
			out = append(out, Conflict{
				Type:                ConflictFactContradiction,
				Severity:            diff,
				KB1Item:             f1.String(),
				KB2Item:             f2.String(),
				Description:         fmt.Sprintf("%s(%v) has degree %.2f in kb1 and %.2f in kb2", f1.Predicate, f1.Args, f1.Degree, f2.Degree),
				SuggestedResolution: "keep the higher degree",
			})
		}
	}
	return out
}

// detectMutualExclusions flags fact pairs sharing a subject (first
// argument) whose predicates belong to the same configured exclusion
// family, e.g. two distinct species assigned to the same individual
// (§4.5 type 2). Severity = min(d1,d2).
func (m *Merger) detectMutualExclusions(kb1, kb2 *KnowledgeBase) []Conflict {
	var out []Conflict
	for _, family := range m.ExclusionFamilies {
		byPredicate := make(map[string][]*Fact)
		for _, predicate := range family {
			byPredicate[predicate] = append(kb1.facts.Scan(predicate), kb2.facts.Scan(predicate)...)
		}
		for i := 0; i < len(family); i++ {
			for j := i + 1; j < len(family); j++ {
				for _, f1 := range byPredicate[family[i]] {
					for _, f2 := range byPredicate[family[j]] {
						if len(f1.Args) == 0 || len(f2.Args) == 0 || f1.Args[0] != f2.Args[0] {
							continue
						}
						out = append(out, Conflict{
							Type:                ConflictMutualExclusion,
							Severity:            minFloat(f1.Degree, f2.Degree),
							KB1Item:             f1.String(),
							KB2Item:             f2.String(),
							Description:         fmt.Sprintf("%q and %q are mutually exclusive but both hold for %q", family[i], family[j], f1.Args[0]),
							SuggestedResolution: "keep the higher; annotate uncertainty",
						})
					}
				}
			}
		}
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// detectRuleConflicts flags rules sharing a name whose conditions or
// actions differ structurally (§4.5 type 3). Severity is fixed at 1.0.
func (m *Merger) detectRuleConflicts(kb1, kb2 *KnowledgeBase) []Conflict {
	var out []Conflict
	kb2ByName := make(map[string]*Rule)
	for _, r := range kb2.GetRules() {
		if r.Name != "" {
			kb2ByName[r.Name] = r
		}
	}
	for _, r1 := range kb1.GetRules() {
		if r1.Name == "" {
			continue
		}
		r2, ok := kb2ByName[r1.Name]
		if !ok {
			continue
		}
		if structuralHash(r1) != structuralHash(r2) {
			out = append(out, Conflict{
				Type:                ConflictRuleConflict,
				Severity:            1.0,
				KB1Item:             r1.identity(),
				KB2Item:             r2.identity(),
				Description:         fmt.Sprintf("rule %q has different conditions/actions in kb1 and kb2", r1.Name),
				SuggestedResolution: "keep the higher priority; ties break to KB1",
			})
		}
	}
	return out
}

// detectSubsumptions flags a rule pair with identical actions where one
// rule's condition set is a strict superset of the other's (§4.5 type
// 4). Severity is fixed at 0.3. KB1Item names the more specific
// (superset) rule, KB2Item the more general one.
func (m *Merger) detectSubsumptions(kb1, kb2 *KnowledgeBase) []Conflict {
	var out []Conflict
	for _, ra := range kb1.GetRules() {
		for _, rb := range kb2.GetRules() {
			specific, general, ok := strictSupersetPair(ra, rb)
			if !ok || !sameActions(ra.Actions, rb.Actions) {
				continue
			}
			out = append(out, Conflict{
				Type:                ConflictSubsumption,
				Severity:            0.3,
				KB1Item:             specific.identity(),
				KB2Item:             general.identity(),
				Description:         fmt.Sprintf("rule %q's conditions are a strict superset of rule %q's, with identical actions", specific.identity(), general.identity()),
				SuggestedResolution: "keep the more specific (larger condition set)",
			})
		}
	}
	return out
}

func strictSupersetPair(a, b *Rule) (specific, general *Rule, ok bool) {
	if isStrictConditionSuperset(a.Conditions, b.Conditions) {
		return a, b, true
	}
	if isStrictConditionSuperset(b.Conditions, a.Conditions) {
		return b, a, true
	}
	return nil, nil, false
}

func isStrictConditionSuperset(super, sub []Condition) bool {
	if len(super) <= len(sub) {
		return false
	}
	subSet := make(map[string]struct{}, len(sub))
	for _, c := range sub {
		subSet[c.String()] = struct{}{}
	}
	for key := range subSet {
		found := false
		for _, c := range super {
			if c.String() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameActions(a, b []Action) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ta, tb := a[i].Template(), b[i].Template()
		if a[i].Kind() != b[i].Kind() || ta.Predicate != tb.Predicate || len(ta.Args) != len(tb.Args) {
			return false
		}
		for j := range ta.Args {
			if ta.Args[j].String() != tb.Args[j].String() {
				return false
			}
		}
	}
	return true
}

// parseFactString recovers a fact's identity (predicate, args) from a
// Fact.String() form "predicate(a, b) [deg=0.80]". The embedded degree is
// rounded for display and must never be trusted as the fact's true
// degree; callers needing the degree should look the fact up fresh by
// identity instead.
func parseFactString(s string) *Fact {
	open := strings.IndexByte(s, '(')
	shut := strings.IndexByte(s, ')')
	if open < 0 || shut < 0 || shut < open {
		return nil
	}
	predicate := s[:open]
	var args []string
	if argsPart := s[open+1 : shut]; argsPart != "" {
		args = strings.Split(argsPart, ", ")
	}
	degree := 0.0
	if degIdx := strings.Index(s, "[deg="); degIdx >= 0 {
		rest := s[degIdx+len("[deg="):]
		if endIdx := strings.IndexByte(rest, ']'); endIdx >= 0 {
			degree, _ = strconv.ParseFloat(rest[:endIdx], 64)
		}
	}
	return &Fact{Predicate: predicate, Args: args, Degree: degree}
}
