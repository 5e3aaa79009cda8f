// Package fuzzyinfer implements a fuzzy forward-chaining production rule
// engine.
//
// # Knowledge bases
//
// A KnowledgeBase holds a FactStore of facts annotated with a degree of
// belief in [0,1] and a RuleSet describing how new facts are derived from
// existing ones. Running inference saturates the fact store by repeatedly
// firing applicable rules until no further change occurs or an iteration
// cap is reached.
//
// # Facts and rules
//
// A Fact is a (predicate, args, degree) triple. Identity is the pair
// (predicate, args); inserting a fact whose key already exists combines
// the two degrees by fuzzy-OR (maximum) rather than overwriting.
//
// A Rule pairs a sequence of Conditions with a sequence of Actions and a
// priority. Conditions match against the fact store and produce variable
// bindings; Actions instantiate fact templates from those bindings and
// commit them back to the store.
//
// # Matching
//
// The pattern matcher is complete: for a condition it enumerates every
// binding extension under which the condition holds, not merely the
// first, because each distinct match fires a rule's actions once.
//
// # Merging
//
// Two knowledge bases can be combined with Merge under one of five
// strategies (union, override, complement, weighted, smart), the last of
// which runs conflict detection and either surfaces or auto-resolves
// contradictions between the two inputs.
package fuzzyinfer
