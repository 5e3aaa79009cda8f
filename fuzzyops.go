package fuzzyinfer

import "math"

// This file implements the fuzzy operator family described in spec.md
// §4.1: T-norms, T-conorms, negations, and hedges. The driver's
// inference semantics use MinTNorm for AND and MaxTConorm for OR (called
// from matcher.go), negation as failure for NOT (matcher.go), and
// fuzzy-OR-max on combine (fact.go); the remaining functions here are
// alternate operators available to callers, ported from
// original_source/fuzzy_infer/fuzzy_ops.py where an equivalent exists.

// MinTNorm is Zadeh's AND: min(a, b).
func MinTNorm(a, b float64) float64 { return math.Min(a, b) }

// ProductTNorm is the algebraic-product AND: a * b.
func ProductTNorm(a, b float64) float64 { return a * b }

// LukasiewiczTNorm is the Łukasiewicz AND: max(0, a+b-1).
func LukasiewiczTNorm(a, b float64) float64 { return math.Max(0, a+b-1) }

// MaxTConorm is Zadeh's OR: max(a, b).
func MaxTConorm(a, b float64) float64 { return math.Max(a, b) }

// ProbabilisticTConorm is the probabilistic-sum OR: a+b-a*b.
func ProbabilisticTConorm(a, b float64) float64 { return a + b - a*b }

// BoundedTConorm is the bounded-sum OR: min(1, a+b).
func BoundedTConorm(a, b float64) float64 { return math.Min(1, a+b) }

// StandardNegation is the classical fuzzy complement: 1-a.
func StandardNegation(a float64) float64 { return 1 - a }

// SugenoNegation is the Sugeno class negation (1-a)/(1+λa), valid for
// λ > -1. Panics if lambda <= -1, matching the domain restriction stated
// in spec.md §4.1.
func SugenoNegation(a, lambda float64) float64 {
	if lambda <= -1 {
		panic("fuzzyinfer: SugenoNegation requires lambda > -1")
	}
	return (1 - a) / (1 + lambda*a)
}

// YagerNegation is the Yager class negation (1-a^w)^(1/w), valid for
// w > 0. Panics if w <= 0, matching the domain restriction stated in
// spec.md §4.1.
func YagerNegation(a, w float64) float64 {
	if w <= 0 {
		panic("fuzzyinfer: YagerNegation requires w > 0")
	}
	return math.Pow(1-math.Pow(a, w), 1/w)
}

// PowerHedge applies a power hedge a^p, the general form behind Very,
// Somewhat, and Extremely.
func PowerHedge(a, p float64) float64 { return math.Pow(a, p) }

// Very is the power hedge with p=2, concentrating the membership degree.
func Very(a float64) float64 { return PowerHedge(a, 2) }

// Somewhat is the power hedge with p=0.5, dilating the membership degree.
func Somewhat(a float64) float64 { return PowerHedge(a, 0.5) }

// Extremely is the power hedge with p=3, sharply concentrating the
// membership degree.
func Extremely(a float64) float64 { return PowerHedge(a, 3) }
