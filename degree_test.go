package fuzzyinfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpExprEvaluatesArithmetic(t *testing.T) {
	require := require.New(t)
	b := Bindings{"d": 0.5}

	mul := &OpExpr{Op: DegreeMul, Args: []DegreeExpr{NumberExpr(0.8), VarExpr("d")}}
	v, err := mul.Eval(b)
	require.NoError(err)
	require.InDelta(0.4, v, 1e-9)

	add := &OpExpr{Op: DegreeAdd, Args: []DegreeExpr{NumberExpr(0.1), NumberExpr(0.2), NumberExpr(0.3)}}
	v, err = add.Eval(nil)
	require.NoError(err)
	require.InDelta(0.6, v, 1e-9)

	minExpr := &OpExpr{Op: DegreeMin, Args: []DegreeExpr{NumberExpr(0.9), NumberExpr(0.2), NumberExpr(0.5)}}
	v, err = minExpr.Eval(nil)
	require.NoError(err)
	require.Equal(0.2, v)
}

func TestOpExprDivisionByZero(t *testing.T) {
	require := require.New(t)
	div := &OpExpr{Op: DegreeDiv, Args: []DegreeExpr{NumberExpr(1), NumberExpr(0)}}
	_, err := div.Eval(nil)
	require.Error(err)
	require.ErrorIs(err, ErrInference)
}

func TestVarExprUnbound(t *testing.T) {
	require := require.New(t)
	_, err := VarExpr("missing").Eval(Bindings{})
	require.Error(err)
	require.ErrorIs(err, ErrInference)
}

func TestOpExprUnknownOperator(t *testing.T) {
	require := require.New(t)
	expr := &OpExpr{Op: DegreeOp("xor"), Args: []DegreeExpr{NumberExpr(1)}}
	_, err := expr.Eval(nil)
	require.Error(err)
	require.ErrorIs(err, ErrValidation)
}
