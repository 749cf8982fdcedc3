package workflow

import "github.com/zoobzio/docwf/internal/types"

// ExprOp is an expression tree over document fields and literals.
type ExprOp interface {
	isExprOp()
}

// VarExpr references a document field.
type VarExpr struct {
	Var DocVar
}

func (VarExpr) isExprOp() {}

// LiteralExpr is an inline constant, or a deferred Param bound at execution
// time.
type LiteralExpr struct {
	Value any
	Param *types.Param
}

func (LiteralExpr) isExprOp() {}

// OpExpr applies a named operator (e.g. "$add", "$concat") to its
// arguments.
type OpExpr struct {
	Operator string
	Args     []ExprOp
}

func (OpExpr) isExprOp() {}

// CondExpr represents $cond: If ? Then : Else.
type CondExpr struct {
	If, Then, Else ExprOp
}

func (CondExpr) isExprOp() {}

// AccumExpr is a group accumulator (Sum, Push, First, ...). Invariant 2
// (spec.md §3) requires that every rewrite preserves this variant; see
// RewriteAccum.
type AccumExpr struct {
	Operator string
	Arg      ExprOp
}

func (AccumExpr) isExprOp() {}

// Accumulator operator names.
const (
	AccSum      = "$sum"
	AccAvg      = "$avg"
	AccMin      = "$min"
	AccMax      = "$max"
	AccFirst    = "$first"
	AccLast     = "$last"
	AccPush     = "$push"
	AccAddToSet = "$addToSet"
)

// Sum, Avg, Min, Max, First, Last, Push and AddToSet build AccumExpr values
// for use in Grouped.
func Sum(e ExprOp) AccumExpr      { return AccumExpr{Operator: AccSum, Arg: e} }
func Avg(e ExprOp) AccumExpr      { return AccumExpr{Operator: AccAvg, Arg: e} }
func Min(e ExprOp) AccumExpr      { return AccumExpr{Operator: AccMin, Arg: e} }
func Max(e ExprOp) AccumExpr      { return AccumExpr{Operator: AccMax, Arg: e} }
func First(e ExprOp) AccumExpr    { return AccumExpr{Operator: AccFirst, Arg: e} }
func Last(e ExprOp) AccumExpr     { return AccumExpr{Operator: AccLast, Arg: e} }
func Push(e ExprOp) AccumExpr     { return AccumExpr{Operator: AccPush, Arg: e} }
func AddToSet(e ExprOp) AccumExpr { return AccumExpr{Operator: AccAddToSet, Arg: e} }

// sigma is a partial function from DocVar to DocVar: the second return value
// reports whether sigma is defined at v. Where it is undefined, callers must
// use v unchanged (the reference-rewriter's identity-elsewhere rule).
type sigma func(v DocVar) (DocVar, bool)

// mapUpExpr rewrites every DocVar inside e via s, preserving e's variant.
func mapUpExpr(e ExprOp, s sigma) ExprOp {
	switch x := e.(type) {
	case VarExpr:
		if nv, ok := s(x.Var); ok {
			return VarExpr{Var: nv}
		}
		return x
	case LiteralExpr:
		return x
	case OpExpr:
		args := make([]ExprOp, len(x.Args))
		for i, a := range x.Args {
			args[i] = mapUpExpr(a, s)
		}
		return OpExpr{Operator: x.Operator, Args: args}
	case CondExpr:
		return CondExpr{
			If:   mapUpExpr(x.If, s),
			Then: mapUpExpr(x.Then, s),
			Else: mapUpExpr(x.Else, s),
		}
	case AccumExpr:
		return AccumExpr{Operator: x.Operator, Arg: mapUpExpr(x.Arg, s)}
	default:
		return e
	}
}

// RewriteAccum rewrites the DocVars inside an accumulator expression and
// asserts the result is still an accumulator. A violation is a fatal
// internal error per spec.md §7.1 — it can only happen if mapUpExpr itself
// were changed to swap variants, which a correct implementation never does,
// but the check is kept here because the merger and Grouped's reference
// rewrite call this
// specifically where the invariant matters operationally.
func RewriteAccum(a AccumExpr, s sigma) (AccumExpr, error) {
	rewritten := mapUpExpr(a, s)
	out, ok := rewritten.(AccumExpr)
	if !ok {
		return AccumExpr{}, &InternalError{
			Op:      a,
			Message: "reference rewrite changed an accumulator expression into a non-accumulator variant",
		}
	}
	return out, nil
}

// refsExpr appends every DocVar appearing in e, in traversal order, to out.
func refsExpr(e ExprOp, out *[]DocVar) {
	switch x := e.(type) {
	case VarExpr:
		*out = append(*out, x.Var)
	case LiteralExpr:
	case OpExpr:
		for _, a := range x.Args {
			refsExpr(a, out)
		}
	case CondExpr:
		refsExpr(x.If, out)
		refsExpr(x.Then, out)
		refsExpr(x.Else, out)
	case AccumExpr:
		refsExpr(x.Arg, out)
	}
}
