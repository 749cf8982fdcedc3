package workflow

import (
	"fmt"
	"reflect"
)

// mergeResult is merge's return value: the combined op M, plus a sigma for
// each input side that rebinds a reference made against that input's
// original output shape into M's output shape (spec.md §4.4).
type mergeResult struct {
	LBase sigma
	RBase sigma
	Op    WorkflowOp
}

const (
	lEftField  = "lEft"
	rIghtField = "rIght"
)

func leftSigma() sigma {
	return func(v DocVar) (DocVar, bool) { return Field(lEftField).Concat(v), true }
}

func rightSigma() sigma {
	return func(v DocVar) (DocVar, bool) { return Field(rIghtField).Concat(v), true }
}

func identitySigma() sigma {
	return func(v DocVar) (DocVar, bool) { return v, false }
}

// Merge combines two independently built op trees into one that produces
// both sides' results, returning the rebasing sigma each side needs to keep
// referencing its own fields afterward (spec.md §4.4). Merge is total and
// returns a itself when a == b. It is not symmetric: the stacking order and
// the lEft/rIght labels follow the argument order, so Merge(a, b) and
// Merge(b, a) can differ structurally.
func Merge(a, b WorkflowOp) (mergeResult, error) {
	if Equal(a, b) {
		return mergeResult{LBase: identitySigma(), RBase: identitySigma(), Op: a}, nil
	}

	aPure, aIsPure := a.(PureOp)
	bPure, bIsPure := b.(PureOp)
	switch {
	case aIsPure && bIsPure:
		return mergePure(aPure, bPure), nil
	case aIsPure && !bIsPure:
		return mergePureOther(aPure, b, true), nil
	case bIsPure && !aIsPure:
		return mergePureOther(bPure, a, false), nil
	}

	if aProj, ok := a.(ProjectOp); ok {
		if bProj, ok := b.(ProjectOp); ok {
			return mergeProjectProject(aProj, bProj)
		}
	}

	if aGrp, ok := a.(GroupOp); ok {
		if bGrp, ok := b.(GroupOp); ok {
			if m, ok, err := mergeGroupGroup(aGrp, bGrp); err != nil {
				return mergeResult{}, err
			} else if ok {
				return m, nil
			}
		}
	}

	aReshaping := isReshapingOp(a)
	bReshaping := isReshapingOp(b)

	switch {
	case aReshaping && !bReshaping && hasSingleSrc(a) && hasSingleSrc(b):
		return mergeReshapingWithPassthrough(a, b)
	case bReshaping && !aReshaping && hasSingleSrc(a) && hasSingleSrc(b):
		m, err := mergeReshapingWithPassthrough(b, a)
		if err != nil {
			return mergeResult{}, err
		}
		return mergeResult{LBase: m.RBase, RBase: m.LBase, Op: m.Op}, nil
	}

	if hasSingleSrc(a) && hasSingleSrc(b) && !aReshaping && !bReshaping {
		return mergeStackable(a, b)
	}

	return mergeFallback(a, b), nil
}

// isReshapingOp reports whether op redefines the document's field namespace
// (Project, Group) as opposed to merely filtering, ordering or pruning it.
func isReshapingOp(op WorkflowOp) bool {
	switch op.(type) {
	case ProjectOp, GroupOp:
		return true
	default:
		return false
	}
}

// hasSingleSrc reports whether op is a single-source native pipeline op.
// Map/FlatMap/Reduce also have one source but are left to mergeFallback.
func hasSingleSrc(op WorkflowOp) bool {
	_, ok := Source(op)
	return ok && IsWPipelineOp(op)
}

func mergePure(a, b PureOp) mergeResult {
	return mergeResult{
		LBase: leftSigma(),
		RBase: rightSigma(),
		Op: PureOp{Value: map[string]any{
			lEftField:  a.Value,
			rIghtField: b.Value,
		}},
	}
}

// mergePureOther merges a literal document against an arbitrary pipeline:
// the literal is inlined as a Project field, the other side passes through
// unchanged underneath it.
func mergePureOther(pure PureOp, other WorkflowOp, pureIsLeft bool) mergeResult {
	shape := NewReshape()
	shape.SetExpr(NewBsonField(lEftField), LiteralExpr{Value: pure.Value})
	shape.SetExpr(NewBsonField(rIghtField), VarExpr{Var: ROOT})
	op := ProjectOp{Src: other, Shape: shape}
	if pureIsLeft {
		return mergeResult{LBase: leftSigma(), RBase: rightSigma(), Op: op}
	}
	return mergeResult{LBase: rightSigma(), RBase: leftSigma(), Op: op}
}

// mergeStackable handles two non-reshaping WPipelineOps (Match, Limit, Skip,
// Redact, Unwind, Sort, GeoNear in any combination): their sources are
// merged first, then both ops are reapplied — rebased via the sources'
// sigmas — on top of the merged base. Neither redefines the field
// namespace, so the merge's own bases pass straight through.
func mergeStackable(a, b WorkflowOp) (mergeResult, error) {
	aSrc, _ := Source(a)
	bSrc, _ := Source(b)
	sub, err := Merge(aSrc, bSrc)
	if err != nil {
		return mergeResult{}, err
	}
	bR, err := Rewrite(b, sub.RBase)
	if err != nil {
		return mergeResult{}, err
	}
	aR, err := Rewrite(a, sub.LBase)
	if err != nil {
		return mergeResult{}, err
	}
	stacked := WithSource(bR, sub.Op)
	stacked = WithSource(aR, stacked)
	return mergeResult{LBase: sub.LBase, RBase: sub.RBase, Op: stacked}, nil
}

// mergeReshapingWithPassthrough handles a Project or Group (reshaping) on one
// side against a plain filter/order op on the other. Group (spec.md §4.4
// case 8) needs its own treatment: a Group only emits its _id and
// accumulators, so stacking the other op beneath it the way Project does
// would strand the other side's fields with nothing for its base to resolve
// against. Project, which doesn't discard arbitrary fields the same way,
// keeps the simple stack-beneath shape.
func mergeReshapingWithPassthrough(reshaping, other WorkflowOp) (mergeResult, error) {
	if grp, ok := reshaping.(GroupOp); ok {
		return mergeGroupPassthrough(grp, other)
	}

	reshapeSrc, _ := Source(reshaping)
	otherSrc, _ := Source(other)
	sub, err := Merge(reshapeSrc, otherSrc)
	if err != nil {
		return mergeResult{}, err
	}
	otherR, err := Rewrite(other, sub.RBase)
	if err != nil {
		return mergeResult{}, err
	}
	stackedSrc := WithSource(otherR, sub.Op)
	reshapeR, err := Rewrite(reshaping, sub.LBase)
	if err != nil {
		return mergeResult{}, err
	}
	merged := WithSource(reshapeR, stackedSrc)
	return mergeResult{LBase: identitySigma(), RBase: sub.RBase, Op: merged}, nil
}

// freshGroupField picks a field name not already used by g's accumulators,
// for the synthetic Push/Unwind field mergeGroupPassthrough needs.
func freshGroupField(g *Grouped) string {
	used := make(map[string]bool)
	for _, name := range g.Keys() {
		used[name] = true
	}
	name := "u"
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("u%d", n)
	}
	return name
}

// mergeGroupPassthrough implements spec.md §4.4 case 8: Group vs a plain
// filter/order op. The other op is rewritten and stacked beneath Group (as
// with Project), but Group's own accumulator set is additionally extended
// with a synthetic field u that Pushes the other side's whole rebased
// document per group, and the merged op Unwinds by u afterward — restoring
// one row per original document so the other side's fields are reachable
// again, at right base ROOT.u.
func mergeGroupPassthrough(grp GroupOp, other WorkflowOp) (mergeResult, error) {
	otherSrc, _ := Source(other)
	sub, err := Merge(grp.Src, otherSrc)
	if err != nil {
		return mergeResult{}, err
	}
	otherR, err := Rewrite(other, sub.RBase)
	if err != nil {
		return mergeResult{}, err
	}
	stackedSrc := WithSource(otherR, sub.Op)

	grouped := NewGrouped()
	for _, name := range grp.Grouped.Keys() {
		acc, _ := grp.Grouped.Get(name)
		rewritten, err := RewriteAccum(acc, sub.LBase)
		if err != nil {
			return mergeResult{}, err
		}
		grouped.Set(name, rewritten)
	}

	u := freshGroupField(grouped)
	rb := mapUpExpr(VarExpr{Var: ROOT}, sub.RBase)
	grouped.Set(u, Push(rb))

	by := mapUpExpr(grp.By, sub.LBase)
	groupOp := GroupOp{Src: stackedSrc, Grouped: grouped, By: by}
	unwound := UnwindOp{Src: groupOp, Field: NewBsonField(u)}

	rbase := func(v DocVar) (DocVar, bool) { return Field(u).Concat(v), true }
	return mergeResult{LBase: identitySigma(), RBase: rbase, Op: unwound}, nil
}

// mergeProjectProject is spec.md §4.4's dedicated Project/Project case: both
// shapes survive, nested under lEft/rIght so their field names never
// collide.
func mergeProjectProject(a, b ProjectOp) (mergeResult, error) {
	sub, err := Merge(a.Src, b.Src)
	if err != nil {
		return mergeResult{}, err
	}
	aShape := mapUpReshape(a.Shape, sub.LBase)
	bShape := mapUpReshape(b.Shape, sub.RBase)
	combined := NewReshape()
	combined.SetShape(NewBsonField(lEftField), aShape)
	combined.SetShape(NewBsonField(rIghtField), bShape)
	return mergeResult{
		LBase: leftSigma(),
		RBase: rightSigma(),
		Op:    ProjectOp{Src: sub.Op, Shape: combined},
	}, nil
}

// mergeGroupGroup implements spec.md §4.4 case 7: when both sides group by
// the same key (after rebasing through the merged source), their
// accumulator sets are combined under FlattenMapping's disjoint naming. If
// the grouping keys don't agree, ok is false and the caller falls through
// to the generic fallback.
func mergeGroupGroup(a, b GroupOp) (mergeResult, bool, error) {
	sub, err := Merge(a.Src, b.Src)
	if err != nil {
		return mergeResult{}, false, err
	}
	aBy := mapUpExpr(a.By, sub.LBase)
	bBy := mapUpExpr(b.By, sub.RBase)
	if !exprEqual(aBy, bBy) {
		return mergeResult{}, false, nil
	}

	leftNames, rightNames := a.Grouped.Keys(), b.Grouped.Keys()
	leftMap, rightMap := FlattenMapping(leftNames, rightNames)

	grouped := NewGrouped()
	for _, name := range leftNames {
		acc, _ := a.Grouped.Get(name)
		rewritten, err := RewriteAccum(acc, sub.LBase)
		if err != nil {
			return mergeResult{}, false, err
		}
		grouped.Set(leftMap[name], rewritten)
	}
	for _, name := range rightNames {
		acc, _ := b.Grouped.Get(name)
		rewritten, err := RewriteAccum(acc, sub.RBase)
		if err != nil {
			return mergeResult{}, false, err
		}
		grouped.Set(rightMap[name], rewritten)
	}

	lbase := func(v DocVar) (DocVar, bool) {
		if v.IsRoot() || len(v.Path) == 0 {
			return v, false
		}
		if mapped, ok := leftMap[v.Path[0]]; ok {
			return Field(mapped).Concat(DocVar{Path: v.Path[1:]}), true
		}
		return v, false
	}
	rbase := func(v DocVar) (DocVar, bool) {
		if v.IsRoot() || len(v.Path) == 0 {
			return v, false
		}
		if mapped, ok := rightMap[v.Path[0]]; ok {
			return Field(mapped).Concat(DocVar{Path: v.Path[1:]}), true
		}
		return v, false
	}

	return mergeResult{
		LBase: lbase,
		RBase: rbase,
		Op:    GroupOp{Src: sub.Op, Grouped: grouped, By: aBy},
	}, true, nil
}

// valueField is the common wrapper field every mergeFallback branch nests
// its labeled output under (spec.md §4.4 case 18: "value.lEft"/"value.rIght").
const valueField = "value"

// wrapBranch projects op's whole output under value.<label> and reduces it
// with the standard field-copy finalizer (reduceNOP: "return values[0];"),
// so the branch crushes to a MapReduceTask regardless of what op itself is —
// satisfying crushFoldLeft's requirement that every FoldLeft tail branch
// bottom out in a MapReduceTask.
func wrapBranch(op WorkflowOp, label string) WorkflowOp {
	inner := NewReshape()
	inner.SetExpr(NewBsonField(label), VarExpr{Var: ROOT})
	outer := NewReshape()
	outer.SetShape(NewBsonField(valueField), inner)
	return ReduceOp{Src: ProjectOp{Src: op, Shape: outer}, Fn: reduceNOP}
}

// mergeFallback is case 18: the safe, total fallback for any combination not
// specially recognized above (composite ops, Map/FlatMap/Reduce on either
// side, or reshaping-vs-reshaping pairs that aren't both Project or both
// Group). Both sides are pre-projected and labeled under a common value
// wrapper, then folded together; a reference into either side rebases to
// value.lEft/value.rIght (E\L, E\R).
func mergeFallback(a, b WorkflowOp) mergeResult {
	left := wrapBranch(a, lEftField)
	right := wrapBranch(b, rIghtField)

	lbase := func(v DocVar) (DocVar, bool) { return Field(valueField, lEftField).Concat(v), true }
	rbase := func(v DocVar) (DocVar, bool) { return Field(valueField, rIghtField).Concat(v), true }

	return mergeResult{
		LBase: lbase,
		RBase: rbase,
		Op:    FoldLeftOp{Srcs: []WorkflowOp{left, right}},
	}
}

func exprEqual(a, b ExprOp) bool {
	return reflect.DeepEqual(a, b)
}
