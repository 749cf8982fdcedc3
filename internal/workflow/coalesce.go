package workflow

import "github.com/zoobzio/docwf/internal/types"

// Coalesce performs the local, idempotent fusion pass over op described in
// spec.md §4.2. It recurses into sources first (so every rule compares
// against an already-coalesced source), then applies the one rule, if any,
// that matches op's variant against its (possibly just-rewritten) source.
func Coalesce(op WorkflowOp) (WorkflowOp, error) {
	switch x := op.(type) {
	case PureOp, ReadOp:
		return op, nil

	case FoldLeftOp:
		return coalesceFoldLeft(x)

	case JoinOp:
		srcs := make([]WorkflowOp, len(x.Srcs))
		for i, s := range x.Srcs {
			cs, err := Coalesce(s)
			if err != nil {
				return nil, err
			}
			srcs[i] = cs
		}
		return JoinOp{Srcs: srcs}, nil

	case MatchOp:
		return coalesceMatch(x)

	case LimitOp:
		return coalesceLimit(x)

	case SkipOp:
		return coalesceSkip(x)

	case ProjectOp:
		return coalesceProject(x)

	case RedactOp:
		src, err := Coalesce(x.Src)
		if err != nil {
			return nil, err
		}
		return RedactOp{Src: src, Expr: x.Expr}, nil

	case UnwindOp:
		src, err := Coalesce(x.Src)
		if err != nil {
			return nil, err
		}
		return UnwindOp{Src: src, Field: x.Field}, nil

	case SortOp:
		src, err := Coalesce(x.Src)
		if err != nil {
			return nil, err
		}
		return SortOp{Src: src, Keys: x.Keys}, nil

	case GeoNearOp:
		return coalesceGeoNear(x)

	case GroupOp:
		return coalesceGroup(x)

	case MapOp:
		return coalesceMap(x)

	case FlatMapOp:
		return coalesceFlatMap(x)

	case ReduceOp:
		src, err := Coalesce(x.Src)
		if err != nil {
			return nil, err
		}
		return ReduceOp{Src: src, Fn: x.Fn}, nil

	default:
		return op, nil
	}
}

func coalesceFoldLeft(x FoldLeftOp) (WorkflowOp, error) {
	var flat []WorkflowOp
	for _, s := range x.Srcs {
		cs, err := Coalesce(s)
		if err != nil {
			return nil, err
		}
		// FoldLeft(FoldLeft(xs), ys) -> FoldLeft(xs ++ ys): splice any
		// branch that is itself a FoldLeft directly into the flat list.
		if inner, ok := cs.(FoldLeftOp); ok {
			flat = append(flat, inner.Srcs...)
		} else {
			flat = append(flat, cs)
		}
	}
	return FoldLeftOp{Srcs: flat}, nil
}

func coalesceMatch(x MatchOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case MatchOp:
		// Match(s, Match(s0, s0')) -> Match(s0, s0' ∧ s), then recoalesce.
		return Coalesce(MatchOp{Src: s.Src, Sel: And(s.Sel, x.Sel)})
	case SortOp:
		// Match(s, Sort(s0, k)) -> Sort(Match(s0, s), k): matches push
		// below sorts.
		pushed, err := Coalesce(MatchOp{Src: s.Src, Sel: x.Sel})
		if err != nil {
			return nil, err
		}
		return SortOp{Src: pushed, Keys: s.Keys}, nil
	default:
		return MatchOp{Src: src, Sel: x.Sel}, nil
	}
}

func coalesceLimit(x LimitOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case LimitOp:
		// Limit(n, Limit(s0, n0)) -> Limit(s0, min(n, n0)).
		if n, ok := minPagination(x.N, s.N); ok {
			return LimitOp{Src: s.Src, N: n}, nil
		}
	case SkipOp:
		// Limit(n, Skip(s0, k)) -> Skip(Limit(s0, k + n), k).
		if n, ok := addPagination(s.N, x.N); ok {
			return Coalesce(SkipOp{Src: LimitOp{Src: s.Src, N: n}, N: s.N})
		}
	}
	return LimitOp{Src: src, N: x.N}, nil
}

func coalesceSkip(x SkipOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	if s, ok := src.(SkipOp); ok {
		// Skip(k, Skip(s0, k0)) -> Skip(s0, k + k0).
		if n, ok := addPagination(x.N, s.N); ok {
			return SkipOp{Src: s.Src, N: n}, nil
		}
	}
	return SkipOp{Src: src, N: x.N}, nil
}

func coalesceProject(x ProjectOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	if p, ok := src.(ProjectOp); ok {
		if inlined, ok := inlineReshape(x.Shape, p.Shape); ok {
			return Coalesce(ProjectOp{Src: p.Src, Shape: inlined})
		}
	}
	return ProjectOp{Src: src, Shape: x.Shape}, nil
}

func coalesceGeoNear(x GeoNearOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case GeoNearOp:
		// GeoNear(GeoNear(...)): retain the outer GeoNear only.
		return GeoNearOp{Src: s.Src, Near: x.Near}, nil
	default:
		if IsWPipelineOp(src) && !IsSourceOp(src) {
			// GeoNear over a WPipelineOp: GeoNear must execute first, so
			// lift the pipeline op above it by reparenting.
			inner, _ := Source(src)
			lifted := WithSource(src, GeoNearOp{Src: inner, Near: x.Near})
			return Coalesce(lifted)
		}
		return GeoNearOp{Src: src, Near: x.Near}, nil
	}
}

func coalesceGroup(x GroupOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	if p, ok := src.(ProjectOp); ok {
		if inlinedBy, ok1 := inlineExpr(x.By, p.Shape); ok1 {
			inlinedGrouped := NewGrouped()
			allOK := true
			for _, k := range x.Grouped.Keys() {
				a, _ := x.Grouped.Get(k)
				if inlinedArg, ok2 := inlineExpr(a.Arg, p.Shape); ok2 {
					inlinedGrouped.Set(k, AccumExpr{Operator: a.Operator, Arg: inlinedArg})
				} else {
					allOK = false
					break
				}
			}
			if allOK {
				return Coalesce(GroupOp{Src: p.Src, Grouped: inlinedGrouped, By: inlinedBy})
			}
		}
	}
	return GroupOp{Src: src, Grouped: x.Grouped, By: x.By}, nil
}

func coalesceMap(x MapOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case MapOp:
		return MapOp{Src: s.Src, Fn: ComposeMap(x.Fn, s.Fn)}, nil
	case FlatMapOp:
		// Map-after-FlatMap: the inner produces an array of pairs, so the
		// fused function must still return an array. The outer map's single
		// pair is wrapped in a one-element array so ComposeFlatMap's
		// flattening yields a list of pairs.
		asFlat := JSFunc{Source: "function(key){ return [(" + x.Fn.Source + ").call(this, key)]; }"}
		return FlatMapOp{Src: s.Src, Fn: ComposeFlatMap(asFlat, s.Fn)}, nil
	default:
		return MapOp{Src: src, Fn: x.Fn}, nil
	}
}

func coalesceFlatMap(x FlatMapOp) (WorkflowOp, error) {
	src, err := Coalesce(x.Src)
	if err != nil {
		return nil, err
	}
	switch s := src.(type) {
	case FlatMapOp:
		return FlatMapOp{Src: s.Src, Fn: ComposeFlatMap(x.Fn, s.Fn)}, nil
	case MapOp:
		// FlatMap-after-Map: the inner produces a single pair, so the base
		// two-argument template suffices.
		return FlatMapOp{Src: s.Src, Fn: ComposeMap(x.Fn, s.Fn)}, nil
	default:
		return FlatMapOp{Src: src, Fn: x.Fn}, nil
	}
}

func minPagination(a, b types.PaginationValue) (types.PaginationValue, bool) {
	if a.Static != nil && b.Static != nil {
		m := *a.Static
		if *b.Static < m {
			m = *b.Static
		}
		return types.PaginationValue{Static: &m}, true
	}
	return types.PaginationValue{}, false
}

func addPagination(a, b types.PaginationValue) (types.PaginationValue, bool) {
	if a.Static != nil && b.Static != nil {
		sum := *a.Static + *b.Static
		return types.PaginationValue{Static: &sum}, true
	}
	return types.PaginationValue{}, false
}

// inlineExpr rewrites every VarExpr leaf of e into the expression inner
// defines at that field, for the Project-over-Project and Project-under-
// Group inlining rules (spec.md §4.2). It fails (ok=false) the moment any
// leaf can't be resolved against inner, matching the spec's "if the inline
// succeeds ... otherwise leave unchanged" discipline.
func inlineExpr(e ExprOp, inner *Reshape) (ExprOp, bool) {
	switch x := e.(type) {
	case VarExpr:
		if x.Var.IsRoot() {
			return nil, false
		}
		bf, _ := x.Var.Deref()
		v, ok := inner.Get(bf)
		if !ok {
			return nil, false
		}
		return v, true
	case LiteralExpr:
		return x, true
	case OpExpr:
		args := make([]ExprOp, len(x.Args))
		for i, a := range x.Args {
			r, ok := inlineExpr(a, inner)
			if !ok {
				return nil, false
			}
			args[i] = r
		}
		return OpExpr{Operator: x.Operator, Args: args}, true
	case CondExpr:
		ifE, ok1 := inlineExpr(x.If, inner)
		thenE, ok2 := inlineExpr(x.Then, inner)
		elseE, ok3 := inlineExpr(x.Else, inner)
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		return CondExpr{If: ifE, Then: thenE, Else: elseE}, true
	case AccumExpr:
		arg, ok := inlineExpr(x.Arg, inner)
		if !ok {
			return nil, false
		}
		return AccumExpr{Operator: x.Operator, Arg: arg}, true
	default:
		return nil, false
	}
}

func inlineReshape(outer, inner *Reshape) (*Reshape, bool) {
	result := &Reshape{IsArr: outer.IsArr}
	if outer.IsArr {
		result.arr = make([]reshapeEntry, len(outer.arr))
		for i, entry := range outer.arr {
			ne, ok := inlineEntry(entry, inner)
			if !ok {
				return nil, false
			}
			result.arr[i] = ne
		}
		return result, true
	}
	result.doc = make(map[string]reshapeEntry, len(outer.doc))
	for _, k := range outer.keys {
		ne, ok := inlineEntry(outer.doc[k], inner)
		if !ok {
			return nil, false
		}
		result.keys = append(result.keys, k)
		result.doc[k] = ne
	}
	return result, true
}

func inlineEntry(entry reshapeEntry, inner *Reshape) (reshapeEntry, bool) {
	if entry.Sub != nil {
		sub, ok := inlineReshape(entry.Sub, inner)
		if !ok {
			return reshapeEntry{}, false
		}
		return reshapeEntry{Sub: sub}, true
	}
	if entry.Expr != nil {
		e, ok := inlineExpr(entry.Expr, inner)
		if !ok {
			return reshapeEntry{}, false
		}
		return reshapeEntry{Expr: e}, true
	}
	return entry, true
}
