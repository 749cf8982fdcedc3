package workflow

// Sigma is a partial function from DocVar to DocVar, as used by Rewrite.
type Sigma = sigma

// rewriteFieldPath implements the same DocField(name)-then-sigma rule as
// rewriteFieldName (spec.md §4.1), but for a whole BsonField path used as a
// direct reference (Unwind's field, GeoNear's distance field, Sort's keys)
// rather than as a single reshape/group map key.
func rewriteFieldPath(field BsonField, s sigma) BsonField {
	dv, ok := s(field.AsDocVar())
	if !ok {
		return field
	}
	bf, isField := dv.Deref()
	if !isField {
		return field
	}
	return bf
}

// Rewrite produces O' structurally identical to O except that every DocVar
// appearing in O's own payload has been replaced by sigma's image (identity
// where sigma is undefined). Only the root op is touched; O's sources are
// returned unchanged (spec.md §4.1).
func Rewrite(op WorkflowOp, s sigma) (WorkflowOp, error) {
	switch x := op.(type) {
	case PureOp, ReadOp:
		return op, nil

	case MatchOp:
		x.Sel = mapUpSelector(x.Sel, s)
		return x, nil

	case LimitOp:
		return x, nil

	case SkipOp:
		return x, nil

	case ProjectOp:
		x.Shape = mapUpReshape(x.Shape, s)
		return x, nil

	case RedactOp:
		x.Expr = mapUpExpr(x.Expr, s)
		return x, nil

	case UnwindOp:
		x.Field = rewriteFieldPath(x.Field, s)
		return x, nil

	case GroupOp:
		g, err := mapUpGrouped(x.Grouped, s)
		if err != nil {
			return nil, err
		}
		x.Grouped = g
		x.By = mapUpExpr(x.By, s)
		return x, nil

	case SortOp:
		keys := make([]SortKey, len(x.Keys))
		for i, k := range x.Keys {
			keys[i] = SortKey{Field: rewriteFieldPath(k.Field, s), Order: k.Order}
		}
		x.Keys = keys
		return x, nil

	case GeoNearOp:
		x.Near.Point = mapUpExpr(x.Near.Point, s)
		x.Near.DistanceField = rewriteFieldPath(x.Near.DistanceField, s)
		return x, nil

	case MapOp, FlatMapOp, ReduceOp:
		// JS function bodies are opaque; the planner never rewrites
		// references inside them (spec.md §9).
		return op, nil

	case FoldLeftOp, JoinOp:
		// Composite ops carry no DocVar-bearing payload of their own; only
		// their sources (untouched by Rewrite) mention document fields.
		return op, nil

	default:
		return op, nil
	}
}

// Refs returns every DocVar appearing in op's own payload, in traversal
// order, implemented as Rewrite with the identity sigma plus a collection
// sink (spec.md §4.1).
func Refs(op WorkflowOp) []DocVar {
	var out []DocVar
	switch x := op.(type) {
	case MatchOp:
		refsSelector(x.Sel, &out)
	case ProjectOp:
		refsReshape(x.Shape, &out)
	case RedactOp:
		refsExpr(x.Expr, &out)
	case UnwindOp:
		out = append(out, x.Field.AsDocVar())
	case GroupOp:
		refsGrouped(x.Grouped, &out)
		refsExpr(x.By, &out)
	case SortOp:
		for _, k := range x.Keys {
			out = append(out, k.Field.AsDocVar())
		}
	case GeoNearOp:
		refsExpr(x.Near.Point, &out)
		out = append(out, x.Near.DistanceField.AsDocVar())
	}
	return out
}
