package workflow

// usedSet tracks which output fields a consumer still needs from its
// source, for the dead-field pruner (spec.md §4.3). all=true is the
// unconstrained sentinel used for the initial call and for anything
// downstream of an opaque op: it means "keep everything," matching the
// spec's U=∅ starting point (no field has yet been ruled dead). A union
// of the sentinel with a non-empty ref list is just those refs.
type usedSet struct {
	all    bool
	fields map[string]bool
}

func allUsed() usedSet {
	return usedSet{all: true}
}

func fromRefs(refs []DocVar) usedSet {
	u := usedSet{fields: make(map[string]bool, len(refs))}
	for _, r := range refs {
		u.fields[r.String()] = true
	}
	return u
}

// has reports whether v is used: equal to, a prefix of, or an extension of
// some used ref.
func (u usedSet) has(v DocVar) bool {
	if u.all || u.fields[v.String()] {
		return true
	}
	s := v.String()
	for k := range u.fields {
		if (len(k) > len(s) && k[:len(s)] == s && k[len(s)] == '.') ||
			(len(s) > len(k) && s[:len(k)] == k && s[len(k)] == '.') {
			return true
		}
	}
	return false
}

func refsLeaves(r *Reshape) []DocVar {
	var out []DocVar
	refsReshape(r, &out)
	return out
}

func (u usedSet) union(refs []DocVar) usedSet {
	if u.all {
		if len(refs) == 0 {
			return u
		}
		return fromRefs(refs)
	}
	out := usedSet{fields: make(map[string]bool, len(u.fields)+len(refs))}
	for k := range u.fields {
		out.fields[k] = true
	}
	for _, r := range refs {
		out.fields[r.String()] = true
	}
	return out
}

// Prune removes Project/Group fields that no downstream consumer will ever
// read, per spec.md §4.3 (invariant 4, property P6). It is the second half
// of finish: finish(O) = prune(coalesce(O), ∅).
func Prune(op WorkflowOp) WorkflowOp {
	return prune(op, allUsed())
}

func prune(op WorkflowOp, u usedSet) WorkflowOp {
	switch x := op.(type) {
	case PureOp, ReadOp:
		return op

	case MatchOp:
		x.Src = prune(x.Src, u.union(Refs(x)))
		return x

	case LimitOp:
		x.Src = prune(x.Src, u)
		return x

	case SkipOp:
		x.Src = prune(x.Src, u)
		return x

	case ProjectOp:
		if x.Shape.IsArr {
			// Array-form shapes have no named top-level key to test against
			// u; nothing to prune, just propagate every leaf reference.
			x.Src = prune(x.Src, fromRefs(refsLeaves(x.Shape)))
			return x
		}
		kept := NewReshape()
		x.Shape.each(func(name string, entry reshapeEntry) {
			if !u.has(Field(name)) {
				return
			}
			if entry.Sub != nil {
				kept.SetShape(NewBsonField(name), entry.Sub)
			} else {
				kept.SetExpr(NewBsonField(name), entry.Expr)
			}
		})
		x.Shape = kept
		x.Src = prune(x.Src, fromRefs(refsLeaves(kept)))
		return x

	case RedactOp:
		x.Src = prune(x.Src, u.union(Refs(x)))
		return x

	case UnwindOp:
		// Unwind inherits U unchanged: unwinds cannot credit their own
		// field as used (spec.md §4.3).
		x.Src = prune(x.Src, u)
		return x

	case GroupOp:
		kept := NewGrouped()
		for _, name := range x.Grouped.Keys() {
			if u.has(Field(name)) {
				a, _ := x.Grouped.Get(name)
				kept.Set(name, a)
			}
		}
		x.Grouped = kept
		var downstream []DocVar
		refsGrouped(kept, &downstream)
		refsExpr(x.By, &downstream)
		x.Src = prune(x.Src, fromRefs(downstream))
		return x

	case SortOp:
		x.Src = prune(x.Src, u.union(Refs(x)))
		return x

	case GeoNearOp:
		x.Src = prune(x.Src, u.union(Refs(x)))
		return x

	case MapOp:
		x.Src = prune(x.Src, allUsed())
		return x

	case FlatMapOp:
		x.Src = prune(x.Src, allUsed())
		return x

	case ReduceOp:
		x.Src = prune(x.Src, allUsed())
		return x

	case FoldLeftOp:
		srcs := make([]WorkflowOp, len(x.Srcs))
		for i, s := range x.Srcs {
			srcs[i] = prune(s, allUsed())
		}
		x.Srcs = srcs
		return x

	case JoinOp:
		srcs := make([]WorkflowOp, len(x.Srcs))
		for i, s := range x.Srcs {
			srcs[i] = prune(s, allUsed())
		}
		x.Srcs = srcs
		return x

	default:
		return op
	}
}
