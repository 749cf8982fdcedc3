package workflow

// pipelinable reports whether the contiguous WPipelineOp run rooted at op
// can be expressed entirely as native pipeline stages — true iff no Match
// along that run carries a JS Where predicate (spec.md §4.6).
func pipelinable(op WorkflowOp) bool {
	cur := op
	for IsWPipelineOp(cur) {
		if m, ok := cur.(MatchOp); ok && ContainsWhere(m.Sel) {
			return false
		}
		src, ok := Source(cur)
		if !ok {
			break
		}
		cur = src
	}
	return true
}

// collectPipelineStages walks down the contiguous WPipelineOp run rooted at
// op, returning the stages in execution order (source-side first) and the
// first non-WPipelineOp boundary it hit (a source op, a Map/FlatMap/Reduce,
// or a composite op).
func collectPipelineStages(op WorkflowOp) ([]WorkflowOp, WorkflowOp) {
	var reversed []WorkflowOp
	cur := op
	for IsWPipelineOp(cur) {
		reversed = append(reversed, cur)
		src, ok := Source(cur)
		if !ok {
			break
		}
		cur = src
	}
	stages := make([]WorkflowOp, len(reversed))
	for i, s := range reversed {
		stages[len(reversed)-1-i] = s
	}
	return stages, cur
}

// peelSelect tries to express src as a pure Match-only prefix, returning the
// boundary beneath it and the combined selector, so a MapReduceTask can
// apply that selector as its native query instead of running a separate
// PipelineTask first. Any non-Match stage in the prefix disqualifies the
// peel; src and a nil selector are returned unchanged in that case.
func peelSelect(src WorkflowOp) (WorkflowOp, Selector) {
	if !pipelinable(src) {
		return src, nil
	}
	stages, boundary := collectPipelineStages(src)
	if len(stages) == 0 {
		return src, nil
	}
	var sel Selector
	for _, s := range stages {
		m, ok := s.(MatchOp)
		if !ok {
			return src, nil
		}
		if sel == nil {
			sel = m.Sel
		} else {
			sel = And(sel, m.Sel)
		}
	}
	return boundary, sel
}

// Crush lowers a coalesced, pruned op tree into a WorkflowTask (spec.md
// §4.6). Callers normally reach this through Plan, which runs Finish first.
func Crush(op WorkflowOp) (WorkflowTask, error) {
	switch x := op.(type) {
	case PureOp:
		return PureTask{Value: x.Value}, nil

	case ReadOp:
		return ReadTask{Coll: x.Coll}, nil

	case MapOp:
		boundary, sel := peelSelect(x.Src)
		srcTask, err := Crush(boundary)
		if err != nil {
			return nil, err
		}
		return MapReduceTask{Src: srcTask, Select: sel, Map: x.Fn, Reduce: reduceNOP}, nil

	case FlatMapOp:
		boundary, sel := peelSelect(x.Src)
		srcTask, err := Crush(boundary)
		if err != nil {
			return nil, err
		}
		return MapReduceTask{Src: srcTask, Select: sel, Map: x.Fn, Reduce: reduceNOP}, nil

	case ReduceOp:
		return crushReduce(x)

	case FoldLeftOp:
		return crushFoldLeft(x)

	case JoinOp:
		branches := make([]WorkflowTask, len(x.Srcs))
		for i, s := range x.Srcs {
			t, err := Crush(s)
			if err != nil {
				return nil, err
			}
			branches[i] = t
		}
		return JoinTask{Branches: branches}, nil

	default:
		if IsWPipelineOp(op) {
			return crushPipeline(op)
		}
		return nil, &InternalError{Op: op, Message: "crush: unrecognized op type"}
	}
}

func crushPipeline(op WorkflowOp) (WorkflowTask, error) {
	if !pipelinable(op) {
		return crushViaMapReduce(op)
	}
	stages, boundary := collectPipelineStages(op)
	srcTask, err := Crush(boundary)
	if err != nil {
		return nil, err
	}
	return PipelineTask{Src: srcTask, Stages: stages}, nil
}

// crushViaMapReduce lowers a WPipelineOp run that contains a Where-bearing
// Match: every Match in the run contributes to the job's native query
// filter (Where included — map/reduce's query accepts $where), and any
// non-Match stage in the run runs afterward as a trailing PipelineTask over
// the job's output (spec.md §4.6 scenario 2).
func crushViaMapReduce(op WorkflowOp) (WorkflowTask, error) {
	stages, boundary := collectPipelineStages(op)
	var sel Selector
	var trailing []WorkflowOp
	for _, s := range stages {
		if m, ok := s.(MatchOp); ok {
			if sel == nil {
				sel = m.Sel
			} else {
				sel = And(sel, m.Sel)
			}
			continue
		}
		trailing = append(trailing, s)
	}
	srcTask, err := Crush(boundary)
	if err != nil {
		return nil, err
	}
	mrTask := MapReduceTask{Src: srcTask, Select: sel, Map: mapNOP, Reduce: reduceNOP}
	if len(trailing) == 0 {
		return mrTask, nil
	}
	return PipelineTask{Src: mrTask, Stages: trailing}, nil
}

func crushReduce(x ReduceOp) (WorkflowTask, error) {
	switch s := x.Src.(type) {
	case MapOp:
		boundary, sel := peelSelect(s.Src)
		srcTask, err := Crush(boundary)
		if err != nil {
			return nil, err
		}
		return MapReduceTask{Src: srcTask, Select: sel, Map: s.Fn, Reduce: x.Fn}, nil
	case FlatMapOp:
		boundary, sel := peelSelect(s.Src)
		srcTask, err := Crush(boundary)
		if err != nil {
			return nil, err
		}
		return MapReduceTask{Src: srcTask, Select: sel, Map: s.Fn, Reduce: x.Fn}, nil
	default:
		boundary, sel := peelSelect(x.Src)
		srcTask, err := Crush(boundary)
		if err != nil {
			return nil, err
		}
		return MapReduceTask{Src: srcTask, Select: sel, Map: mapNOP, Reduce: x.Fn}, nil
	}
}

func crushFoldLeft(x FoldLeftOp) (WorkflowTask, error) {
	if len(x.Srcs) == 0 {
		return nil, &InternalError{Op: x, Message: "FoldLeft has no sources"}
	}
	head, err := Crush(x.Srcs[0])
	if err != nil {
		return nil, err
	}
	tail := make([]MapReduceTask, 0, len(x.Srcs)-1)
	for _, s := range x.Srcs[1:] {
		t, err := Crush(s)
		if err != nil {
			return nil, err
		}
		mr, ok := t.(MapReduceTask)
		if !ok {
			return nil, &InternalError{
				Op:      s,
				Task:    t,
				Message: "FoldLeft tail branch could not be rewritten to a MapReduceTask",
			}
		}
		tail = append(tail, mr)
	}
	return FoldLeftTask{Head: head, Tail: tail}, nil
}

// Finish applies the coalescer then the pruner: finish(O) = prune(coalesce(O))
// (spec.md §4.7).
func Finish(op WorkflowOp) (WorkflowOp, error) {
	c, err := Coalesce(op)
	if err != nil {
		return nil, err
	}
	return Prune(c), nil
}

// Plan runs the full pipeline from a raw op tree to an execution-ready task:
// workflow(O) = crush(finish(O)) (spec.md §4.7).
func Plan(op WorkflowOp) (WorkflowTask, error) {
	f, err := Finish(op)
	if err != nil {
		return nil, err
	}
	return Crush(f)
}
