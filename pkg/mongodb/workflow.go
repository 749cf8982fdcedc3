package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/zoobzio/docwf/internal/types"
	"github.com/zoobzio/docwf/internal/workflow"
)

// RenderedTask is a WorkflowTask compiled down to the shape a mongo.Database
// can actually run: an aggregation pipeline for ReadTask/PipelineTask
// shapes, a Literal for a PureTask, or a mapReduce command document for
// anything bottoming out in a MapReduceTask.
type RenderedTask struct {
	// Collection is empty for a PureTask, which never touches the database.
	Collection string
	// Pipeline is set when the task is runnable as db.<coll>.aggregate(Pipeline).
	Pipeline bson.A
	// MapReduce is set when the task must run as a mapReduce command.
	MapReduce *MapReduceCommand
	// Literal is set for a PureTask: the task's value verbatim.
	Literal any
}

// MapReduceCommand is the shape MongoDB's legacy mapReduce command expects.
type MapReduceCommand struct {
	Map       string
	Reduce    string
	Finalize  string
	Query     bson.M
	Out       bson.M
}

// RenderWorkflow lowers a WorkflowTask into a RenderedTask ready for a
// mongo.Database to execute.
func RenderWorkflow(task workflow.WorkflowTask) (*RenderedTask, error) {
	switch t := task.(type) {
	case workflow.PureTask:
		return &RenderedTask{Literal: t.Value}, nil
	case workflow.ReadTask:
		return &RenderedTask{Collection: t.Coll.Name, Pipeline: bson.A{}}, nil
	case workflow.PipelineTask:
		return renderPipelineTask(t)
	case workflow.MapReduceTask:
		return renderMapReduceTask(t)
	case workflow.FoldLeftTask:
		return renderFoldLeftTask(t)
	case workflow.JoinTask:
		return renderJoinTask(t)
	default:
		return nil, fmt.Errorf("mongodb: unsupported WorkflowTask %T", task)
	}
}

func renderPipelineTask(t workflow.PipelineTask) (*RenderedTask, error) {
	base, err := RenderWorkflow(t.Src)
	if err != nil {
		return nil, err
	}
	if base.MapReduce != nil {
		return nil, fmt.Errorf("mongodb: cannot append native pipeline stages after a mapReduce source")
	}
	stages := make(bson.A, 0, len(t.Stages))
	for _, op := range t.Stages {
		stage, err := renderStage(op)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	base.Pipeline = append(base.Pipeline, stages...)
	return base, nil
}

func renderStage(op workflow.WorkflowOp) (bson.D, error) {
	switch x := op.(type) {
	case workflow.MatchOp:
		filter, err := renderSelector(x.Sel)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$match", Value: filter}}, nil
	case workflow.LimitOp:
		n, err := renderPagination(x.N)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$limit", Value: n}}, nil
	case workflow.SkipOp:
		n, err := renderPagination(x.N)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$skip", Value: n}}, nil
	case workflow.ProjectOp:
		shape, err := renderReshape(x.Shape)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$project", Value: shape}}, nil
	case workflow.RedactOp:
		expr, err := renderExpr(x.Expr)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$redact", Value: expr}}, nil
	case workflow.UnwindOp:
		return bson.D{{Key: "$unwind", Value: "$" + x.Field.String()}}, nil
	case workflow.GroupOp:
		by, err := renderExpr(x.By)
		if err != nil {
			return nil, err
		}
		doc := bson.D{{Key: "_id", Value: by}}
		for _, name := range x.Grouped.Keys() {
			acc, _ := x.Grouped.Get(name)
			av, err := renderExpr(acc)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: name, Value: av})
		}
		return bson.D{{Key: "$group", Value: doc}}, nil
	case workflow.SortOp:
		doc := bson.D{}
		for _, k := range x.Keys {
			doc = append(doc, bson.E{Key: k.Field.String(), Value: int(k.Order)})
		}
		return bson.D{{Key: "$sort", Value: doc}}, nil
	case workflow.GeoNearOp:
		near, err := renderExpr(x.Near.Point)
		if err != nil {
			return nil, err
		}
		doc := bson.D{
			{Key: "near", Value: near},
			{Key: "distanceField", Value: x.Near.DistanceField.String()},
			{Key: "spherical", Value: x.Near.Spherical},
		}
		if x.Near.MaxDistance != nil {
			doc = append(doc, bson.E{Key: "maxDistance", Value: *x.Near.MaxDistance})
		}
		return bson.D{{Key: "$geoNear", Value: doc}}, nil
	default:
		return nil, fmt.Errorf("mongodb: %T is not a native pipeline stage", op)
	}
}

// renderFieldName converts a DocVar into the dotted field-path string
// MongoDB's query and aggregation syntax expects (no leading "ROOT.").
func renderFieldName(v workflow.DocVar) string {
	bf, ok := v.Deref()
	if !ok {
		return ""
	}
	return bf.String()
}

func renderPagination(n types.PaginationValue) (int, error) {
	if n.Static != nil {
		return *n.Static, nil
	}
	if n.Param != nil {
		return 0, fmt.Errorf("mongodb: parameterized pagination value %q must be bound before rendering", n.Param.Name)
	}
	return 0, fmt.Errorf("mongodb: empty pagination value")
}

func renderSelector(s workflow.Selector) (bson.M, error) {
	switch x := s.(type) {
	case workflow.CondSelector:
		v, err := renderExpr(x.Value)
		if err != nil {
			return nil, err
		}
		return bson.M{renderFieldName(x.Field): bson.M{string(x.Operator): v}}, nil
	case workflow.CompoundSelector:
		items := make(bson.A, 0, len(x.Items))
		for _, item := range x.Items {
			m, err := renderSelector(item)
			if err != nil {
				return nil, err
			}
			items = append(items, m)
		}
		return bson.M{string(x.Logic): items}, nil
	case workflow.NotSelector:
		m, err := renderSelector(x.Item)
		if err != nil {
			return nil, err
		}
		return bson.M{string(types.NOT): m}, nil
	case workflow.ElemMatchSelector:
		items := make(bson.A, 0, len(x.Items))
		for _, item := range x.Items {
			m, err := renderSelector(item)
			if err != nil {
				return nil, err
			}
			items = append(items, m)
		}
		return bson.M{renderFieldName(x.Field): bson.M{"$elemMatch": bson.M{"$and": items}}}, nil
	case workflow.WhereSelector:
		return nil, fmt.Errorf("mongodb: a Where selector cannot render to a native $match; it must lower through a MapReduceTask")
	default:
		return nil, fmt.Errorf("mongodb: unsupported Selector %T", s)
	}
}

func renderExpr(e workflow.ExprOp) (any, error) {
	switch x := e.(type) {
	case workflow.VarExpr:
		if x.Var.IsRoot() {
			return "$$ROOT", nil
		}
		return "$" + renderFieldName(x.Var), nil
	case workflow.LiteralExpr:
		if x.Param != nil {
			return nil, fmt.Errorf("mongodb: parameter %q must be bound before rendering", x.Param.Name)
		}
		return x.Value, nil
	case workflow.OpExpr:
		args := make(bson.A, 0, len(x.Args))
		for _, a := range x.Args {
			av, err := renderExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, av)
		}
		return bson.M{x.Operator: args}, nil
	case workflow.CondExpr:
		cond, err := renderExpr(x.If)
		if err != nil {
			return nil, err
		}
		then, err := renderExpr(x.Then)
		if err != nil {
			return nil, err
		}
		els, err := renderExpr(x.Else)
		if err != nil {
			return nil, err
		}
		return bson.M{"$cond": bson.M{"if": cond, "then": then, "else": els}}, nil
	case workflow.AccumExpr:
		arg, err := renderExpr(x.Arg)
		if err != nil {
			return nil, err
		}
		return bson.M{x.Operator: arg}, nil
	default:
		return nil, fmt.Errorf("mongodb: unsupported ExprOp %T", e)
	}
}

func renderReshape(r *workflow.Reshape) (any, error) {
	if r == nil {
		return bson.D{}, nil
	}
	if r.IsArr {
		entries := r.ArrEntries()
		arr := make(bson.A, 0, len(entries))
		for _, entry := range entries {
			if entry.Sub != nil {
				sub, err := renderReshape(entry.Sub)
				if err != nil {
					return nil, err
				}
				arr = append(arr, sub)
				continue
			}
			v, err := renderExpr(entry.Expr)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	}
	doc := bson.D{}
	for _, name := range r.TopKeys() {
		if sub, ok := r.GetSub(name); ok {
			v, err := renderReshape(sub)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: name, Value: v})
			continue
		}
		expr, ok := r.Get(workflow.NewBsonField(name))
		if !ok {
			continue
		}
		v, err := renderExpr(expr)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: name, Value: v})
	}
	return doc, nil
}

func renderMapReduceTask(t workflow.MapReduceTask) (*RenderedTask, error) {
	base, err := RenderWorkflow(t.Src)
	if err != nil {
		return nil, err
	}
	query := bson.M{}
	if t.Select != nil {
		query, err = renderSelector(t.Select)
		if err != nil {
			return nil, err
		}
	}
	cmd := &MapReduceCommand{
		Map:    t.Map.Source,
		Reduce: t.Reduce.Source,
		Query:  query,
		Out:    bson.M{"inline": 1},
	}
	if t.Finalizer != nil {
		cmd.Finalize = t.Finalizer.Source
	}
	base.MapReduce = cmd
	return base, nil
}

func renderFoldLeftTask(t workflow.FoldLeftTask) (*RenderedTask, error) {
	head, err := RenderWorkflow(t.Head)
	if err != nil {
		return nil, err
	}
	if len(t.Tail) == 0 {
		return head, nil
	}
	last := head
	for _, mr := range t.Tail {
		next, err := renderMapReduceTask(mr)
		if err != nil {
			return nil, err
		}
		last = next
	}
	return last, nil
}

func renderJoinTask(t workflow.JoinTask) (*RenderedTask, error) {
	if len(t.Branches) == 0 {
		return nil, fmt.Errorf("mongodb: JoinTask has no branches")
	}
	branches := make([]any, 0, len(t.Branches))
	for _, b := range t.Branches {
		r, err := RenderWorkflow(b)
		if err != nil {
			return nil, err
		}
		branches = append(branches, r)
	}
	return &RenderedTask{Literal: branches}, nil
}
