// Package docwf plans document-database queries.
//
// Where the builder package constructs a single literal query AST, docwf
// works one level down: it builds a WorkflowOp graph — the algebra an
// optimizer for a query language like SQL would lower its logical plans
// into — and compiles it down to a WorkflowTask a driver can actually run,
// via Plan (equivalently, Finish then Crush):
//
//	d, err := docwf.NewFromDDML(schema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	op := docwf.Match(
//	    docwf.Read(d.C("orders")),
//	    docwf.Cond(docwf.Var("status"), docwf.OpEQ, docwf.Lit("shipped")),
//	)
//	task, err := docwf.Plan(op)
//
// The result is a WorkflowTask: either a native PipelineTask, a
// MapReduceTask for logic the target can't express natively, or one of the
// composite FoldLeftTask/JoinTask shapes. pkg/mongodb renders a
// WorkflowTask into a runnable bson pipeline or command.
package docwf

import (
	"github.com/zoobzio/docwf/internal/types"
	"github.com/zoobzio/docwf/internal/workflow"
)

// --- Re-exported algebra types ---

type (
	// WorkflowOp is a node in the operation graph.
	WorkflowOp = workflow.WorkflowOp

	// DocVar is a reference into a document, rooted at ROOT.
	DocVar = workflow.DocVar

	// BsonField is a non-empty field path into a document.
	BsonField = workflow.BsonField

	// ExprOp is an expression tree over document fields and literals.
	ExprOp = workflow.ExprOp

	// Selector is a Match predicate tree.
	Selector = workflow.Selector

	// Reshape is a Project field mapping.
	Reshape = workflow.Reshape

	// Grouped is a Group accumulator set.
	Grouped = workflow.Grouped

	// JSFunc wraps a JavaScript map/flatMap/reduce function body.
	JSFunc = workflow.JSFunc

	// SortKey is one field/direction pair of a Sort stage.
	SortKey = workflow.SortKey

	// GeoNearSpec carries the parameters of a GeoNear stage.
	GeoNearSpec = workflow.GeoNearSpec

	// InternalError reports a planner invariant violation (spec.md §7.1).
	InternalError = workflow.InternalError
)

// --- Re-exported task types ---

type (
	// WorkflowTask is the crusher's output.
	WorkflowTask = workflow.WorkflowTask

	// PureTask returns a literal document.
	PureTask = workflow.PureTask

	// ReadTask scans a collection unfiltered.
	ReadTask = workflow.ReadTask

	// PipelineTask runs native pipeline stages over its source.
	PipelineTask = workflow.PipelineTask

	// MapReduceTask runs a map/reduce job, optionally pre-filtered by Select.
	MapReduceTask = workflow.MapReduceTask

	// FoldLeftTask sequentially reduces a list of branch tasks.
	FoldLeftTask = workflow.FoldLeftTask

	// JoinTask runs independent branch tasks side by side.
	JoinTask = workflow.JoinTask
)

// --- Re-exported domain types ---

type (
	// Collection identifies a source collection by name.
	Collection = types.Collection

	// Param is a named, deferred literal bound at execution time.
	Param = types.Param

	// FilterOperator is a Match comparison operator ($eq, $gt, ...).
	FilterOperator = types.FilterOperator

	// LogicOperator combines sub-selectors ($and, $or, $nor).
	LogicOperator = types.LogicOperator

	// SortOrder is a Sort stage's direction for one key.
	SortOrder = types.SortOrder
)

// Filter operator constants, re-exported for Cond's Operator argument.
const (
	OpEQ            = types.EQ
	OpNE            = types.NE
	OpGT            = types.GT
	OpGTE           = types.GTE
	OpLT            = types.LT
	OpLTE           = types.LTE
	OpIN            = types.IN
	OpNotIn         = types.NotIn
	OpExists        = types.Exists
	OpType          = types.Type
	OpRegex         = types.Regex
	OpText          = types.Text
	OpAll           = types.All
	OpElemMatch     = types.ElemMatch
	OpSize          = types.Size
	OpGeoWithin     = types.GeoWithin
	OpGeoIntersects = types.GeoIntersects
	OpNear          = types.Near
	OpNearSphere    = types.NearSphere
)

// Logic operator constants.
const (
	LogicAND = types.AND
	LogicOR  = types.OR
	LogicNOR = types.NOR
)

// Sort order constants.
const (
	Ascending  = types.Ascending
	Descending = types.Descending
)

// --- Op constructors ---

// Read names a source collection.
func Read(coll Collection) WorkflowOp { return workflow.ReadOp{Coll: coll} }

// Pure wraps an inline literal document.
func Pure(value any) WorkflowOp { return workflow.PureOp{Value: value} }

// Match filters src's documents with sel.
func Match(src WorkflowOp, sel Selector) WorkflowOp {
	return workflow.MatchOp{Src: src, Sel: sel}
}

// Limit caps src's output at n documents.
func Limit(src WorkflowOp, n types.PaginationValue) WorkflowOp {
	return workflow.LimitOp{Src: src, N: n}
}

// Skip skips the first n documents of src.
func Skip(src WorkflowOp, n types.PaginationValue) WorkflowOp {
	return workflow.SkipOp{Src: src, N: n}
}

// Project reshapes src's output according to shape.
func Project(src WorkflowOp, shape *Reshape) WorkflowOp {
	return workflow.ProjectOp{Src: src, Shape: shape}
}

// Redact conditionally prunes subtrees of src's documents via expr.
func Redact(src WorkflowOp, expr ExprOp) WorkflowOp {
	return workflow.RedactOp{Src: src, Expr: expr}
}

// Unwind flattens field into one document per array element.
func Unwind(src WorkflowOp, field BsonField) WorkflowOp {
	return workflow.UnwindOp{Src: src, Field: field}
}

// Group groups src's documents by by, computing grouped's accumulators.
func Group(src WorkflowOp, grouped *Grouped, by ExprOp) WorkflowOp {
	return workflow.GroupOp{Src: src, Grouped: grouped, By: by}
}

// Sort orders src's documents by keys.
func Sort(src WorkflowOp, keys []SortKey) WorkflowOp {
	return workflow.SortOp{Src: src, Keys: keys}
}

// GeoNear orders src's documents by distance from near's point.
func GeoNear(src WorkflowOp, near GeoNearSpec) WorkflowOp {
	return workflow.GeoNearOp{Src: src, Near: near}
}

// Map applies a JS map function to each of src's documents.
func Map(src WorkflowOp, fn JSFunc) WorkflowOp { return workflow.MapOp{Src: src, Fn: fn} }

// FlatMap applies a JS flatMap function to each of src's documents.
func FlatMap(src WorkflowOp, fn JSFunc) WorkflowOp {
	return workflow.FlatMapOp{Src: src, Fn: fn}
}

// Reduce applies a JS reduce function over src's grouped key/value pairs.
func Reduce(src WorkflowOp, fn JSFunc) WorkflowOp { return workflow.ReduceOp{Src: src, Fn: fn} }

// FoldLeft sequentially folds srcs' outputs together.
func FoldLeft(srcs ...WorkflowOp) WorkflowOp { return workflow.FoldLeftOp{Srcs: srcs} }

// Join combines an independent set of srcs.
func Join(srcs ...WorkflowOp) WorkflowOp { return workflow.JoinOp{Srcs: srcs} }

// --- Expression constructors ---

// Var references the document field at path.
func Var(path ...string) DocVar { return workflow.Field(path...) }

// Root is the document variable referring to the whole current document.
var Root = workflow.ROOT

// Ref builds an expression that reads v.
func Ref(v DocVar) ExprOp { return workflow.VarExpr{Var: v} }

// Lit builds an inline constant expression.
func Lit(value any) ExprOp { return workflow.LiteralExpr{Value: value} }

// Deferred builds an expression whose value is supplied at execution time.
func Deferred(p Param) ExprOp { return workflow.LiteralExpr{Param: &p} }

// Op applies a named operator (e.g. "$add", "$concat") to args.
func Op(operator string, args ...ExprOp) ExprOp {
	return workflow.OpExpr{Operator: operator, Args: args}
}

// IfElse builds a $cond expression.
func IfElse(cond, then, els ExprOp) ExprOp {
	return workflow.CondExpr{If: cond, Then: then, Else: els}
}

// Accumulator constructors for use in Grouped.
var (
	Sum      = workflow.Sum
	Avg      = workflow.Avg
	Min      = workflow.Min
	Max      = workflow.Max
	First    = workflow.First
	Last     = workflow.Last
	Push     = workflow.Push
	AddToSet = workflow.AddToSet
)

// NewBsonField builds a BsonField from dot-separated names.
func NewBsonField(names ...string) BsonField { return workflow.NewBsonField(names...) }

// NewGrouped builds an empty accumulator set for Group.
func NewGrouped() *Grouped { return workflow.NewGrouped() }

// NewReshape builds an empty document-form shape for Project.
func NewReshape() *Reshape { return workflow.NewReshape() }

// NewArrReshape builds an empty array-form shape for Project.
func NewArrReshape() *Reshape { return workflow.NewArrReshape() }

// --- Selector constructors ---

// Cond builds a single field/operator/value comparison.
func Cond(field DocVar, op FilterOperator, value ExprOp) Selector {
	return workflow.CondSelector{Field: field, Operator: op, Value: value}
}

// And combines two selectors with AND, flattening nested ANDs.
func And(s1, s2 Selector) Selector { return workflow.And(s1, s2) }

// Or combines selectors with OR.
func Or(items ...Selector) Selector {
	return workflow.CompoundSelector{Logic: LogicOR, Items: items}
}

// Not negates a selector.
func Not(s Selector) Selector { return workflow.NotSelector{Item: s} }

// ElemMatch matches array elements of field against items.
func ElemMatch(field DocVar, items ...Selector) Selector {
	return workflow.ElemMatchSelector{Field: field, Items: items}
}

// Where builds a JS predicate selector. A Match using Where is not
// pipelinable and always lowers through a MapReduceTask (spec.md §4.6).
func Where(js string) Selector { return workflow.WhereSelector{JS: js} }

// --- JS function constructors ---

// NewMapFunc wraps a map function body (spec.md §4.5 calling convention).
func NewMapFunc(body string) JSFunc { return workflow.NewMapFunc(body) }

// NewFlatMapFunc wraps a flatMap function body.
func NewFlatMapFunc(body string) JSFunc { return workflow.NewFlatMapFunc(body) }

// NewReduceFunc wraps a reduce function body.
func NewReduceFunc(body string) JSFunc { return workflow.NewReduceFunc(body) }

// --- Planning entry points ---

// Validate checks op's structural invariants (spec.md §3, invariant 1).
func Validate(op WorkflowOp) error { return workflow.Validate(op) }

// Equal reports whether two op trees are structurally identical.
func Equal(a, b WorkflowOp) bool { return workflow.Equal(a, b) }

// Coalesce runs the local fusion pass alone (spec.md §4.2).
func Coalesce(op WorkflowOp) (WorkflowOp, error) { return workflow.Coalesce(op) }

// Prune runs the dead-field elimination pass alone (spec.md §4.3).
func Prune(op WorkflowOp) WorkflowOp { return workflow.Prune(op) }

// Finish runs coalesce then prune: finish(O) = prune(coalesce(O)).
func Finish(op WorkflowOp) (WorkflowOp, error) { return workflow.Finish(op) }

// Crush lowers a finished op tree into a WorkflowTask (spec.md §4.6).
func Crush(op WorkflowOp) (WorkflowTask, error) { return workflow.Crush(op) }

// Plan runs the full pipeline: workflow(O) = crush(finish(O)).
func Plan(op WorkflowOp) (WorkflowTask, error) { return workflow.Plan(op) }
