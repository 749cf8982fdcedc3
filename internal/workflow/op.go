package workflow

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/docwf/internal/types"
)

// WorkflowOp is a node in the operation graph: an atomic query operation
// together with its dependencies (its "sources").
type WorkflowOp interface {
	isWorkflowOp()
}

// No OutOp: forking a pipeline to write results to a collection and then
// continue reading from it has two plausible shapes (single terminal output,
// or tee-to-collection-then-continue), and nothing downstream here forces a
// choice between them yet. See DESIGN.md, "Open questions — decisions",
// item 2.

// SortKey is one (field, direction) pair of a Sort stage.
type SortKey struct {
	Field BsonField
	Order types.SortOrder
}

// GeoNearSpec carries the parameters of a GeoNear stage.
type GeoNearSpec struct {
	Point         ExprOp
	DistanceField BsonField
	Spherical     bool
	MaxDistance   *float64
}

// --- Source ops (no sources) ---

// PureOp is an inline literal document.
type PureOp struct {
	Value any
}

func (PureOp) isWorkflowOp() {}

// ReadOp names a source collection.
type ReadOp struct {
	Coll types.Collection
}

func (ReadOp) isWorkflowOp() {}

// --- Shape-preserving ops (subset of WPipelineOp) ---

// MatchOp filters documents with Sel. It is a WPipelineOp unless Sel
// contains a JS Where predicate (spec.md §4.6).
type MatchOp struct {
	Src WorkflowOp
	Sel Selector
}

func (MatchOp) isWorkflowOp() {}

// LimitOp caps the result at N documents.
type LimitOp struct {
	Src WorkflowOp
	N   types.PaginationValue
}

func (LimitOp) isWorkflowOp() {}

// SkipOp skips the first N documents.
type SkipOp struct {
	Src WorkflowOp
	N   types.PaginationValue
}

func (SkipOp) isWorkflowOp() {}

// --- Other WPipelineOps ---

// ProjectOp reshapes the output document.
type ProjectOp struct {
	Src   WorkflowOp
	Shape *Reshape
}

func (ProjectOp) isWorkflowOp() {}

// RedactOp conditionally prunes subtrees of the document via Expr.
type RedactOp struct {
	Src  WorkflowOp
	Expr ExprOp
}

func (RedactOp) isWorkflowOp() {}

// UnwindOp flattens an array field into one document per element.
type UnwindOp struct {
	Src   WorkflowOp
	Field BsonField
}

func (UnwindOp) isWorkflowOp() {}

// GroupOp groups documents by By, computing Grouped's accumulators.
type GroupOp struct {
	Src     WorkflowOp
	Grouped *Grouped
	By      ExprOp
}

func (GroupOp) isWorkflowOp() {}

// SortOp orders documents by Keys.
type SortOp struct {
	Src  WorkflowOp
	Keys []SortKey
}

func (SortOp) isWorkflowOp() {}

// GeoNearOp orders documents by distance from a point. Per spec.md §4.2,
// GeoNear must execute first among pipeline stages.
type GeoNearOp struct {
	Src  WorkflowOp
	Near GeoNearSpec
}

func (GeoNearOp) isWorkflowOp() {}

// --- Non-pipeline ops (must lower to map/reduce) ---

// MapOp applies a JS map function (spec.md §4.5).
type MapOp struct {
	Src WorkflowOp
	Fn  JSFunc
}

func (MapOp) isWorkflowOp() {}

// FlatMapOp applies a JS flatMap function (spec.md §4.5).
type FlatMapOp struct {
	Src WorkflowOp
	Fn  JSFunc
}

func (FlatMapOp) isWorkflowOp() {}

// ReduceOp applies a JS reduce function (spec.md §4.5).
type ReduceOp struct {
	Src WorkflowOp
	Fn  JSFunc
}

func (ReduceOp) isWorkflowOp() {}

// --- Composite ops (multiple sources) ---

// FoldLeftOp sequentially folds a non-empty list of sources' outputs
// together. Per spec.md §9, every branch always reduces; a per-branch
// reduce-or-replace choice is left for when a concrete use case appears.
type FoldLeftOp struct {
	Srcs []WorkflowOp
}

func (FoldLeftOp) isWorkflowOp() {}

// JoinOp combines an independent set of sources.
type JoinOp struct {
	Srcs []WorkflowOp
}

func (JoinOp) isWorkflowOp() {}

// --- Categorization ---

// IsSourceOp reports whether op has no sources (Pure, Read).
func IsSourceOp(op WorkflowOp) bool {
	switch op.(type) {
	case PureOp, ReadOp:
		return true
	default:
		return false
	}
}

// IsShapePreservingOp reports whether op never alters its source's output
// document shape (Match, Limit, Skip).
func IsShapePreservingOp(op WorkflowOp) bool {
	switch op.(type) {
	case MatchOp, LimitOp, SkipOp:
		return true
	default:
		return false
	}
}

// IsWPipelineOp reports whether op is representable as one or more stages
// in the target's native pipeline DSL — every single-source op except
// Map/FlatMap/Reduce. A Match whose selector contains a Where predicate is
// intentionally still "a WPipelineOp shape" here; pipelinability in the
// presence of Where is a crush-time concern (spec.md §4.6), not a
// categorization one.
func IsWPipelineOp(op WorkflowOp) bool {
	if IsShapePreservingOp(op) {
		return true
	}
	switch op.(type) {
	case ProjectOp, RedactOp, UnwindOp, GroupOp, SortOp, GeoNearOp:
		return true
	default:
		return false
	}
}

// Source returns op's single source and true, or nil/false for source ops
// and composite ops.
func Source(op WorkflowOp) (WorkflowOp, bool) {
	switch x := op.(type) {
	case MatchOp:
		return x.Src, true
	case LimitOp:
		return x.Src, true
	case SkipOp:
		return x.Src, true
	case ProjectOp:
		return x.Src, true
	case RedactOp:
		return x.Src, true
	case UnwindOp:
		return x.Src, true
	case GroupOp:
		return x.Src, true
	case SortOp:
		return x.Src, true
	case GeoNearOp:
		return x.Src, true
	case MapOp:
		return x.Src, true
	case FlatMapOp:
		return x.Src, true
	case ReduceOp:
		return x.Src, true
	default:
		return nil, false
	}
}

// Sources returns every child of op: the single source for one-source ops,
// the list of branches for composite ops, or nil for source ops.
func Sources(op WorkflowOp) []WorkflowOp {
	switch x := op.(type) {
	case FoldLeftOp:
		return x.Srcs
	case JoinOp:
		return x.Srcs
	default:
		if src, ok := Source(op); ok {
			return []WorkflowOp{src}
		}
		return nil
	}
}

// WithSource returns a copy of op with its single source replaced. It
// panics (an internal-only invariant, never user-reachable) if op is not a
// single-source op.
func WithSource(op WorkflowOp, newSrc WorkflowOp) WorkflowOp {
	switch x := op.(type) {
	case MatchOp:
		x.Src = newSrc
		return x
	case LimitOp:
		x.Src = newSrc
		return x
	case SkipOp:
		x.Src = newSrc
		return x
	case ProjectOp:
		x.Src = newSrc
		return x
	case RedactOp:
		x.Src = newSrc
		return x
	case UnwindOp:
		x.Src = newSrc
		return x
	case GroupOp:
		x.Src = newSrc
		return x
	case SortOp:
		x.Src = newSrc
		return x
	case GeoNearOp:
		x.Src = newSrc
		return x
	case MapOp:
		x.Src = newSrc
		return x
	case FlatMapOp:
		x.Src = newSrc
		return x
	case ReduceOp:
		x.Src = newSrc
		return x
	default:
		panic(fmt.Sprintf("docwf: WithSource called on op with no single source: %T", op))
	}
}

// Validate checks invariant 1 (spec.md §3): every non-source op has a
// non-nil source, and every composite op has a non-empty source list.
func Validate(op WorkflowOp) error {
	switch x := op.(type) {
	case FoldLeftOp:
		if len(x.Srcs) == 0 {
			return fmt.Errorf("docwf: FoldLeft requires at least one source")
		}
		for _, s := range x.Srcs {
			if s == nil {
				return fmt.Errorf("docwf: FoldLeft source is nil")
			}
			if err := Validate(s); err != nil {
				return err
			}
		}
		return nil
	case JoinOp:
		if len(x.Srcs) == 0 {
			return fmt.Errorf("docwf: Join requires at least one source")
		}
		for _, s := range x.Srcs {
			if s == nil {
				return fmt.Errorf("docwf: Join source is nil")
			}
			if err := Validate(s); err != nil {
				return err
			}
		}
		return nil
	default:
		if IsSourceOp(op) {
			return nil
		}
		src, ok := Source(op)
		if !ok {
			return fmt.Errorf("docwf: unrecognized op type %T", op)
		}
		if src == nil {
			return fmt.Errorf("docwf: %T has a nil source", op)
		}
		return Validate(src)
	}
}

// Equal reports whether two op trees are structurally identical. It is
// used by the property tests (coalesce/finish idempotence, merge identity)
// and by Merge's identity shortcut.
func Equal(a, b WorkflowOp) bool {
	return reflect.DeepEqual(a, b)
}
