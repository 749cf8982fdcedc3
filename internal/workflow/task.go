package workflow

import "github.com/zoobzio/docwf/internal/types"

// WorkflowTask is the crusher's output: a tree of execution-ready tasks, one
// level closer to whatever the target database engine actually runs (a
// native pipeline, a map/reduce job, or a literal document) than a
// WorkflowOp is (spec.md §4.6).
type WorkflowTask interface {
	isWorkflowTask()
}

// PureTask returns a literal document without touching the collection.
type PureTask struct {
	Value any
}

func (PureTask) isWorkflowTask() {}

// ReadTask scans a collection with no further processing.
type ReadTask struct {
	Coll types.Collection
}

func (ReadTask) isWorkflowTask() {}

// PipelineTask runs a sequence of native pipeline stages over its source.
type PipelineTask struct {
	Src    WorkflowTask
	Stages []WorkflowOp
}

func (PipelineTask) isWorkflowTask() {}

// MapReduceTask runs a map/reduce job: Select (possibly nil) narrows the
// input via a native filter before the JS map/reduce/finalize trio runs.
type MapReduceTask struct {
	Src       WorkflowTask
	Select    Selector
	Map       JSFunc
	Reduce    JSFunc
	Finalizer *JSFunc
}

func (MapReduceTask) isWorkflowTask() {}

// FoldLeftTask sequentially reduces a non-empty list of branch tasks; every
// branch after the first must itself resolve to a MapReduceTask with a
// reduce action, matching the accumulate-into-first-branch semantics
// FoldLeftOp describes (spec.md §9).
type FoldLeftTask struct {
	Head WorkflowTask
	Tail []MapReduceTask
}

func (FoldLeftTask) isWorkflowTask() {}

// JoinTask runs an independent set of branch tasks and returns their
// results side by side.
type JoinTask struct {
	Branches []WorkflowTask
}

func (JoinTask) isWorkflowTask() {}
