package workflow

import "fmt"

// InternalError reports one of the two fatal invariant violations spec.md
// §7.1 names: a reference rewrite that turned an accumulator expression
// into a non-accumulator, or a FoldLeft tail branch the crusher could not
// rewrite into a MapReduceTask. Both indicate a bug in the planner itself,
// never in caller input — per spec.md §7 there is no local recovery.
// Crush also returns it for an op type it does not recognize and for a
// FoldLeft with no sources.
type InternalError struct {
	// Op or Task is whichever the violation was discovered on.
	Op      any
	Task    any
	Message string
}

func (e *InternalError) Error() string {
	if e.Task != nil {
		return fmt.Sprintf("docwf: internal invariant violation: %s (task: %#v)", e.Message, e.Task)
	}
	return fmt.Sprintf("docwf: internal invariant violation: %s (op: %#v)", e.Message, e.Op)
}
