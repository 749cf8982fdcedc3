// Package workflow implements the workflow algebra: the WorkflowOp tree,
// the coalescing rewrites, the merge combinator, the dead-field pruner and
// the crush lowering to WorkflowTask. See DESIGN.md for the grounding of
// each piece.
package workflow

import "strings"

// DocVar is a reference into a document, rooted at ROOT. An empty Path
// denotes ROOT itself; a non-empty Path denotes ROOT.field[.field...].
type DocVar struct {
	Path []string
}

// ROOT is the document variable referring to the whole current document.
var ROOT = DocVar{}

// Field builds ROOT.name1.name2... from the given path segments.
func Field(path ...string) DocVar {
	return DocVar{Path: append([]string(nil), path...)}
}

// IsRoot reports whether v refers to the whole document.
func (v DocVar) IsRoot() bool {
	return len(v.Path) == 0
}

// StartsWith reports whether v's path is prefixed by other's path, i.e.
// other names a document at or above v.
func (v DocVar) StartsWith(other DocVar) bool {
	if len(other.Path) > len(v.Path) {
		return false
	}
	for i, p := range other.Path {
		if v.Path[i] != p {
			return false
		}
	}
	return true
}

// Concat implements the `a \ b` operator: resolve b relative to a, i.e.
// treat a as the new ROOT that b's path is anchored under.
func (v DocVar) Concat(other DocVar) DocVar {
	out := make([]string, 0, len(v.Path)+len(other.Path))
	out = append(out, v.Path...)
	out = append(out, other.Path...)
	return DocVar{Path: out}
}

// Deref returns the field path of v, or ok=false if v is ROOT.
func (v DocVar) Deref() (BsonField, bool) {
	if v.IsRoot() {
		return BsonField{}, false
	}
	comps := make([]FieldComponent, len(v.Path))
	for i, p := range v.Path {
		comps[i] = NameComponent(p)
	}
	return BsonField{Components: comps}, true
}

// Equal reports structural equality between two DocVars.
func (v DocVar) Equal(other DocVar) bool {
	if len(v.Path) != len(other.Path) {
		return false
	}
	for i := range v.Path {
		if v.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// String renders the DocVar in dot notation, "ROOT" for the root itself.
func (v DocVar) String() string {
	if v.IsRoot() {
		return "ROOT"
	}
	return "ROOT." + strings.Join(v.Path, ".")
}
