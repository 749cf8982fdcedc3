package workflow

import "fmt"

// JSFunc wraps a JavaScript function body as an opaque builder. Per
// DESIGN.md (and spec.md §9), the planner never parses or simplifies the JS
// — it only knows the three calling conventions described in spec.md §4.5
// and composes whole function texts together.
type JSFunc struct {
	// Source is the full "function(...) { ... }" text.
	Source string
}

// NewMapFunc wraps a map function of one argument (the key); by convention
// (spec.md §4.5) it returns [newKey, newValue] and sees the current
// document as `this`.
func NewMapFunc(body string) JSFunc {
	return JSFunc{Source: fmt.Sprintf("function(key){%s}", body)}
}

// NewFlatMapFunc wraps a flatMap function of one argument (the key); by
// convention it returns an array of [newKey, newValue] pairs.
func NewFlatMapFunc(body string) JSFunc {
	return JSFunc{Source: fmt.Sprintf("function(key){%s}", body)}
}

// NewReduceFunc wraps a reduce function of (key, values[]).
func NewReduceFunc(body string) JSFunc {
	return JSFunc{Source: fmt.Sprintf("function(key, values){%s}", body)}
}

// ComposeMap fuses an outer map/flatMap function o with an inner one i,
// per spec.md §4.5: "function(k){ var rez = i.call(this, k); return
// o.call(rez[1], rez[0]); }" — key and value swap position between calls.
func ComposeMap(outer, inner JSFunc) JSFunc {
	return JSFunc{Source: fmt.Sprintf(
		"function(key){ var rez = (%s).call(this, key); return (%s).call(rez[1], rez[0]); }",
		inner.Source, outer.Source,
	)}
}

// ComposeFlatMap fuses an outer flatMap with an inner flatMap: the direct
// return is replaced with a flattening map over every inner result
// (spec.md §4.5).
func ComposeFlatMap(outer, inner JSFunc) JSFunc {
	return JSFunc{Source: fmt.Sprintf(
		"function(key){ var rez = (%s).call(this, key); return [].concat.apply(null, rez.map(function(kv){ return (%s).call(kv[1], kv[0]); })); }",
		inner.Source, outer.Source,
	)}
}

// mapNOP and reduceNOP are the identity map/reduce pair used to lower a
// non-pipelinable Match into a selection-only MapReduceTask (spec.md §4.6,
// scenario 2).
var (
	mapNOP    = NewMapFunc("emit(this._id, this);")
	reduceNOP = NewReduceFunc("return values[0];")
)
