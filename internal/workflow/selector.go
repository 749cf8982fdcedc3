package workflow

import "github.com/zoobzio/docwf/internal/types"

// Selector is a predicate tree used by Match and by $elemMatch-shaped
// sub-filters. Some variants — notably Where — are non-pipelinable: a JS
// predicate can only run inside a map/reduce job.
type Selector interface {
	isSelector()
}

// CondSelector is a single field/operator/value comparison.
type CondSelector struct {
	Field    DocVar
	Operator types.FilterOperator
	Value    ExprOp
}

func (CondSelector) isSelector() {}

// CompoundSelector combines sub-selectors with AND/OR/NOR.
type CompoundSelector struct {
	Logic types.LogicOperator
	Items []Selector
}

func (CompoundSelector) isSelector() {}

// NotSelector negates a single sub-selector.
type NotSelector struct {
	Item Selector
}

func (NotSelector) isSelector() {}

// ElemMatchSelector matches array elements against sub-selectors.
type ElemMatchSelector struct {
	Field DocVar
	Items []Selector
}

func (ElemMatchSelector) isSelector() {}

// WhereSelector is a JS predicate evaluated against the current document.
// It is the one selector variant that cannot be pushed into the target's
// native pipeline DSL (spec.md §4.6).
type WhereSelector struct {
	JS string
}

func (WhereSelector) isSelector() {}

// And combines two selectors with AND, flattening nested ANDs so repeated
// coalescing (Match ∘ Match, spec.md §4.2) doesn't grow a deep right-leaning
// chain.
func And(s1, s2 Selector) Selector {
	items := make([]Selector, 0, 2)
	if c, ok := s1.(CompoundSelector); ok && c.Logic == types.AND {
		items = append(items, c.Items...)
	} else {
		items = append(items, s1)
	}
	if c, ok := s2.(CompoundSelector); ok && c.Logic == types.AND {
		items = append(items, c.Items...)
	} else {
		items = append(items, s2)
	}
	return CompoundSelector{Logic: types.AND, Items: items}
}

// ContainsWhere reports whether s contains a WhereSelector anywhere,
// including transitively through compound and elemMatch selectors. Per
// spec.md §4.6, a Match is pipelinable iff this returns false.
func ContainsWhere(s Selector) bool {
	switch x := s.(type) {
	case WhereSelector:
		return true
	case CompoundSelector:
		for _, item := range x.Items {
			if ContainsWhere(item) {
				return true
			}
		}
		return false
	case NotSelector:
		return ContainsWhere(x.Item)
	case ElemMatchSelector:
		for _, item := range x.Items {
			if ContainsWhere(item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func mapUpSelector(s Selector, f sigma) Selector {
	switch x := s.(type) {
	case CondSelector:
		nv, ok := f(x.Field)
		if !ok {
			nv = x.Field
		}
		return CondSelector{Field: nv, Operator: x.Operator, Value: mapUpExpr(x.Value, f)}
	case CompoundSelector:
		items := make([]Selector, len(x.Items))
		for i, item := range x.Items {
			items[i] = mapUpSelector(item, f)
		}
		return CompoundSelector{Logic: x.Logic, Items: items}
	case NotSelector:
		return NotSelector{Item: mapUpSelector(x.Item, f)}
	case ElemMatchSelector:
		nv, ok := f(x.Field)
		if !ok {
			nv = x.Field
		}
		items := make([]Selector, len(x.Items))
		for i, item := range x.Items {
			items[i] = mapUpSelector(item, f)
		}
		return ElemMatchSelector{Field: nv, Items: items}
	case WhereSelector:
		return x
	default:
		return s
	}
}

func refsSelector(s Selector, out *[]DocVar) {
	switch x := s.(type) {
	case CondSelector:
		*out = append(*out, x.Field)
		refsExpr(x.Value, out)
	case CompoundSelector:
		for _, item := range x.Items {
			refsSelector(item, out)
		}
	case NotSelector:
		refsSelector(x.Item, out)
	case ElemMatchSelector:
		*out = append(*out, x.Field)
		for _, item := range x.Items {
			refsSelector(item, out)
		}
	case WhereSelector:
	}
}
